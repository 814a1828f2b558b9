package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"steamtracker/internal/model"
)

type TrackResult int

const (
	TrackCreated TrackResult = iota
	TrackAlreadyTracked
)

func (r TrackResult) String() string {
	if r == TrackAlreadyTracked {
		return "already_tracked"
	}
	return "created"
}

type userGameDocument struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	UserID         string              `bson:"user_id"`
	AppID          int                 `bson:"app_id"`
	LastNotifiedAt *primitive.DateTime `bson:"last_notified_at"`
	CreatedAt      primitive.DateTime  `bson:"created_at"`
}

func (d userGameDocument) toModel() model.UserGameTracking {
	return model.UserGameTracking{
		UserID:         d.UserID,
		AppID:          d.AppID,
		LastNotifiedAt: fromDateTimePtr(d.LastNotifiedAt),
		CreatedAt:      d.CreatedAt.Time().UTC(),
	}
}

func (db Database) UserGameTrack(ctx context.Context, userID string, appID int) (TrackResult, error) {
	d := userGameDocument{
		UserID:    userID,
		AppID:     appID,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
	}
	_, err := db.Collection(CollectionUserGames).InsertOne(ctx, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return TrackAlreadyTracked, nil
		}
		return TrackCreated, errors.Wrapf(err, "error tracking Game for UserID: %s, AppID: %d", userID, appID)
	}
	return TrackCreated, nil
}

func (db Database) UserGameUntrack(ctx context.Context, userID string, appID int) error {
	res, err := db.Collection(CollectionUserGames).DeleteOne(ctx, bson.M{"user_id": userID, "app_id": appID})
	if err != nil {
		return errors.Wrapf(err, "error untracking Game for UserID: %s, AppID: %d", userID, appID)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(model.ErrNotFound, "Game not in watchlist, UserID: %s, AppID: %d", userID, appID)
	}
	return nil
}

func (db Database) UserGamesFindByApp(ctx context.Context, appID int) ([]model.UserGameTracking, error) {
	var docs []userGameDocument
	cur, err := db.Collection(CollectionUserGames).Find(ctx, bson.M{"app_id": appID})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find UserGames for AppID: %d", appID)
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "error getting UserGames from cursor for AppID: %d", appID)
	}
	ts := make([]model.UserGameTracking, 0, len(docs))
	for _, d := range docs {
		ts = append(ts, d.toModel())
	}
	return ts, nil
}

// UserGamesFindByUser returns a user's watch-list, most recently tracked first.
func (db Database) UserGamesFindByUser(ctx context.Context, userID string) ([]model.UserGameTracking, error) {
	var docs []userGameDocument
	cur, err := db.Collection(CollectionUserGames).Find(
		ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find UserGames for UserID: %s", userID)
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "error getting UserGames from cursor for UserID: %s", userID)
	}
	ts := make([]model.UserGameTracking, 0, len(docs))
	for _, d := range docs {
		ts = append(ts, d.toModel())
	}
	return ts, nil
}

func (db Database) UserGameNotifiedUpdate(ctx context.Context, userID string, appID int, at time.Time) error {
	res, err := db.Collection(CollectionUserGames).UpdateOne(
		ctx,
		bson.M{"user_id": userID, "app_id": appID},
		bson.M{"$set": bson.M{"last_notified_at": primitive.NewDateTimeFromTime(at)}},
	)
	if err != nil {
		return errors.Wrapf(err, "error updating UserGame last_notified_at, UserID: %s, AppID: %d", userID, appID)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(model.ErrNotFound, "UserGame not found, UserID: %s, AppID: %d", userID, appID)
	}
	return nil
}
