package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"steamtracker/internal/model"
)

type gameDocument struct {
	ID              primitive.ObjectID    `bson:"_id,omitempty"`
	AppID           int                   `bson:"app_id"`
	Name            string                `bson:"name"`
	Currency        string                `bson:"currency,omitempty"`
	IsFree          bool                  `bson:"is_free"`
	LastKnownPrice  *primitive.Decimal128 `bson:"last_known_price"`
	DiscountPercent *int                  `bson:"discount_percent"`
	CreatedAt       primitive.DateTime    `bson:"created_at"`
	UpdatedAt       primitive.DateTime    `bson:"updated_at"`
}

func (d gameDocument) toModel() (model.Game, error) {
	if d.AppID <= 0 {
		return model.Game{}, errors.Wrapf(model.ErrInvalidData, "Game %s has app_id: %d", d.ID.Hex(), d.AppID)
	}
	if !validDiscount(d.DiscountPercent) {
		return model.Game{}, errors.Wrapf(model.ErrInvalidData, "Game %s has discount_percent: %d", d.ID.Hex(), *d.DiscountPercent)
	}
	price, err := fromDecimal128Ptr(d.LastKnownPrice)
	if err != nil {
		return model.Game{}, errors.WithMessagef(err, "Game %s", d.ID.Hex())
	}
	return model.Game{
		ID:              d.ID.Hex(),
		AppID:           d.AppID,
		Name:            d.Name,
		Currency:        d.Currency,
		IsFree:          d.IsFree,
		LastKnownPrice:  price,
		DiscountPercent: d.DiscountPercent,
	}, nil
}

// GamesFindAll returns the catalog. Invalid rows are skipped and reported
// with model.ErrInvalidData next to the valid ones.
func (db Database) GamesFindAll(ctx context.Context) ([]model.Game, error) {
	var docs []gameDocument
	cur, err := db.Collection(CollectionGames).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "error getting cursor to find all Games")
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "error getting all Games from cursor")
	}
	return decodeAll(docs, gameDocument.toModel, "Games")
}

// GamesFindByAppIDs returns the stored games among appIDs. Invalid rows are
// reported the same way as in GamesFindAll.
func (db Database) GamesFindByAppIDs(ctx context.Context, appIDs []int) ([]model.Game, error) {
	var docs []gameDocument
	cur, err := db.Collection(CollectionGames).Find(ctx, bson.M{"app_id": bson.M{"$in": appIDs}})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find Games, appIDs: %v", appIDs)
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "error getting Games from cursor, appIDs: %v", appIDs)
	}
	return decodeAll(docs, gameDocument.toModel, "Games")
}

func (db Database) GameFindByAppID(ctx context.Context, appID int) (model.Game, error) {
	var d gameDocument
	err := db.Collection(CollectionGames).FindOne(ctx, bson.M{"app_id": appID}).Decode(&d)
	if err != nil {
		return model.Game{}, errors.Wrapf(notFound(err), "error finding Game with AppID: %d", appID)
	}
	return d.toModel()
}

// GameInsert stores a newly tracked game. An existing game with the same
// AppID is returned unchanged.
func (db Database) GameInsert(ctx context.Context, g model.Game) (model.Game, error) {
	price, err := toDecimal128Ptr(g.LastKnownPrice)
	if err != nil {
		return model.Game{}, err
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	d := gameDocument{
		AppID:           g.AppID,
		Name:            g.Name,
		Currency:        g.Currency,
		IsFree:          g.IsFree,
		LastKnownPrice:  price,
		DiscountPercent: g.DiscountPercent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err = d.toModel(); err != nil {
		return model.Game{}, errors.WithMessage(err, "refusing to insert Game")
	}
	r, err := db.Collection(CollectionGames).InsertOne(ctx, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return db.GameFindByAppID(ctx, g.AppID)
		}
		return model.Game{}, errors.Wrapf(err, "error inserting Game with AppID: %d", g.AppID)
	}
	d.ID = r.InsertedID.(primitive.ObjectID)
	return d.toModel()
}

// GamePriceUpdate rewrites the denormalized current price of a game.
func (db Database) GamePriceUpdate(
	ctx context.Context, gameID string, price decimal.Decimal, discountPercent *int, currency string,
) error {
	oid, err := objectID(gameID)
	if err != nil {
		return err
	}
	p, err := toDecimal128(price)
	if err != nil {
		return err
	}
	set := bson.M{
		"last_known_price": p,
		"discount_percent": discountPercent,
		"is_free":          false,
		"updated_at":       primitive.NewDateTimeFromTime(time.Now()),
	}
	if currency != "" {
		set["currency"] = currency
	}
	res, err := db.Collection(CollectionGames).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrapf(err, "error updating Game price, GameID: %s, Price: %s", gameID, price)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(model.ErrNotFound, "Game not found when updating price, GameID: %s", gameID)
	}
	return nil
}
