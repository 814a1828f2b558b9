package database

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"steamtracker/internal/model"
)

type userProfileDocument struct {
	UserID  string `bson:"user_id"`
	Email   string `bson:"email"`
	IsAdmin bool   `bson:"is_admin"`
}

func (db Database) UserProfileFind(ctx context.Context, userID string) (model.UserProfile, error) {
	var d userProfileDocument
	err := db.Collection(CollectionUserProfiles).FindOne(ctx, bson.M{"user_id": userID}).Decode(&d)
	if err != nil {
		return model.UserProfile{}, errors.Wrapf(notFound(err), "error finding UserProfile with UserID: %s", userID)
	}
	return model.UserProfile{UserID: d.UserID, Email: d.Email, IsAdmin: d.IsAdmin}, nil
}

// UserProfileEmails returns every non-empty email registered for userID.
func (db Database) UserProfileEmails(ctx context.Context, userID string) ([]string, error) {
	var docs []userProfileDocument
	cur, err := db.Collection(CollectionUserProfiles).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find UserProfiles for UserID: %s", userID)
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "error getting UserProfiles from cursor for UserID: %s", userID)
	}
	var emails []string
	for _, d := range docs {
		if d.Email != "" {
			emails = append(emails, d.Email)
		}
	}
	return emails, nil
}
