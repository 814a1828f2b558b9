package database

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionGames          = "games"
	CollectionPriceHistories = "price_histories"
	CollectionPriceAlerts    = "price_alerts"
	CollectionUserGames      = "user_games"
	CollectionUserProfiles   = "user_profiles"
)

type Database struct {
	*mongo.Database
}

func ConnectDB(ctx context.Context, dbURI string, dbName string) (*mongo.Client, error) {
	c, err := mongo.Connect(ctx, options.Client().ApplyURI(dbURI))
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to DB at: %s", dbURI)
	}
	if err = createIndexes(ctx, c.Database(dbName)); err != nil {
		_ = c.Disconnect(ctx)
		return nil, err
	}
	return c, nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionGames).Indexes().CreateOne(
		ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "app_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	)
	if err != nil {
		return errors.Wrapf(err, "error creating index on %s", CollectionGames)
	}

	_, err = db.Collection(CollectionPriceHistories).Indexes().CreateOne(
		ctx,
		mongo.IndexModel{
			Keys: bson.D{
				{Key: "game_id", Value: 1},
				{Key: "ts", Value: -1},
			},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "error creating index on %s", CollectionPriceHistories)
	}

	_, err = db.Collection(CollectionPriceAlerts).Indexes().CreateMany(
		ctx,
		[]mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "game_id", Value: 1},
				},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"is_active": true}),
			},
			{
				Keys: bson.D{{Key: "is_active", Value: 1}},
			},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "error creating indexes on %s", CollectionPriceAlerts)
	}

	_, err = db.Collection(CollectionUserGames).Indexes().CreateMany(
		ctx,
		[]mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "app_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "app_id", Value: 1}},
			},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "error creating indexes on %s", CollectionUserGames)
	}

	_, err = db.Collection(CollectionUserProfiles).Indexes().CreateOne(
		ctx,
		mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	)
	return errors.Wrapf(err, "error creating index on %s", CollectionUserProfiles)
}
