package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"steamtracker/internal/model"
)

type priceHistoryDocument struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	GameID          primitive.ObjectID   `bson:"game_id"`
	Timestamp       primitive.DateTime   `bson:"ts"`
	InitialPrice    primitive.Decimal128 `bson:"initial_price"`
	FinalPrice      primitive.Decimal128 `bson:"final_price"`
	DiscountPercent *int                 `bson:"discount_percent"`
	Currency        string               `bson:"currency,omitempty"`
}

func (d priceHistoryDocument) toModel() (model.PriceHistoryEntry, error) {
	if !validDiscount(d.DiscountPercent) {
		return model.PriceHistoryEntry{}, errors.Wrapf(model.ErrInvalidData,
			"PriceHistory %s has discount_percent: %d", d.ID.Hex(), *d.DiscountPercent)
	}
	initial, err := fromDecimal128(d.InitialPrice)
	if err != nil {
		return model.PriceHistoryEntry{}, errors.WithMessagef(err, "PriceHistory %s", d.ID.Hex())
	}
	final, err := fromDecimal128(d.FinalPrice)
	if err != nil {
		return model.PriceHistoryEntry{}, errors.WithMessagef(err, "PriceHistory %s", d.ID.Hex())
	}
	return model.PriceHistoryEntry{
		ID:              d.ID.Hex(),
		GameID:          d.GameID.Hex(),
		Timestamp:       d.Timestamp.Time().UTC(),
		InitialPrice:    initial,
		FinalPrice:      final,
		DiscountPercent: d.DiscountPercent,
		Currency:        d.Currency,
	}, nil
}

func (db Database) PriceHistoryInsert(ctx context.Context, e model.PriceHistoryEntry) (string, error) {
	gameOID, err := objectID(e.GameID)
	if err != nil {
		return "", err
	}
	initial, err := toDecimal128(e.InitialPrice)
	if err != nil {
		return "", err
	}
	final, err := toDecimal128(e.FinalPrice)
	if err != nil {
		return "", err
	}
	d := priceHistoryDocument{
		GameID:          gameOID,
		Timestamp:       primitive.NewDateTimeFromTime(e.Timestamp),
		InitialPrice:    initial,
		FinalPrice:      final,
		DiscountPercent: e.DiscountPercent,
		Currency:        e.Currency,
	}
	r, err := db.Collection(CollectionPriceHistories).InsertOne(ctx, d)
	if err != nil {
		return "", errors.Wrapf(err, "error inserting PriceHistory for GameID: %s, FinalPrice: %s", e.GameID, e.FinalPrice)
	}
	return r.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (db Database) PriceHistoryFindLatest(ctx context.Context, gameID string) (model.PriceHistoryEntry, error) {
	oid, err := objectID(gameID)
	if err != nil {
		return model.PriceHistoryEntry{}, err
	}
	var d priceHistoryDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "_id", Value: -1}})
	err = db.Collection(CollectionPriceHistories).FindOne(ctx, bson.M{"game_id": oid}, opts).Decode(&d)
	if err != nil {
		return model.PriceHistoryEntry{}, errors.Wrapf(notFound(err), "error finding latest PriceHistory for GameID: %s", gameID)
	}
	return d.toModel()
}

func (db Database) PriceHistoryFindRange(
	ctx context.Context, gameID string, start time.Time, end time.Time,
) ([]model.PriceHistoryEntry, error) {
	oid, err := objectID(gameID)
	if err != nil {
		return nil, err
	}
	var docs []priceHistoryDocument
	opts := options.Find().SetSort(bson.M{"ts": -1})
	cur, err := db.Collection(CollectionPriceHistories).Find(ctx, bson.M{
		"game_id": oid,
		"ts": bson.M{
			"$gte": primitive.NewDateTimeFromTime(start),
			"$lte": primitive.NewDateTimeFromTime(end),
		},
	}, opts)
	if err != nil {
		return nil, errors.Wrapf(err,
			"error getting cursor to find PriceHistory for GameID: %s, start: %s, end: %s",
			gameID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err,
			"error getting all PriceHistory from cursor for GameID: %s, start: %s, end: %s",
			gameID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	es := make([]model.PriceHistoryEntry, 0, len(docs))
	for _, d := range docs {
		e, err := d.toModel()
		if err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	return es, nil
}
