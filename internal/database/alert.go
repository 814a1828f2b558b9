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

type AlertCreateResult int

const (
	AlertCreated AlertCreateResult = iota
	AlertAlreadyExists
)

func (r AlertCreateResult) String() string {
	if r == AlertAlreadyExists {
		return "already_exists"
	}
	return "created"
}

type alertDocument struct {
	ID               primitive.ObjectID    `bson:"_id,omitempty"`
	UserID           string                `bson:"user_id"`
	GameID           primitive.ObjectID    `bson:"game_id"`
	AlertType        string                `bson:"alert_type"`
	TargetValue      primitive.Decimal128  `bson:"target_value"`
	IsActive         bool                  `bson:"is_active"`
	LastCheckedPrice *primitive.Decimal128 `bson:"last_checked_price"`
	TriggeredAt      *primitive.DateTime   `bson:"triggered_at"`
	CreatedAt        primitive.DateTime    `bson:"created_at"`
	UpdatedAt        primitive.DateTime    `bson:"updated_at"`
}

func (d alertDocument) toModel() (model.Alert, error) {
	t, err := model.ParseAlertType(d.AlertType)
	if err != nil {
		return model.Alert{}, errors.Wrapf(model.ErrInvalidData, "Alert %s: %v", d.ID.Hex(), err)
	}
	target, err := fromDecimal128(d.TargetValue)
	if err != nil {
		return model.Alert{}, errors.WithMessagef(err, "Alert %s", d.ID.Hex())
	}
	lastChecked, err := fromDecimal128Ptr(d.LastCheckedPrice)
	if err != nil {
		return model.Alert{}, errors.WithMessagef(err, "Alert %s", d.ID.Hex())
	}
	return model.Alert{
		ID:               d.ID.Hex(),
		UserID:           d.UserID,
		GameID:           d.GameID.Hex(),
		Type:             t,
		TargetValue:      target,
		IsActive:         d.IsActive,
		LastCheckedPrice: lastChecked,
		TriggeredAt:      fromDateTimePtr(d.TriggeredAt),
		CreatedAt:        d.CreatedAt.Time().UTC(),
	}, nil
}

// AlertInsert creates an active alert unless the user already has an active
// alert for the same game.
func (db Database) AlertInsert(ctx context.Context, a model.Alert) (model.Alert, AlertCreateResult, error) {
	gameOID, err := objectID(a.GameID)
	if err != nil {
		return model.Alert{}, AlertCreated, err
	}
	target, err := toDecimal128(a.TargetValue)
	if err != nil {
		return model.Alert{}, AlertCreated, err
	}
	coll := db.Collection(CollectionPriceAlerts)

	n, err := coll.CountDocuments(ctx, bson.M{"user_id": a.UserID, "game_id": gameOID, "is_active": true})
	if err != nil {
		return model.Alert{}, AlertCreated, errors.Wrapf(err,
			"error counting active Alerts for UserID: %s, GameID: %s", a.UserID, a.GameID)
	}
	if n > 0 {
		return model.Alert{}, AlertAlreadyExists, nil
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	d := alertDocument{
		UserID:      a.UserID,
		GameID:      gameOID,
		AlertType:   string(a.Type),
		TargetValue: target,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r, err := coll.InsertOne(ctx, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Alert{}, AlertAlreadyExists, nil
		}
		return model.Alert{}, AlertCreated, errors.Wrapf(err,
			"error inserting Alert for UserID: %s, GameID: %s", a.UserID, a.GameID)
	}
	d.ID = r.InsertedID.(primitive.ObjectID)
	created, err := d.toModel()
	return created, AlertCreated, err
}

func (db Database) AlertsFindActive(ctx context.Context) ([]model.Alert, error) {
	return db.alertsFind(ctx, bson.M{"is_active": true})
}

func (db Database) AlertsFindByUser(ctx context.Context, userID string) ([]model.Alert, error) {
	return db.alertsFind(ctx, bson.M{"user_id": userID})
}

func (db Database) alertsFind(ctx context.Context, filter bson.M) ([]model.Alert, error) {
	var docs []alertDocument
	cur, err := db.Collection(CollectionPriceAlerts).Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find Alerts, filter: %v", filter)
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "error getting Alerts from cursor, filter: %v", filter)
	}
	return decodeAll(docs, alertDocument.toModel, "Alerts")
}

func (db Database) AlertCheckedPriceUpdate(ctx context.Context, alertID string, price decimal.Decimal) error {
	p, err := toDecimal128(price)
	if err != nil {
		return err
	}
	return db.alertUpdate(ctx, alertID, bson.M{"last_checked_price": p})
}

// AlertTrigger records a delivered notification. deactivate clears is_active.
func (db Database) AlertTrigger(
	ctx context.Context, alertID string, price decimal.Decimal, at time.Time, deactivate bool,
) error {
	p, err := toDecimal128(price)
	if err != nil {
		return err
	}
	set := bson.M{
		"last_checked_price": p,
		"triggered_at":       primitive.NewDateTimeFromTime(at),
	}
	if deactivate {
		set["is_active"] = false
	}
	return db.alertUpdate(ctx, alertID, set)
}

func (db Database) AlertTriggerReset(ctx context.Context, alertID string) error {
	return db.alertUpdate(ctx, alertID, bson.M{"triggered_at": nil})
}

func (db Database) alertUpdate(ctx context.Context, alertID string, set bson.M) error {
	oid, err := objectID(alertID)
	if err != nil {
		return err
	}
	set["updated_at"] = primitive.NewDateTimeFromTime(time.Now())
	res, err := db.Collection(CollectionPriceAlerts).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrapf(err, "error updating Alert, AlertID: %s, set: %v", alertID, set)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(model.ErrNotFound, "Alert not found when updating, AlertID: %s", alertID)
	}
	return nil
}

// AlertSetActive toggles an alert owned by userID. Activating re-arms the alert
// and returns AlertAlreadyExists when another active alert exists for the same game.
func (db Database) AlertSetActive(ctx context.Context, alertID string, userID string, active bool) (AlertCreateResult, error) {
	oid, err := objectID(alertID)
	if err != nil {
		return AlertCreated, err
	}
	set := bson.M{
		"is_active":  active,
		"updated_at": primitive.NewDateTimeFromTime(time.Now()),
	}
	if active {
		set["triggered_at"] = nil
	}
	res, err := db.Collection(CollectionPriceAlerts).UpdateOne(ctx, bson.M{"_id": oid, "user_id": userID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return AlertAlreadyExists, nil
		}
		return AlertCreated, errors.Wrapf(err, "error toggling Alert, AlertID: %s, UserID: %s", alertID, userID)
	}
	if res.MatchedCount == 0 {
		return AlertCreated, errors.Wrapf(model.ErrNotFound, "Alert not found, AlertID: %s, UserID: %s", alertID, userID)
	}
	return AlertCreated, nil
}

func (db Database) AlertDelete(ctx context.Context, alertID string, userID string) error {
	oid, err := objectID(alertID)
	if err != nil {
		return err
	}
	res, err := db.Collection(CollectionPriceAlerts).DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return errors.Wrapf(err, "error deleting Alert, AlertID: %s, UserID: %s", alertID, userID)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(model.ErrNotFound, "Alert not found, AlertID: %s, UserID: %s", alertID, userID)
	}
	return nil
}
