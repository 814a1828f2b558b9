package database

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"steamtracker/internal/model"
)

func TestDecimal128RoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"59.99", "59.99"},
		{"0", "0"},
		{"100", "100"},
		{"39.999", "40"},
		{"0.1", "0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := toDecimal128(decimal.RequireFromString(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			got, err := fromDecimal128(v)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("round trip of %s = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromDecimal128Invalid(t *testing.T) {
	nan := primitive.NewDecimal128(0x7c00000000000000, 0)
	if _, err := fromDecimal128(nan); !errors.Is(err, model.ErrInvalidData) {
		t.Errorf("err = %v, want ErrInvalidData", err)
	}
}

func TestGameDocumentToModel(t *testing.T) {
	price, _ := primitive.ParseDecimal128("59.99")
	nan := primitive.NewDecimal128(0x7c00000000000000, 0)
	discount := func(d int) *int { return &d }
	oid := primitive.NewObjectID()

	tests := []struct {
		name    string
		doc     gameDocument
		wantErr bool
	}{
		{"priced", gameDocument{ID: oid, AppID: 620, LastKnownPrice: &price, DiscountPercent: discount(10)}, false},
		{"unpriced", gameDocument{ID: oid, AppID: 620}, false},
		{"zero app id", gameDocument{ID: oid, AppID: 0}, true},
		{"negative discount", gameDocument{ID: oid, AppID: 620, DiscountPercent: discount(-1)}, true},
		{"discount over 100", gameDocument{ID: oid, AppID: 620, DiscountPercent: discount(101)}, true},
		{"bad price", gameDocument{ID: oid, AppID: 620, LastKnownPrice: &nan}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.doc.toModel()
			if tt.wantErr {
				if !errors.Is(err, model.ErrInvalidData) {
					t.Errorf("err = %v, want ErrInvalidData", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if g.ID != oid.Hex() || g.AppID != 620 {
				t.Errorf("unexpected game: %+v", g)
			}
			if tt.doc.LastKnownPrice != nil && !g.LastKnownPrice.Equal(decimal.RequireFromString("59.99")) {
				t.Errorf("price = %s, want 59.99", g.LastKnownPrice)
			}
		})
	}
}

func TestAlertDocumentToModel(t *testing.T) {
	target, _ := primitive.ParseDecimal128("20.00")
	triggered := primitive.NewDateTimeFromTime(time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	a, err := alertDocument{
		ID:          primitive.NewObjectID(),
		UserID:      "u1",
		GameID:      primitive.NewObjectID(),
		AlertType:   "percentage_discount",
		TargetValue: target,
		IsActive:    true,
		TriggeredAt: &triggered,
	}.toModel()
	if err != nil {
		t.Fatal(err)
	}
	if a.Type != model.AlertPercentageDiscount || !a.TargetValue.Equal(decimal.NewFromInt(20)) {
		t.Errorf("unexpected alert: %+v", a)
	}
	if a.LastCheckedPrice != nil || a.TriggeredAt == nil || !a.Fired() {
		t.Errorf("unexpected alert state: %+v", a)
	}

	_, err = alertDocument{AlertType: "halving", TargetValue: target}.toModel()
	if !errors.Is(err, model.ErrInvalidData) {
		t.Errorf("err = %v, want ErrInvalidData", err)
	}
}

func TestDecodeAllSkipsInvalidRows(t *testing.T) {
	target, _ := primitive.ParseDecimal128("20.00")
	bad := primitive.NewObjectID()
	docs := []alertDocument{
		{ID: primitive.NewObjectID(), UserID: "u1", GameID: primitive.NewObjectID(), AlertType: "price_drop", TargetValue: target, IsActive: true},
		{ID: bad, UserID: "u2", GameID: primitive.NewObjectID(), AlertType: "halving", TargetValue: target, IsActive: true},
		{ID: primitive.NewObjectID(), UserID: "u3", GameID: primitive.NewObjectID(), AlertType: "percentage_discount", TargetValue: target, IsActive: true},
	}

	as, err := decodeAll(docs, alertDocument.toModel, "Alerts")
	if !errors.Is(err, model.ErrInvalidData) {
		t.Fatalf("err = %v, want ErrInvalidData", err)
	}
	if !strings.Contains(err.Error(), bad.Hex()) {
		t.Errorf("err = %v, want the invalid row id", err)
	}
	if len(as) != 2 || as[0].UserID != "u1" || as[1].UserID != "u3" {
		t.Errorf("decoded = %+v, want the two valid alerts", as)
	}

	as, err = decodeAll(docs[:1], alertDocument.toModel, "Alerts")
	if err != nil || len(as) != 1 {
		t.Errorf("decodeAll = %v, %v", as, err)
	}
}

func TestObjectID(t *testing.T) {
	if _, err := objectID("not-an-id"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	oid := primitive.NewObjectID()
	if got, err := objectID(oid.Hex()); err != nil || got != oid {
		t.Errorf("objectID(%s) = %s, %v", oid.Hex(), got.Hex(), err)
	}
}

func TestNotFound(t *testing.T) {
	if err := notFound(mongo.ErrNoDocuments); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	other := errors.New("boom")
	if err := notFound(other); err != other {
		t.Errorf("err = %v, want %v", err, other)
	}
}
