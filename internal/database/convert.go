package database

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"steamtracker/internal/model"
)

// Prices are stored as Decimal128 with two fractional digits.

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.StringFixed(2))
	return v, errors.Wrapf(err, "error converting %s to Decimal128", d)
}

func toDecimal128Ptr(d *decimal.Decimal) (*primitive.Decimal128, error) {
	if d == nil {
		return nil, nil
	}
	v, err := toDecimal128(*d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, errors.Wrapf(model.ErrInvalidData, "price %s: %v", v.String(), err)
	}
	return d, nil
}

func fromDecimal128Ptr(v *primitive.Decimal128) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	d, err := fromDecimal128(*v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func validDiscount(d *int) bool {
	return d == nil || (*d >= 0 && *d <= 100)
}

func fromDateTimePtr(dt *primitive.DateTime) *time.Time {
	if dt == nil {
		return nil
	}
	t := dt.Time().UTC()
	return &t
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return oid, errors.Wrapf(model.ErrNotFound, "invalid id: %s", id)
	}
	return oid, nil
}

// notFound maps the driver's empty result to model.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ErrNotFound
	}
	return err
}

// decodeAll converts every document that passes validation. Rows that fail
// are left out and reported together in an error wrapping
// model.ErrInvalidData, alongside the rows that decoded.
func decodeAll[D any, M any](docs []D, toModel func(D) (M, error), entity string) ([]M, error) {
	ms := make([]M, 0, len(docs))
	var skipped []string
	for _, d := range docs {
		m, err := toModel(d)
		if err != nil {
			skipped = append(skipped, err.Error())
			continue
		}
		ms = append(ms, m)
	}
	if len(skipped) > 0 {
		return ms, errors.Wrapf(model.ErrInvalidData, "skipped %d %s: [%s]", len(skipped), entity, strings.Join(skipped, "; "))
	}
	return ms, nil
}
