package model

import "github.com/shopspring/decimal"

type Game struct {
	ID              string           `json:"id"`
	AppID           int              `json:"app_id"`
	Name            string           `json:"name"`
	Currency        string           `json:"currency,omitempty"`
	IsFree          bool             `json:"is_free"`
	LastKnownPrice  *decimal.Decimal `json:"last_known_price"`
	DiscountPercent *int             `json:"discount_percent"`
}

// PriceInfo is a live price observation from the price source.
// Prices are in major currency units.
type PriceInfo struct {
	InitialPrice    decimal.Decimal `json:"initial_price"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	DiscountPercent int             `json:"discount_percent"`
	Currency        string          `json:"currency"`
}

// CurrentPrice returns the cached price and discount, ok is false when the
// game has no known price yet.
func (g Game) CurrentPrice() (price decimal.Decimal, discount int, ok bool) {
	if g.LastKnownPrice == nil {
		return decimal.Zero, 0, false
	}
	if g.DiscountPercent != nil {
		discount = *g.DiscountPercent
	}
	return *g.LastKnownPrice, discount, true
}

// MatchesEntry reports whether the cached price fields agree with a history entry.
func (g Game) MatchesEntry(e PriceHistoryEntry) bool {
	if g.LastKnownPrice == nil || !g.LastKnownPrice.Equal(e.FinalPrice) {
		return false
	}
	return IntPtrEqual(g.DiscountPercent, e.DiscountPercent)
}

func IntPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func IntPtr(i int) *int {
	return &i
}

func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
