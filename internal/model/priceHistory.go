package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceHistoryEntry struct {
	ID              string          `json:"-"`
	GameID          string          `json:"-"`
	Timestamp       time.Time       `json:"ts"`
	InitialPrice    decimal.Decimal `json:"initial_price"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	DiscountPercent *int            `json:"discount_percent"`
	Currency        string          `json:"currency,omitempty"`
}

func NewPriceHistoryEntry(gameID string, p PriceInfo, ts time.Time) PriceHistoryEntry {
	return PriceHistoryEntry{
		GameID:          gameID,
		Timestamp:       ts,
		InitialPrice:    p.InitialPrice,
		FinalPrice:      p.FinalPrice,
		DiscountPercent: IntPtr(p.DiscountPercent),
		Currency:        p.Currency,
	}
}
