package pricesync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"steamtracker/internal/client"
	"steamtracker/internal/model"
)

// Catalog holds one row per tracked game with its denormalized current price.
type Catalog interface {
	GamesFindAll(ctx context.Context) ([]model.Game, error)
	GamePriceUpdate(ctx context.Context, gameID string, price decimal.Decimal, discountPercent *int, currency string) error
}

// History is the append-only price ledger. PriceHistoryFindLatest returns an
// error wrapping model.ErrNotFound when a game has no entry yet.
type History interface {
	PriceHistoryFindLatest(ctx context.Context, gameID string) (model.PriceHistoryEntry, error)
	PriceHistoryInsert(ctx context.Context, e model.PriceHistoryEntry) (string, error)
}

type AlertStore interface {
	AlertsFindActive(ctx context.Context) ([]model.Alert, error)
	AlertCheckedPriceUpdate(ctx context.Context, alertID string, price decimal.Decimal) error
	AlertTrigger(ctx context.Context, alertID string, price decimal.Decimal, at time.Time, deactivate bool) error
	AlertTriggerReset(ctx context.Context, alertID string) error
}

type TrackingStore interface {
	UserGamesFindByApp(ctx context.Context, appID int) ([]model.UserGameTracking, error)
	UserGameNotifiedUpdate(ctx context.Context, userID string, appID int, at time.Time) error
}

type ProfileStore interface {
	UserProfileEmails(ctx context.Context, userID string) ([]string, error)
}

type Store interface {
	Catalog
	History
	AlertStore
	TrackingStore
	ProfileStore
}

// PriceSource returns ok=false when the game currently has no price.
type PriceSource interface {
	SteamGetPrice(ctx context.Context, appID int) (p model.PriceInfo, ok bool, err error)
}

type Notifier interface {
	MailjetSend(ctx context.Context, e client.Email) (int, client.MailjetSendResponse, error)
}

type logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}
