package server

import (
	"context"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"steamtracker/internal/client"
	"steamtracker/internal/database"
	"steamtracker/internal/model"
	"steamtracker/internal/pricesync"
)

type Server struct {
	DB            store
	Client        steamClient
	Syncer        cycleRunner
	Logger        logger
	AuthSecretKey jwk.Key
}

type store interface {
	UserProfileFind(ctx context.Context, userID string) (model.UserProfile, error)

	GameFindByAppID(ctx context.Context, appID int) (model.Game, error)
	GameInsert(ctx context.Context, g model.Game) (model.Game, error)
	GamesFindByAppIDs(ctx context.Context, appIDs []int) ([]model.Game, error)
	PriceHistoryFindRange(ctx context.Context, gameID string, start time.Time, end time.Time) ([]model.PriceHistoryEntry, error)

	UserGameTrack(ctx context.Context, userID string, appID int) (database.TrackResult, error)
	UserGameUntrack(ctx context.Context, userID string, appID int) error
	UserGamesFindByUser(ctx context.Context, userID string) ([]model.UserGameTracking, error)

	AlertInsert(ctx context.Context, a model.Alert) (model.Alert, database.AlertCreateResult, error)
	AlertsFindByUser(ctx context.Context, userID string) ([]model.Alert, error)
	AlertSetActive(ctx context.Context, alertID string, userID string, active bool) (database.AlertCreateResult, error)
	AlertDelete(ctx context.Context, alertID string, userID string) error
}

type steamClient interface {
	SteamGetApp(ctx context.Context, appID int, useCache bool) (client.SteamApp, error)
}

type cycleRunner interface {
	RunCycle(ctx context.Context) (pricesync.CycleReport, error)
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Tracef(format string, v ...any)
}
