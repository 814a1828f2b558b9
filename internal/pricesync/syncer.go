package pricesync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"steamtracker/internal/model"
)

const (
	defaultFetchTimeout   = 10 * time.Second
	defaultStoreTimeout   = 30 * time.Second
	defaultNotifyCooldown = 24 * time.Hour
)

type Config struct {
	// Workers bounds the number of games synced concurrently, 1 when unset.
	Workers      int
	FetchTimeout time.Duration
	// StoreTimeout bounds the store writes of a single game.
	StoreTimeout   time.Duration
	NotifyCooldown time.Duration
	AlertPolicy    model.AlertPolicy
}

// Syncer runs sync cycles. At most one cycle runs at a time.
type Syncer struct {
	Store    Store
	Source   PriceSource
	Notifier Notifier
	Logger   logger
	Config   Config
	// Now is used for history timestamps and notification times, time.Now when nil.
	Now func() time.Time

	cycleMu sync.Mutex
}

type CycleReport struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Games      int `json:"games"`
	Changed    int `json:"changed"`
	Unchanged  int `json:"unchanged"`
	NoPrice    int `json:"no_price"`
	Failed     int `json:"failed"`
	Healed     int `json:"healed"`
	NotStarted int `json:"not_started"`

	AlertsChecked int `json:"alerts_checked"`
	AlertsFired   int `json:"alerts_fired"`
	AlertsRearmed int `json:"alerts_rearmed"`

	WatchlistNotified  int `json:"watchlist_notified"`
	WatchlistThrottled int `json:"watchlist_throttled"`
	EmailsSent         int `json:"emails_sent"`
	EmailsFailed       int `json:"emails_failed"`
}

// RunCycle runs one full sync cycle, waiting for a running cycle to finish first.
func (s *Syncer) RunCycle(ctx context.Context) (CycleReport, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	return s.runCycle(ctx)
}

// SyncInInterval runs a cycle on every tick until ctx is done. Ticks that
// arrive while a cycle is still running are skipped.
func (s *Syncer) SyncInInterval(ctx context.Context, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			s.Logger.Infof("SyncInInterval: Stopping, %v", ctx.Err())
			return
		case <-ticker.C:
		}
		if !s.cycleMu.TryLock() {
			s.Logger.Warnf("SyncInInterval: Previous cycle still running, skipping tick")
			continue
		}
		_, err := s.runCycle(ctx)
		s.cycleMu.Unlock()
		if err != nil {
			s.Logger.Errorf("SyncInInterval: Cycle failed, err: %v", err)
		}
	}
}

func (s *Syncer) runCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{CycleID: uuid.NewString(), StartedAt: s.now()}
	s.Logger.Infof("runCycle: Starting cycle %s", report.CycleID)

	games, err := s.Store.GamesFindAll(ctx)
	if err = s.skipInvalid("runCycle", err); err != nil {
		return report, errors.Wrapf(err, "error reading Game catalog, cycle: %s", report.CycleID)
	}
	report.Games = len(games)

	results := s.syncGames(ctx, games)
	var drops []priceDrop
	for _, r := range results {
		switch r.outcome {
		case outcomeChanged:
			report.Changed++
		case outcomeUnchanged:
			report.Unchanged++
		case outcomeNoPrice:
			report.NoPrice++
		case outcomeFailed:
			report.Failed++
		case outcomeNotStarted:
			report.NotStarted++
		}
		if r.healed {
			report.Healed++
		}
		if r.drop != nil {
			drops = append(drops, *r.drop)
		}
	}
	if err = ctx.Err(); err != nil {
		report.FinishedAt = s.now()
		return report, errors.Wrapf(err, "cycle %s interrupted after %d/%d games", report.CycleID,
			report.Games-report.NotStarted, report.Games)
	}

	s.notifyWatchlist(ctx, drops, &report)

	// Alerts see the catalog as it stands after this cycle's updates.
	games, err = s.Store.GamesFindAll(ctx)
	if err = s.skipInvalid("runCycle", err); err != nil {
		report.FinishedAt = s.now()
		return report, errors.Wrapf(err, "error reading Game catalog for alerts, cycle: %s", report.CycleID)
	}
	byID := make(map[string]model.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}
	fired, err := s.evaluateAlerts(ctx, byID, &report)
	if err != nil {
		report.FinishedAt = s.now()
		return report, errors.Wrapf(err, "error evaluating alerts, cycle: %s", report.CycleID)
	}
	s.dispatchAlerts(ctx, fired, &report)

	report.FinishedAt = s.now()
	s.Logger.Infof(
		"runCycle: Finished cycle %s in %s, games: %d, changed: %d, failed: %d, alerts fired: %d, emails sent: %d",
		report.CycleID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		report.Games, report.Changed, report.Failed, report.AlertsFired, report.EmailsSent,
	)
	return report, nil
}

// skipInvalid accepts a partial read where the store left out rows that
// failed validation.
func (s *Syncer) skipInvalid(fn string, err error) error {
	if errors.Is(err, model.ErrInvalidData) {
		s.Logger.Warnf("%s: Skipping invalid rows, err: %v", fn, err)
		return nil
	}
	return err
}

// syncGames syncs every game with bounded parallelism. Games not yet started
// when ctx is done are left untouched.
func (s *Syncer) syncGames(ctx context.Context, games []model.Game) []gameResult {
	results := make([]gameResult, len(games))
	workers := s.Config.Workers
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range games {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = s.syncGame(ctx, games[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) fetchTimeout() time.Duration {
	if s.Config.FetchTimeout > 0 {
		return s.Config.FetchTimeout
	}
	return defaultFetchTimeout
}

func (s *Syncer) storeTimeout() time.Duration {
	if s.Config.StoreTimeout > 0 {
		return s.Config.StoreTimeout
	}
	return defaultStoreTimeout
}

func (s *Syncer) notifyCooldown() time.Duration {
	if s.Config.NotifyCooldown > 0 {
		return s.Config.NotifyCooldown
	}
	return defaultNotifyCooldown
}
