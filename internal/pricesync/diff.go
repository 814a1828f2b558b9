package pricesync

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"steamtracker/internal/client"
	"steamtracker/internal/misc"
	"steamtracker/internal/model"
)

// Diff is the outcome of comparing a fetched price with a game's latest
// history entry. Entry is only set when Changed.
type Diff struct {
	Changed bool
	Entry   model.PriceHistoryEntry
}

// EvaluateDiff compares fetched against latest, which is nil when the game has
// no history yet. The catalog fields of game are never consulted.
func EvaluateDiff(game model.Game, latest *model.PriceHistoryEntry, fetched model.PriceInfo, now time.Time) Diff {
	if latest != nil &&
		latest.FinalPrice.Equal(fetched.FinalPrice) &&
		model.IntPtrEqual(latest.DiscountPercent, model.IntPtr(fetched.DiscountPercent)) {
		return Diff{}
	}
	return Diff{
		Changed: true,
		Entry:   model.NewPriceHistoryEntry(game.ID, fetched, now),
	}
}

type gameOutcome int

const (
	outcomeNotStarted gameOutcome = iota
	outcomeFailed
	outcomeNoPrice
	outcomeUnchanged
	outcomeChanged
)

type gameResult struct {
	outcome gameOutcome
	// healed is set when an unchanged game had its catalog row rewritten from history.
	healed bool
	drop   *priceDrop
	err    error
}

// priceDrop is a recorded change to a lower, discounted price.
type priceDrop struct {
	game     model.Game
	price    model.PriceInfo
	previous model.PriceHistoryEntry
}

func (s *Syncer) syncGame(ctx context.Context, game model.Game) gameResult {
	name := misc.StringLimit(game.Name, 45)

	// In-flight games run to completion on shutdown, bounded by the timeouts.
	detached := context.WithoutCancel(ctx)
	fetchCtx, cancelFetch := context.WithTimeout(detached, s.fetchTimeout())
	fetched, ok, err := s.Source.SteamGetPrice(fetchCtx, game.AppID)
	cancelFetch()
	if errors.Is(err, client.ErrSteamAppNotFound) {
		s.Logger.Warnf("syncGame: Game: %s, AppID: %d no longer listed on Steam, skipping", name, game.AppID)
		return gameResult{outcome: outcomeNoPrice}
	}
	if err != nil {
		s.Logger.Errorf("syncGame: Error fetching price for Game: %s, AppID: %d, err: %v", name, game.AppID, err)
		return gameResult{outcome: outcomeFailed, err: err}
	}
	if !ok {
		s.Logger.Debugf("syncGame: No price for Game: %s, AppID: %d, skipping", name, game.AppID)
		return gameResult{outcome: outcomeNoPrice}
	}

	storeCtx, cancelStore := context.WithTimeout(detached, s.storeTimeout())
	defer cancelStore()

	var latest *model.PriceHistoryEntry
	e, err := s.Store.PriceHistoryFindLatest(storeCtx, game.ID)
	switch {
	case err == nil:
		latest = &e
	case errors.Is(err, model.ErrNotFound):
	default:
		s.Logger.Errorf("syncGame: Error finding latest PriceHistory for Game: %s, AppID: %d, err: %v", name, game.AppID, err)
		return gameResult{outcome: outcomeFailed, err: err}
	}

	diff := EvaluateDiff(game, latest, fetched, s.now())
	if !diff.Changed {
		res := gameResult{outcome: outcomeUnchanged}
		if !game.MatchesEntry(*latest) {
			s.Logger.Infof("syncGame: Catalog out of date for Game: %s, AppID: %d, restoring from PriceHistory", name, game.AppID)
			if err = s.Store.GamePriceUpdate(storeCtx, game.ID, latest.FinalPrice, latest.DiscountPercent, latest.Currency); err != nil {
				s.Logger.Errorf("syncGame: Error restoring catalog price for Game: %s, AppID: %d, err: %v", name, game.AppID, err)
			} else {
				res.healed = true
			}
		}
		s.Logger.Debugf("syncGame: No price change for Game: %s, AppID: %d", name, game.AppID)
		return res
	}

	if _, err = s.Store.PriceHistoryInsert(storeCtx, diff.Entry); err != nil {
		s.Logger.Errorf("syncGame: Error inserting PriceHistory for Game: %s, AppID: %d, err: %v", name, game.AppID, err)
		return gameResult{outcome: outcomeFailed, err: err}
	}
	// The catalog is a cache of history, a failed write is repaired next cycle.
	if err = s.Store.GamePriceUpdate(storeCtx, game.ID, fetched.FinalPrice, model.IntPtr(fetched.DiscountPercent), fetched.Currency); err != nil {
		s.Logger.Errorf("syncGame: Error updating catalog price for Game: %s, AppID: %d, err: %v", name, game.AppID, err)
	}
	s.Logger.Infof("syncGame: Updated Game: %s, AppID: %d to %s with %d%% off",
		name, game.AppID, formatPrice(fetched.FinalPrice, fetched.Currency), fetched.DiscountPercent)

	res := gameResult{outcome: outcomeChanged}
	if latest != nil && fetched.DiscountPercent > 0 && fetched.FinalPrice.LessThan(latest.FinalPrice) {
		res.drop = &priceDrop{game: game, price: fetched, previous: *latest}
	}
	return res
}
