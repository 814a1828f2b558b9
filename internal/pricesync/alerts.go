package pricesync

import (
	"context"

	"github.com/shopspring/decimal"

	"steamtracker/internal/model"
)

// AlertFires reports whether an armed alert fires for a game currently priced
// at price with the given discount. Nothing fires without an active discount.
func AlertFires(a model.Alert, price decimal.Decimal, discount int) bool {
	if discount <= 0 {
		return false
	}
	switch a.Type {
	case model.AlertPercentageDiscount:
		return decimal.NewFromInt(int64(discount)).GreaterThanOrEqual(a.TargetValue)
	case model.AlertPriceDrop:
		return a.LastCheckedPrice != nil && price.LessThan(*a.LastCheckedPrice)
	}
	return false
}

// conditionHolds reports whether the sale that fired a alert is still on.
func conditionHolds(a model.Alert, discount int) bool {
	if discount <= 0 {
		return false
	}
	if a.Type == model.AlertPercentageDiscount {
		return decimal.NewFromInt(int64(discount)).GreaterThanOrEqual(a.TargetValue)
	}
	return true
}

// firing is an alert waiting for its notification to be delivered.
type firing struct {
	alert    model.Alert
	game     model.Game
	price    decimal.Decimal
	discount int
}

// evaluateAlerts checks every active alert against the catalog and returns
// the ones that fire. Non-firing alerts have their baseline price advanced.
func (s *Syncer) evaluateAlerts(ctx context.Context, games map[string]model.Game, report *CycleReport) ([]firing, error) {
	alerts, err := s.Store.AlertsFindActive(ctx)
	if err = s.skipInvalid("evaluateAlerts", err); err != nil {
		return nil, err
	}
	report.AlertsChecked = len(alerts)

	var fired []firing
	for _, a := range alerts {
		g, ok := games[a.GameID]
		if !ok {
			s.Logger.Warnf("evaluateAlerts: Game not in catalog for AlertID: %s, GameID: %s", a.ID, a.GameID)
			continue
		}
		price, discount, ok := g.CurrentPrice()
		if !ok {
			continue
		}

		if a.Fired() {
			if !conditionHolds(a, discount) {
				if err = s.Store.AlertTriggerReset(ctx, a.ID); err != nil {
					s.Logger.Errorf("evaluateAlerts: Error re-arming AlertID: %s, err: %v", a.ID, err)
				} else {
					s.Logger.Debugf("evaluateAlerts: Re-armed AlertID: %s, AppID: %d", a.ID, g.AppID)
					report.AlertsRearmed++
				}
			}
			s.advanceBaseline(ctx, a, price)
			continue
		}

		if AlertFires(a, price, discount) {
			fired = append(fired, firing{alert: a, game: g, price: price, discount: discount})
			continue
		}
		s.advanceBaseline(ctx, a, price)
	}
	return fired, nil
}

func (s *Syncer) advanceBaseline(ctx context.Context, a model.Alert, price decimal.Decimal) {
	if a.LastCheckedPrice != nil && a.LastCheckedPrice.Equal(price) {
		return
	}
	if err := s.Store.AlertCheckedPriceUpdate(ctx, a.ID, price); err != nil {
		s.Logger.Errorf("advanceBaseline: Error updating last checked price for AlertID: %s, err: %v", a.ID, err)
	}
}
