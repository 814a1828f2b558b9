package model

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type AlertType string

const (
	AlertPercentageDiscount AlertType = "percentage_discount"
	AlertPriceDrop          AlertType = "price_drop"
)

func ParseAlertType(s string) (AlertType, error) {
	switch t := AlertType(strings.ToLower(s)); t {
	case AlertPercentageDiscount, AlertPriceDrop:
		return t, nil
	}
	return "", errors.Errorf("invalid alert type: %s", s)
}

type Alert struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	GameID           string           `json:"game_id"`
	Type             AlertType        `json:"alert_type"`
	TargetValue      decimal.Decimal  `json:"target_value"`
	IsActive         bool             `json:"is_active"`
	LastCheckedPrice *decimal.Decimal `json:"last_checked_price"`
	TriggeredAt      *time.Time       `json:"triggered_at"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Fired reports whether the alert already fired and has not been re-armed.
func (a Alert) Fired() bool {
	return a.TriggeredAt != nil
}

// AlertPolicy decides what happens to an alert after its notification is sent.
type AlertPolicy string

const (
	// AlertPolicyOneShot deactivates an alert once it has been notified.
	AlertPolicyOneShot AlertPolicy = "one_shot"
	// AlertPolicyRearm keeps a notified alert active and clears triggered_at
	// once its discount condition stops holding.
	AlertPolicyRearm AlertPolicy = "rearm"
)

func ParseAlertPolicy(s string) (AlertPolicy, error) {
	switch p := AlertPolicy(strings.ToLower(s)); p {
	case AlertPolicyOneShot, AlertPolicyRearm:
		return p, nil
	}
	return "", errors.Errorf("invalid alert policy: %s", s)
}
