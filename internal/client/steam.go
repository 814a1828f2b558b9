package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"steamtracker/internal/misc"
	"steamtracker/internal/model"
)

var (
	// ErrSteamUnavailable is a transient failure, the request can be retried later.
	ErrSteamUnavailable = errors.New("Steam unavailable")
	ErrSteamAppNotFound = errors.New("Steam app not found")
	ErrSteamInvalidData = errors.New("Steam invalid data")
)

const steamCacheTTL = 1 * time.Hour

type SteamApp struct {
	AppID  int    `json:"app_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	IsFree bool   `json:"is_free"`
	// Price is nil for free or unpurchasable apps.
	Price *model.PriceInfo `json:"price"`
}

type steamAppDetails struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type steamAppData struct {
	Type          string              `json:"type"`
	Name          string              `json:"name"`
	SteamAppID    int                 `json:"steam_appid"`
	IsFree        bool                `json:"is_free"`
	PriceOverview *steamPriceOverview `json:"price_overview"`
}

type steamPriceOverview struct {
	Currency        string `json:"currency"`
	Initial         int64  `json:"initial"`
	Final           int64  `json:"final"`
	DiscountPercent int    `json:"discount_percent"`
}

// toPriceInfo converts minor currency units to major units.
func (p steamPriceOverview) toPriceInfo() (model.PriceInfo, error) {
	if p.Initial < 0 || p.Final < 0 {
		return model.PriceInfo{}, errors.Errorf("negative price, initial: %d, final: %d", p.Initial, p.Final)
	}
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return model.PriceInfo{}, errors.Errorf("discount_percent out of range: %d", p.DiscountPercent)
	}
	return model.PriceInfo{
		InitialPrice:    decimal.New(p.Initial, -2),
		FinalPrice:      decimal.New(p.Final, -2),
		DiscountPercent: p.DiscountPercent,
		Currency:        p.Currency,
	}, nil
}

// SteamGetPrice fetches the live price of appID. ok is false when Steam lists
// no price for the app (free or not purchasable).
func (c Client) SteamGetPrice(ctx context.Context, appID int) (p model.PriceInfo, ok bool, err error) {
	app, err := c.SteamGetApp(ctx, appID, false)
	if err != nil {
		return p, false, err
	}
	if app.Price == nil {
		return p, false, nil
	}
	return *app.Price, true, nil
}

func (c Client) SteamGetApp(ctx context.Context, appID int, useCache bool) (SteamApp, error) {
	var app SteamApp
	q := url.Values{}
	q.Set("appids", strconv.Itoa(appID))
	q.Set("cc", orDefault(c.SteamCountryCode, "us"))
	q.Set("l", orDefault(c.SteamLanguage, "en"))
	apiURL := orDefault(c.SteamBaseURL, steamBaseURL) + "/api/appdetails?" + q.Encode()

	cacheKey := "SGA-" + apiURL
	if useCache && c.Redis != nil {
		cached, err := c.Redis.Get(ctx, cacheKey).Result()
		if err == nil {
			if err = json.Unmarshal([]byte(cached), &app); err == nil {
				c.Logger.Debugf("SteamGetApp: Cache found, key: %s", cacheKey)
				return app, nil
			}
			c.Logger.Errorf("SteamGetApp: Error unmarshalling cache, key: %s, err: %v", cacheKey, err)
		} else if err != redis.Nil {
			c.Logger.Errorf("SteamGetApp: Error getting Redis cache with key: %s, err: %v", cacheKey, err)
		}
	}

	if c.SteamLimiter != nil {
		if err := c.SteamLimiter.Wait(ctx); err != nil {
			return app, errors.Wrapf(ErrSteamUnavailable, "rate limit wait for AppID: %d, err: %v", appID, err)
		}
	}

	req, err := newRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return app, errors.Wrapf(err, "error creating request from URL: %s", apiURL)
	}
	resp, err := c.Do(req)
	if err != nil {
		return app, errors.Wrapf(ErrSteamUnavailable, "error doing request to %s, err: %v", apiURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 1024*1024))
	if err != nil {
		return app, errors.Wrapf(ErrSteamUnavailable,
			"error reading appdetails response body, status: %s, AppID: %d, err: %v", resp.Status, appID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return app, errors.Wrapf(ErrSteamUnavailable, "appdetails returned status: %s, AppID: %d, body:\n%s",
			resp.Status, appID, misc.BytesLimit(body, 500))
	}

	app, err = parseSteamAppDetails(appID, body)
	if err != nil {
		return app, err
	}

	if appJSON, err := json.Marshal(app); err != nil {
		c.Logger.Errorf("SteamGetApp: Error marshalling SteamApp to cache, key: %s, err: %v", cacheKey, err)
	} else if c.Redis != nil {
		if err = c.Redis.Set(ctx, cacheKey, appJSON, steamCacheTTL).Err(); err != nil {
			c.Logger.Errorf("SteamGetApp: Error caching SteamApp, key: %s, err: %v", cacheKey, err)
		}
	}
	return app, nil
}

func parseSteamAppDetails(appID int, body []byte) (SteamApp, error) {
	var app SteamApp
	var details map[string]steamAppDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return app, errors.Wrapf(ErrSteamInvalidData, "error unmarshalling appdetails, AppID: %d, body:\n%s, err: %v",
			appID, misc.BytesLimit(body, 500), err)
	}
	d, ok := details[strconv.Itoa(appID)]
	if !ok {
		return app, errors.Wrapf(ErrSteamInvalidData, "appdetails missing AppID: %d, body:\n%s",
			appID, misc.BytesLimit(body, 500))
	}
	if !d.Success {
		return app, errors.Wrapf(ErrSteamAppNotFound, "AppID: %d", appID)
	}

	var data steamAppData
	if err := json.Unmarshal(d.Data, &data); err != nil {
		return app, errors.Wrapf(ErrSteamInvalidData, "error unmarshalling appdetails data, AppID: %d, err: %v", appID, err)
	}
	if data.Name == "" {
		return app, errors.Wrapf(ErrSteamInvalidData, "appdetails has no name, AppID: %d", appID)
	}
	app = SteamApp{
		AppID:  appID,
		Name:   data.Name,
		Type:   data.Type,
		IsFree: data.IsFree,
	}
	if data.PriceOverview != nil {
		p, err := data.PriceOverview.toPriceInfo()
		if err != nil {
			return app, errors.Wrapf(ErrSteamInvalidData, "AppID: %d, %v", appID, err)
		}
		app.Price = &p
	}
	return app, nil
}

func (a SteamApp) String() string {
	if a.Price == nil {
		return fmt.Sprintf("%s (%d, no price)", a.Name, a.AppID)
	}
	return fmt.Sprintf("%s (%d, %s %s, %d%% off)", a.Name, a.AppID, a.Price.FinalPrice.StringFixed(2), a.Price.Currency, a.Price.DiscountPercent)
}
