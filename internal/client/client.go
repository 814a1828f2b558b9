package client

import (
	"context"
	"io"
	"net/http"

	"github.com/go-redis/redis/v9"
	"golang.org/x/time/rate"
)

const (
	steamBaseURL   = "https://store.steampowered.com"
	mailjetBaseURL = "https://api.mailjet.com"
)

type Client struct {
	*http.Client
	// Redis caches Steam app details for lookups made with useCache, may be nil.
	Redis *redis.Client
	// SteamLimiter paces requests to the Steam storefront, may be nil.
	SteamLimiter     *rate.Limiter
	SteamBaseURL     string
	SteamCountryCode string
	SteamLanguage    string
	MailjetBaseURL   string
	MailjetAPIKey    string
	MailjetSecretKey string
	FromEmail        string
	FromName         string
	Logger           logger
}

type logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

func newRequest(ctx context.Context, method string, url string, body io.Reader) (*http.Request, error) {
	r, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	setDefaultRequestHeader(r)
	return r, nil
}

func setDefaultRequestHeader(r *http.Request) {
	r.Header.Set("User-Agent", "Mozilla/5.0")
	r.Header.Set("Accept", "application/json")
}

func orDefault(s string, def string) string {
	if s == "" {
		return def
	}
	return s
}
