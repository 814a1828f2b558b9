package configuration

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"

	"steamtracker/internal/logger"
	"steamtracker/internal/model"
)

type Config struct {
	ServerAddress          string            `json:"server_address"`
	DatabaseURI            string            `json:"database_uri"`
	DatabaseName           string            `json:"database_name"`
	RedisAddress           string            `json:"redis_address"`
	SyncInterval           time.Duration     `json:"sync_interval"`
	SyncWorkers            int               `json:"sync_workers"`
	FetchTimeout           time.Duration     `json:"fetch_timeout"`
	SteamCountryCode       string            `json:"steam_country_code"`
	SteamLanguage          string            `json:"steam_language"`
	SteamRequestsPerMinute int               `json:"steam_requests_per_minute"`
	NotifyCooldown         time.Duration     `json:"notify_cooldown"`
	AlertPolicy            model.AlertPolicy `json:"alert_policy"`
	MailjetAPIKey          string            `json:"-"`
	MailjetSecretKey       string            `json:"-"`
	FromEmail              string            `json:"from_email"`
	FromName               string            `json:"from_name"`
	LogLevel               logger.Level      `json:"log_level"`
	LogToFile              bool              `json:"log_to_file"`
	AuthSecretKey          jwk.Key           `json:"-"`
}

type tomlConfig struct {
	ServerAddress          string `toml:"server_address"`
	DatabaseURI            string `toml:"database_uri"`
	DatabaseName           string `toml:"database_name"`
	RedisAddress           string `toml:"redis_address"`
	SyncInterval           string `toml:"sync_interval"`
	SyncWorkers            int    `toml:"sync_workers"`
	FetchTimeout           string `toml:"fetch_timeout"`
	SteamCountryCode       string `toml:"steam_country_code"`
	SteamLanguage          string `toml:"steam_language"`
	SteamRequestsPerMinute int    `toml:"steam_requests_per_minute"`
	NotifyCooldown         string `toml:"notify_cooldown"`
	AlertPolicy            string `toml:"alert_policy"`
	MailjetAPIKey          string `toml:"mailjet_api_key"`
	MailjetSecretKey       string `toml:"mailjet_secret_key"`
	FromEmail              string `toml:"from_email"`
	FromName               string `toml:"from_name"`
	LogLevel               string `toml:"log_level"`
	LogToFile              bool   `toml:"log_to_file"`
	AuthSecretKey          string `toml:"auth_secret_key"`
}

const (
	minSyncInterval = 1 * time.Minute
	maxFetchTimeout = 2 * time.Minute
)

// GetConfig reads the TOML file at path. Secrets left empty in the file are
// taken from the environment, after loading envPath if it exists.
func GetConfig(path string, envPath string) (*Config, error) {
	var tc tomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, errors.Wrapf(err, "failed to decode toml file with path: %s", path)
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "failed to load env file with path: %s", envPath)
		}
	}
	return tc.toConfig()
}

func (tc tomlConfig) toConfig() (*Config, error) {
	fromEnv(&tc.MailjetAPIKey, "MAILJET_API_KEY")
	fromEnv(&tc.MailjetSecretKey, "MAILJET_SECRET_KEY")
	fromEnv(&tc.FromEmail, "FROM_EMAIL")
	fromEnv(&tc.AuthSecretKey, "AUTH_SECRET_KEY")

	if tc.ServerAddress == "" {
		tc.ServerAddress = "localhost:8888"
	}
	if tc.DatabaseURI == "" {
		tc.DatabaseURI = "mongodb://localhost:27017"
	}
	if tc.DatabaseName == "" {
		tc.DatabaseName = "steam_tracker_db"
	}
	if tc.SyncWorkers == 0 {
		tc.SyncWorkers = 1
	}
	if tc.SyncWorkers < 0 {
		return nil, errors.Errorf("sync_workers must be positive, got: %d", tc.SyncWorkers)
	}
	if tc.SteamCountryCode == "" {
		tc.SteamCountryCode = "us"
	}
	if tc.SteamLanguage == "" {
		tc.SteamLanguage = "en"
	}
	if tc.SteamRequestsPerMinute == 0 {
		tc.SteamRequestsPerMinute = 150
	}
	if tc.SteamRequestsPerMinute < 0 {
		return nil, errors.Errorf("steam_requests_per_minute must be positive, got: %d", tc.SteamRequestsPerMinute)
	}
	if tc.FromName == "" {
		tc.FromName = "SteamPriceTracker"
	}

	if tc.SyncInterval == "" {
		return nil, errors.New("sync_interval is not set")
	}
	syncInterval, err := time.ParseDuration(tc.SyncInterval)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse sync_interval: %s", tc.SyncInterval)
	}
	if syncInterval < minSyncInterval {
		return nil, errors.Errorf("sync_interval too short (%v), minimum interval: %v", syncInterval, minSyncInterval)
	}

	fetchTimeout, err := durationOrDefault(tc.FetchTimeout, 10*time.Second)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse fetch_timeout: %s", tc.FetchTimeout)
	}
	if fetchTimeout <= 0 || fetchTimeout > maxFetchTimeout {
		return nil, errors.Errorf("fetch_timeout out of range (%v), must be within (0, %v]", fetchTimeout, maxFetchTimeout)
	}

	notifyCooldown, err := durationOrDefault(tc.NotifyCooldown, 24*time.Hour)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse notify_cooldown: %s", tc.NotifyCooldown)
	}
	if notifyCooldown < 0 {
		return nil, errors.Errorf("notify_cooldown must not be negative, got: %v", notifyCooldown)
	}

	if tc.AlertPolicy == "" {
		tc.AlertPolicy = string(model.AlertPolicyRearm)
	}
	alertPolicy, err := model.ParseAlertPolicy(tc.AlertPolicy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse alert_policy")
	}

	if tc.LogLevel == "" {
		tc.LogLevel = logger.LevelInfo.String()
	}
	logLevel, err := logger.ParseLevel(tc.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse log_level")
	}

	if tc.MailjetAPIKey == "" || tc.MailjetSecretKey == "" {
		return nil, errors.New("mailjet_api_key and mailjet_secret_key must be set")
	}
	if tc.FromEmail == "" {
		return nil, errors.New("from_email is not set")
	}

	if tc.AuthSecretKey == "" {
		return nil, errors.New("auth_secret_key is not set")
	}
	authSecretKey, err := jwk.FromRaw([]byte(tc.AuthSecretKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create key from auth_secret_key")
	}

	return &Config{
		ServerAddress:          tc.ServerAddress,
		DatabaseURI:            tc.DatabaseURI,
		DatabaseName:           tc.DatabaseName,
		RedisAddress:           tc.RedisAddress,
		SyncInterval:           syncInterval,
		SyncWorkers:            tc.SyncWorkers,
		FetchTimeout:           fetchTimeout,
		SteamCountryCode:       tc.SteamCountryCode,
		SteamLanguage:          tc.SteamLanguage,
		SteamRequestsPerMinute: tc.SteamRequestsPerMinute,
		NotifyCooldown:         notifyCooldown,
		AlertPolicy:            alertPolicy,
		MailjetAPIKey:          tc.MailjetAPIKey,
		MailjetSecretKey:       tc.MailjetSecretKey,
		FromEmail:              tc.FromEmail,
		FromName:               tc.FromName,
		LogLevel:               logLevel,
		LogToFile:              tc.LogToFile,
		AuthSecretKey:          authSecretKey,
	}, nil
}

func fromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func durationOrDefault(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
