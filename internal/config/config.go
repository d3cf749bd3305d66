package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"menusync/internal/hours"
	"menusync/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	EnvFileKey = "ENV_FILE"

	DefaultSquareAPIVersion = "2025-01-23"
)

// LoadEnvFile loads ENV_FILE (default .env) into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadEnvFile() {
	envFile := getenv(EnvFileKey, ".env")
	if err := godotenv.Load(envFile); err != nil {
		log.WithField("file", envFile).Debug("env file not loaded")
	}
}

// FromEnv reads and validates the service configuration.
func FromEnv() (types.Config, error) {
	var errs []string
	intVar := func(key string, def int) int {
		v, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: not an integer", key))
		}
		return v
	}
	floatVar := func(key string, def float64) float64 {
		v, err := strconv.ParseFloat(getenv(key, strconv.FormatFloat(def, 'f', -1, 64)), 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: not a number", key))
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		v, err := time.ParseDuration(getenv(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: not a duration", key))
		}
		return v
	}

	cfg := types.Config{
		HTTPPort:        intVar("HTTP_PORT", 8080),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getenv("LOG_FORMAT", "text")),
		Timezone:        os.Getenv("TIMEZONE"),
		AdminKey:        os.Getenv("ADMIN_API_KEY"),
		AlertTopicArn:   os.Getenv("SYNC_ALERT_SNS_ARN"),
		SnapshotBackend: strings.ToLower(os.Getenv("SNAPSHOT_BACKEND")),
		Square: types.SquareConfig{
			AccessToken:       os.Getenv("SQUARE_ACCESS_TOKEN"),
			ApplicationID:     os.Getenv("SQUARE_APPLICATION_ID"),
			LocationID:        os.Getenv("SQUARE_LOCATION_ID"),
			Environment:       strings.ToLower(getenv("SQUARE_ENVIRONMENT", types.EnvironmentSandbox)),
			BaseURL:           os.Getenv("SQUARE_BASE_URL"),
			APIVersion:        getenv("SQUARE_API_VERSION", DefaultSquareAPIVersion),
			Timeout:           durationVar("SQUARE_TIMEOUT", 10*time.Second),
			RequestsPerSecond: floatVar("SQUARE_RPS", 5),
		},
		Sync: types.SyncConfig{
			HoursSyncHour:   intVar("HOURS_SYNC_HOUR", 6),
			CatalogTTL:      durationVar("CATALOG_TTL", 6*time.Hour),
			VisitorCooldown: durationVar("VISITOR_COOLDOWN", time.Hour),
		},
		Hours: types.HoursConfig{
			SourceURL:   os.Getenv("HOURS_SOURCE_URL"),
			PeriodsExpr: getenv("HOURS_PERIODS_EXPR", hours.DefaultPeriodsExpr),
		},
	}

	catalogHours, err := parseHours(getenv("CATALOG_SYNC_HOURS", "9,12"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("CATALOG_SYNC_HOURS: %v", err))
	}
	cfg.Sync.CatalogHours = catalogHours

	if len(errs) > 0 {
		return cfg, types.Err(types.ErrInvalidConfig, nil, "%s", strings.Join(errs, "; "))
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, types.Err(types.ErrInvalidConfig, err, "TIMEZONE %q", cfg.Timezone)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return cfg, types.Err(types.ErrInvalidConfig, err, "config validation failed")
	}
	return cfg, nil
}

// parseHours reads a comma separated list of hours, e.g. "9,12". Duplicates are dropped.
func parseHours(s string) ([]int, error) {
	seen := make(map[int]struct{})
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		h, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%q is not an hour", p)
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out, nil
}

// ApplyLogging configures the global logrus logger.
func ApplyLogging(cfg types.Config) {
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
