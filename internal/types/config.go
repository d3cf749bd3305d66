package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"

	SnapshotBackendRedis = "redis"

	AdminKeyHdrName = "x-admin-key"
)

// Config drives the whole service. It is read once at startup from the environment.
// A Square integration without token, application id or location id is disabled and the
// service serves the static menu only.
type Config struct {
	HTTPPort        int    `validate:"min=1,max=65535"`
	LogLevel        string `validate:"oneof=trace debug info warn error"`
	LogFormat       string `validate:"oneof=text json"`
	Timezone        string
	AdminKey        string
	AlertTopicArn   string
	SnapshotBackend string `validate:"omitempty,oneof=redis"`

	Square SquareConfig
	Sync   SyncConfig
	Hours  HoursConfig
}

type SquareConfig struct {
	AccessToken       string
	ApplicationID     string
	LocationID        string
	Environment       string        `validate:"oneof=sandbox production"`
	BaseURL           string        `validate:"omitempty,url"`
	APIVersion        string        `validate:"required"`
	Timeout           time.Duration `validate:"gt=0"`
	RequestsPerSecond float64       `validate:"gt=0"`
}

// SyncConfig holds the refresh policy.
// CatalogHours are the wall-clock hours of the daily catalog sync windows.
type SyncConfig struct {
	CatalogHours    []int         `validate:"min=1,dive,min=0,max=23"`
	HoursSyncHour   int           `validate:"min=0,max=23"`
	CatalogTTL      time.Duration `validate:"gt=0"`
	VisitorCooldown time.Duration `validate:"gt=0"`
}

type HoursConfig struct {
	SourceURL   string `validate:"omitempty,url"`
	PeriodsExpr string `validate:"required"`
}

// Enabled reports whether every credential the Square integration needs is present.
func (c SquareConfig) Enabled() bool {
	return c.AccessToken != "" && c.ApplicationID != "" && c.LocationID != ""
}

// Endpoint returns the Square API base URL for the configured environment.
func (c SquareConfig) Endpoint() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Environment == EnvironmentProduction {
		return "https://connect.squareup.com"
	}
	return "https://connect.squareupsandbox.com"
}

// CatalogSpec is the cron expression of the catalog sync windows.
func (c SyncConfig) CatalogSpec() string {
	parts := make([]string, 0, len(c.CatalogHours))
	for _, h := range c.CatalogHours {
		parts = append(parts, fmt.Sprintf("%d", h))
	}
	return fmt.Sprintf("0 %s * * *", strings.Join(parts, ","))
}

// HoursSpec is the cron expression of the operating-hours sync.
func (c SyncConfig) HoursSpec() string {
	return fmt.Sprintf("0 %d * * *", c.HoursSyncHour)
}

// Location resolves Timezone, falling back to the server's local time.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
