// Package config provides configuration management for the sync tool.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultFlagColor       = "yellow"
	DefaultLookbackDays    = 7
	DefaultSyncDays        = 2
	DefaultSyncMaxRecords  = 100
	DefaultHTTPTimeoutSecs = 30
)

// Config represents the application configuration.
type Config struct {
	Splitwise SplitwiseConfig
	YNAB      YNABConfig
	Sync      SyncConfig
	Debug     bool
}

// SplitwiseConfig represents Splitwise API configuration.
type SplitwiseConfig struct {
	APIKey string
	APIURL string
	// DefaultPersonName is the friend reverse-synced expenses are split with.
	DefaultPersonName string
}

// YNABConfig represents YNAB API configuration.
type YNABConfig struct {
	AccessToken string
	BudgetID    string
	AccountID   string
	APIURL      string
}

// SyncConfig holds behavior flags for both sync directions.
type SyncConfig struct {
	FlagColor      string
	DryRun         bool
	LookbackDays   int
	SyncDays       int
	SyncMaxRecords int
	ProfilePath    string
	HTTPTimeout    time.Duration
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	timeoutSecs := intEnvOrDefault("HTTP_TIMEOUT_SECONDS", DefaultHTTPTimeoutSecs)
	if timeoutSecs <= 0 {
		timeoutSecs = DefaultHTTPTimeoutSecs
	}

	config := &Config{
		Splitwise: SplitwiseConfig{
			APIKey:            os.Getenv("SPLITWISE_API_KEY"),
			APIURL:            getEnvOrDefault("SPLITWISE_API_URL", splitwise.DefaultAPIURL),
			DefaultPersonName: strings.TrimSpace(os.Getenv("SPLITWISE_DEFAULT_PERSON_NAME")),
		},
		YNAB: YNABConfig{
			AccessToken: os.Getenv("YNAB_ACCESS_TOKEN"),
			BudgetID:    os.Getenv("YNAB_BUDGET_ID"),
			AccountID:   os.Getenv("YNAB_ACCOUNT_ID"),
			APIURL:      getEnvOrDefault("YNAB_API_URL", ynab.DefaultAPIURL),
		},
		Sync: SyncConfig{
			FlagColor:      flagColorEnv("YNAB_SPLITWISE_FLAG_COLOR"),
			DryRun:         boolEnv("YNAB_SPLITWISE_DRY_RUN"),
			LookbackDays:   intEnvOrDefault("YNAB_SPLITWISE_LOOKBACK_DAYS", DefaultLookbackDays),
			SyncDays:       boundedIntEnv("SPLITWISE_SYNC_DAYS", DefaultSyncDays, 0),
			SyncMaxRecords: boundedIntEnv("SPLITWISE_SYNC_MAX_RECORDS", DefaultSyncMaxRecords, 1),
			ProfilePath:    os.Getenv("SYNC_PROFILE"),
			HTTPTimeout:    time.Duration(timeoutSecs) * time.Second,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// ConfigurationError lists required settings that are missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s\nPlease check your .env file or environment variables", strings.Join(e.Missing, ", "))
}

// Validate validates the configuration.
// It checks if all required fields are set and returns a *ConfigurationError otherwise.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		var name string
		switch path[0] {
		case "splitwise":
			switch path[1] {
			case "apiKey":
				value, name = c.Splitwise.APIKey, "SPLITWISE_API_KEY"
			case "apiUrl":
				value, name = c.Splitwise.APIURL, "SPLITWISE_API_URL"
			case "defaultPersonName":
				value, name = c.Splitwise.DefaultPersonName, "SPLITWISE_DEFAULT_PERSON_NAME"
			}
		case "ynab":
			switch path[1] {
			case "accessToken":
				value, name = c.YNAB.AccessToken, "YNAB_ACCESS_TOKEN"
			case "budgetId":
				value, name = c.YNAB.BudgetID, "YNAB_BUDGET_ID"
			case "accountId":
				value, name = c.YNAB.AccountID, "YNAB_ACCOUNT_ID"
			case "apiUrl":
				value, name = c.YNAB.APIURL, "YNAB_API_URL"
			}
		}

		if name == "" {
			name = strings.Join(path, ".")
		}
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	return nil
}

// NormalizeFlagColor trims and lower-cases a flag color.
func NormalizeFlagColor(color string) string {
	return strings.ToLower(strings.TrimSpace(color))
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// intEnvOrDefault parses an integer environment variable.
// An invalid value is logged and the default is used instead.
func intEnvOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in environment; using default", "name", key, "value", value, "default", defaultValue)
		return defaultValue
	}

	return parsed
}

// boundedIntEnv is intEnvOrDefault for settings with a lower bound.
// A value below lowest is logged and the default is used instead.
func boundedIntEnv(key string, defaultValue, lowest int) int {
	value := intEnvOrDefault(key, defaultValue)
	if value < lowest {
		slog.Warn("Out of range integer in environment; using default", "name", key, "value", value, "min", lowest, "default", defaultValue)
		return defaultValue
	}
	return value
}

// flagColorEnv reads a flag color, falling back to DefaultFlagColor when
// the value is blank after trimming.
func flagColorEnv(key string) string {
	color := NormalizeFlagColor(os.Getenv(key))
	if color == "" {
		return DefaultFlagColor
	}
	return color
}

func boolEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
