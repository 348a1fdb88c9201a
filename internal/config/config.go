package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultCSVURL = "https://raw.githubusercontent.com/codeforsanjose/sj-data-charts/master/sj_economics_monthly_2006_2016.csv"

const DefaultDataLink = "https://github.com/codeforsanjose/sj-data-charts"

type Config struct {
	// HTTP Server
	Port           string
	RateLimitRPM   int
	TrustedProxies []string

	// Backend selection
	DataBackend string

	// CSV
	CSVURL string

	// Memory
	DataDir string

	// Database
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetRange    string

	// Data loading
	DataFetchTimeout time.Duration
	DataCacheTTL     time.Duration
	// Zero disables periodic refresh.
	DataRefreshInterval time.Duration

	// Presentation
	TableMaxRows int
	DataLink     string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", 120),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		DataBackend: getEnv("DATA_BACKEND", "csv"),

		CSVURL:       getEnv("CSV_URL", DefaultCSVURL),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/sjcharts.db"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:    getEnv("GOOGLE_SHEET_RANGE", "Data!A:P"),

		DataFetchTimeout: getEnvDuration("DATA_FETCH_TIMEOUT", 15*time.Second),
		DataCacheTTL:     getEnvDuration("DATA_CACHE_TTL", time.Hour),

		DataRefreshInterval: getEnvDuration("DATA_REFRESH_INTERVAL", 30*time.Minute),

		TableMaxRows: getEnvInt("TABLE_MAX_ROWS", 10),
		DataLink:     getEnv("DATA_LINK", DefaultDataLink),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"csv", "memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "csv" {
		if strings.TrimSpace(c.CSVURL) == "" {
			errors = append(errors, "CSV URL cannot be empty when using csv backend")
		} else if u, err := url.Parse(c.CSVURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid CSV URL '%s': %v", c.CSVURL, err))
		} else if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file" {
			errors = append(errors, fmt.Sprintf("invalid CSV URL scheme '%s': must be 'http', 'https' or a file path", u.Scheme))
		}
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}

	if c.DataFetchTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid data fetch timeout %v: must be at least 100ms", c.DataFetchTimeout))
	} else if c.DataFetchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid data fetch timeout %v: must be at most 5 minutes", c.DataFetchTimeout))
	}

	if c.DataCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid data cache TTL %v: must be at least 1 second", c.DataCacheTTL))
	} else if c.DataCacheTTL > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid data cache TTL %v: must be at most 7 days", c.DataCacheTTL))
	}

	if c.DataRefreshInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid data refresh interval %v: must not be negative", c.DataRefreshInterval))
	} else if c.DataRefreshInterval > 0 && c.DataRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid data refresh interval %v: must be 0 (disabled) or at least 1 minute", c.DataRefreshInterval))
	}

	if c.TableMaxRows < 0 {
		errors = append(errors, fmt.Sprintf("invalid table max rows %d: must not be negative", c.TableMaxRows))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// CSVLocation returns CSVURL with a file:// prefix stripped.
func (c *Config) CSVLocation() string {
	return strings.TrimPrefix(c.CSVURL, "file://")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
