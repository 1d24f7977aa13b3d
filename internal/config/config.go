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

type Config struct {
	// HTTP Server
	Port string

	// Ledger document
	LedgerFile  string
	DataBackend string

	// Weather lookup
	WeatherAPIKey  string
	WeatherCity    string
	WeatherBaseURL string
	WeatherTimeout time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker archive
	ArchiveDBPath string
	StatsInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		LedgerFile:  getEnv("LEDGER_FILE", "kasir_data.json"),
		DataBackend: getEnv("DATA_BACKEND", "file"),

		WeatherAPIKey:  getEnv("WEATHER_API_KEY", ""),
		WeatherCity:    getEnv("WEATHER_CITY", "Pontianak"),
		WeatherBaseURL: getEnv("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		WeatherTimeout: getEnvDuration("WEATHER_TIMEOUT", 2*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kasir"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		ArchiveDBPath: getEnv("ARCHIVE_DB_PATH", "./data/kasir_archive.db"),
		StatsInterval: getEnvDuration("STATS_INTERVAL", 60*time.Second),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"file", "memory"}
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

	// Validate ledger file path if backend is file
	if c.DataBackend == "file" {
		if c.LedgerFile == "" {
			errors = append(errors, "ledger file path cannot be empty when using file backend")
		} else {
			dir := filepath.Dir(c.LedgerFile)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create ledger directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate weather configuration
	if c.WeatherBaseURL != "" {
		if parsedURL, err := url.Parse(c.WeatherBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid weather base URL '%s': %v", c.WeatherBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid weather base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}
	if c.WeatherAPIKey != "" && c.WeatherCity == "" {
		errors = append(errors, "weather city cannot be empty when an API key is provided")
	}
	if c.WeatherTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid weather timeout %v: must be at least 100ms", c.WeatherTimeout))
	} else if c.WeatherTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid weather timeout %v: must be at most 1 minute", c.WeatherTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	// Validate AMQP exchange and queue names if AMQP is configured
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate worker archive configuration
	if c.ArchiveDBPath == "" {
		errors = append(errors, "archive database path cannot be empty")
	} else {
		dir := filepath.Dir(c.ArchiveDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create archive database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.StatsInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid stats interval %v: must be at least 1 second", c.StatsInterval))
	} else if c.StatsInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid stats interval %v: must be at most 24 hours", c.StatsInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
