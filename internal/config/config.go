package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all runtime configuration for the venue.
type Config struct {
	Port            int
	LogLevel        string
	Markets         []uint64
	LedgerMailbox   int
	MarketMailbox   int
	TradeTapeSize   int
	BcryptCost      int
	RequestTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadEnvFile copies variables from a dotenv file into the process
// environment. Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", os.Getenv("PORT"))
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	markets, err := parseMarkets(getStr("MARKETS", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid MARKETS: %w", err)
	}

	cfg := &Config{
		Port:     port,
		LogLevel: logLevel,
		Markets:  markets,
	}
	for key, opt := range map[string]struct {
		dst *int
		def int
	}{
		"LEDGER_MAILBOX":  {&cfg.LedgerMailbox, 1024},
		"MARKET_MAILBOX":  {&cfg.MarketMailbox, 256},
		"TRADE_TAPE_SIZE": {&cfg.TradeTapeSize, 1000},
	} {
		v, err := getInt(key, opt.def)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("invalid %s: %q, must be a positive integer", key, os.Getenv(key))
		}
		*opt.dst = v
	}

	cost, err := getInt("BCRYPT_COST", bcrypt.DefaultCost)
	if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %q, must be between %d and %d",
			os.Getenv("BCRYPT_COST"), bcrypt.MinCost, bcrypt.MaxCost)
	}
	cfg.BcryptCost = cost

	for key, opt := range map[string]struct {
		dst *time.Duration
		def time.Duration
	}{
		"REQUEST_TIMEOUT":  {&cfg.RequestTimeout, 2 * time.Second},
		"READ_TIMEOUT":     {&cfg.ReadTimeout, 5 * time.Second},
		"WRITE_TIMEOUT":    {&cfg.WriteTimeout, 10 * time.Second},
		"IDLE_TIMEOUT":     {&cfg.IdleTimeout, 60 * time.Second},
		"SHUTDOWN_TIMEOUT": {&cfg.ShutdownTimeout, 10 * time.Second},
	} {
		d, err := getDuration(key, opt.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid %s: %v, must be positive", key, d)
		}
		*opt.dst = d
	}

	return cfg, nil
}

// parseMarkets parses a comma-separated list of distinct market ids.
func parseMarkets(s string) ([]uint64, error) {
	var ids []uint64
	seen := make(map[uint64]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("market id %q: %w", part, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("market id %d listed twice", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one market id is required")
	}
	return ids, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
