package ledgerd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration for the ledger service.
type Config struct {
	ListenAddress string
	DatabasePath  string
	JWTSecret     string
	TokenTTL      time.Duration
	TopupMin      int64
	TopupMax      int64
}

const (
	envListen    = "LEDGERD_LISTEN"
	envDBPath    = "LEDGERD_DB"
	envJWTSecret = "LEDGERD_JWT_SECRET"
	envTokenTTL  = "LEDGERD_TOKEN_TTL"
	envTopupMin  = "LEDGERD_TOPUP_MIN"
	envTopupMax  = "LEDGERD_TOPUP_MAX"
)

// LoadConfigFromEnv resolves configuration from environment variables with sane defaults.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddress: getenvDefault(envListen, ":8080"),
		DatabasePath:  getenvDefault(envDBPath, "ledgerd.db"),
		JWTSecret:     os.Getenv(envJWTSecret),
		TokenTTL:      parseDurationDefault(envTokenTTL, 24*time.Hour),
		TopupMin:      parseIntDefault(envTopupMin, 1),
		TopupMax:      parseIntDefault(envTopupMax, 1000),
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("%s is required", envJWTSecret)
	}
	if cfg.TopupMin < 1 || cfg.TopupMax < cfg.TopupMin {
		return nil, fmt.Errorf("invalid top-up bounds [%d, %d]", cfg.TopupMin, cfg.TopupMax)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func parseDurationDefault(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func parseIntDefault(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}
