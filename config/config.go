package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the palm terminal's runtime configuration.
type Config struct {
	LedgerURL    string `toml:"LedgerURL"`
	RegistryPath string `toml:"RegistryPath"`
	// FramesDir feeds the file-backed camera provider; a real camera
	// integration would replace it.
	FramesDir   string `toml:"FramesDir"`
	LogFile     string `toml:"LogFile"`
	Environment string `toml:"Environment"`
	// TokenPath persists the ledger session token between runs; empty
	// disables persistence.
	TokenPath string `toml:"TokenPath"`

	// GateThreshold is the capture progress required before a gated scan may
	// freeze a frame.
	GateThreshold int `toml:"GateThreshold"`
	// ProcessingPauseMS is the fixed pause after a gated capture.
	ProcessingPauseMS int `toml:"ProcessingPauseMS"`
	// CountdownTicks is the auto-scan countdown length.
	CountdownTicks int `toml:"CountdownTicks"`
	// FrameRate is the analysis tick rate in frames per second.
	FrameRate int `toml:"FrameRate"`

	TopupMin int64 `toml:"TopupMin"`
	TopupMax int64 `toml:"TopupMax"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.LedgerURL) == "" {
		cfg.LedgerURL = "http://localhost:8080"
	}
	if strings.TrimSpace(cfg.RegistryPath) == "" {
		cfg.RegistryPath = "./palm-data"
	}
	if cfg.GateThreshold == 0 {
		cfg.GateThreshold = 80
	}
	if cfg.ProcessingPauseMS == 0 {
		cfg.ProcessingPauseMS = 2000
	}
	if cfg.CountdownTicks == 0 {
		cfg.CountdownTicks = 3
	}
	if cfg.FrameRate == 0 {
		cfg.FrameRate = 30
	}
	if cfg.TopupMin == 0 {
		cfg.TopupMin = 1
	}
	if cfg.TopupMax == 0 {
		cfg.TopupMax = 1000
	}
}

func validate(cfg *Config) error {
	if cfg.GateThreshold < 1 || cfg.GateThreshold > 100 {
		return fmt.Errorf("GateThreshold must be in [1,100], got %d", cfg.GateThreshold)
	}
	if cfg.ProcessingPauseMS < 0 {
		return fmt.Errorf("ProcessingPauseMS must not be negative, got %d", cfg.ProcessingPauseMS)
	}
	if cfg.CountdownTicks < 1 {
		return fmt.Errorf("CountdownTicks must be at least 1, got %d", cfg.CountdownTicks)
	}
	if cfg.FrameRate < 1 {
		return fmt.Errorf("FrameRate must be at least 1, got %d", cfg.FrameRate)
	}
	if cfg.TopupMin < 1 || cfg.TopupMax < cfg.TopupMin {
		return fmt.Errorf("top-up bounds [%d,%d] are not a valid inclusive range", cfg.TopupMin, cfg.TopupMax)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
