package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesTerminalSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `LedgerURL = "https://ledger.example/api"
RegistryPath = "/var/lib/palmpay/registry"
FramesDir = "/var/lib/palmpay/frames"
GateThreshold = 90
ProcessingPauseMS = 500
CountdownTicks = 5
FrameRate = 24
TopupMin = 10
TopupMax = 500
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://ledger.example/api", cfg.LedgerURL)
	require.Equal(t, "/var/lib/palmpay/registry", cfg.RegistryPath)
	require.Equal(t, 90, cfg.GateThreshold)
	require.Equal(t, 500, cfg.ProcessingPauseMS)
	require.Equal(t, 5, cfg.CountdownTicks)
	require.Equal(t, 24, cfg.FrameRate)
	require.Equal(t, int64(10), cfg.TopupMin)
	require.Equal(t, int64(500), cfg.TopupMax)
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, 80, cfg.GateThreshold)
	require.Equal(t, int64(1), cfg.TopupMin)
	require.Equal(t, int64(1000), cfg.TopupMax)

	// The written default round-trips.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`LedgerURL = "http://ledger.local"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://ledger.local", cfg.LedgerURL)
	require.Equal(t, 30, cfg.FrameRate)
	require.Equal(t, 2000, cfg.ProcessingPauseMS)
}

func TestLoadRejectsInvalidRanges(t *testing.T) {
	cases := []string{
		`GateThreshold = 150`,
		`CountdownTicks = -1`,
		"TopupMin = 100\nTopupMax = 10",
		`ProcessingPauseMS = -5`,
	}
	for _, contents := range cases {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

		_, err := Load(path)
		require.Error(t, err, contents)
	}
}
