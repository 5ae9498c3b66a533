package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSymbolUniverseFile_ParsesAndNormalizesSymbols(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols:\n  - btcusdt\n  - ETHUSDT\n  - \" solusdt \"\n"), 0o644))

	symbols, err := loadSymbolUniverseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, symbols)
}

func TestLoadSymbolUniverseFile_MissingFileErrors(t *testing.T) {
	_, err := loadSymbolUniverseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGatewayConfig_DefaultModeList(t *testing.T) {
	cases := []struct {
		name string
		cfg  GatewayConfig
		want []string
	}{
		{"plural wins", GatewayConfig{DefaultMode: "scalp", DefaultModes: []string{"swing", "build"}}, []string{"swing", "build"}},
		{"singular fallback", GatewayConfig{DefaultMode: "build"}, []string{"build"}},
		{"hardcoded fallback", GatewayConfig{}, []string{"scalp"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.DefaultModeList())
		})
	}
}
