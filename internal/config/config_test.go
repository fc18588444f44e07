package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SUNMAP_LOG_LEVEL", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("SUNMAP_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "conf", "sunmap.yaml")
	cfg := DefaultConfig()
	cfg.Figure.Width = 800
	cfg.Fixtures.AIA171 = "data/aia_171_level1.fits"
	cfg.Figures.Strict = true
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("SUNMAP_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "sunmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("figures:\n  workers: 8\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Figures.Workers)
	assert.Equal(t, 640, cfg.Figure.Width)
	assert.Equal(t, "internal/gallery/testdata/figure_hashes.json", cfg.Figures.HashLibrary)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SUNMAP_LOG_LEVEL", "DEBUG")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("SUNMAP_LOG_LEVEL", "")
	dir := t.TempDir()
	tests := map[string]string{
		"bad yaml":      "figure: [",
		"zero width":    "figure:\n  width: 0\n",
		"no workers":    "figures:\n  workers: 0\n",
		"bad level":     "logging:\n  level: loud\n",
		"zero spacing":  "grid:\n  lon_spacing: 0\n",
		"neg tolerance": "figures:\n  tolerance: -1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}
