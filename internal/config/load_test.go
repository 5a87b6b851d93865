package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	defer viper.Reset()

	t.Run("defaults", func(t *testing.T) {
		viper.Reset()

		Load("")

		assert.Equal(t, 20, viper.GetInt("count"))
		assert.Equal(t, 30, viper.GetInt("rerun_count"))
		assert.Equal(t, 2, viper.GetInt("max_reruns"))
		assert.Equal(t, 15.0, viper.GetFloat64("variance_threshold"))
		assert.Equal(t, "benchmark_results", viper.GetString("results_dir"))
	})

	t.Run("environment overrides", func(t *testing.T) {
		viper.Reset()
		os.Setenv("BENCHVAR_COUNT", "50")
		defer os.Unsetenv("BENCHVAR_COUNT")

		Load("")
		assert.Equal(t, 50, viper.GetInt("count"))
	})

	t.Run("config file overrides", func(t *testing.T) {
		viper.Reset()
		cfgFile := filepath.Join(t.TempDir(), "benchvar.yaml")
		require.NoError(t, os.WriteFile(cfgFile, []byte("variance_threshold: 10\nresults_dir: out\n"), 0o644))

		Load(cfgFile)
		assert.Equal(t, 10.0, viper.GetFloat64("variance_threshold"))
		assert.Equal(t, "out", viper.GetString("results_dir"))
	})
}
