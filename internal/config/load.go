package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) {
	// .env is optional; a missing file is not an error
	godotenv.Load() //nolint:errcheck

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("benchvar")
	}

	viper.SetEnvPrefix("BENCHVAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	// Config file is optional too.
	viper.ReadInConfig() //nolint:errcheck
}

// SetDefaults registers the default value for every setting. Called by
// Load and directly by tests that bypass file loading.
func SetDefaults() {
	viper.SetDefault("count", 20)
	viper.SetDefault("rerun_count", 30)
	viper.SetDefault("max_reruns", 2)
	viper.SetDefault("bench_time", "3s")
	viper.SetDefault("variance_threshold", 15.0)
	viper.SetDefault("timeout", "30m")
	viper.SetDefault("results_dir", "benchmark_results")
	viper.SetDefault("bench_dir", ".")
	viper.SetDefault("packages", []string{"."})
	viper.SetDefault("toolchain_dir", "")
	viper.SetDefault("history_db", "")
	viper.SetDefault("skip_checks", false)
	viper.SetDefault("skip_warmup", false)
	viper.SetDefault("verbose", false)
}
