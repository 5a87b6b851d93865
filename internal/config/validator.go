package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ValidateConfig validates configuration values and returns an error if
// any are invalid. Call after viper has loaded the configuration.
func ValidateConfig() error {
	var errs []string

	for _, key := range []string{"count", "rerun_count", "max_reruns"} {
		if !viper.IsSet(key) {
			continue
		}
		if v := viper.GetInt(key); v <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %d", key, v))
		}
	}

	if viper.IsSet("variance_threshold") {
		if v := viper.GetFloat64("variance_threshold"); v <= 0 || v > 100 {
			errs = append(errs, fmt.Sprintf("variance_threshold must be in (0, 100], got: %v", v))
		}
	}

	for _, key := range []string{"bench_time", "timeout"} {
		if !viper.IsSet(key) {
			continue
		}
		var d time.Duration
		if v := viper.GetDuration(key); v != 0 {
			d = v
		} else if s := viper.GetInt(key); s != 0 {
			d = time.Duration(s) * time.Second
		}
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %v", key, d))
		}
	}

	if viper.IsSet("results_dir") && viper.GetString("results_dir") == "" {
		errs = append(errs, "results_dir must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
