// Package config loads the sessiond configuration from defaults, an optional
// YAML config file, and environment variables (from lower to higher
// priority). The result is an explicit schema.Configuration created once at
// startup; nothing reads the environment after that.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	errUtils "github.com/worklab/sessiond/errors"
	"github.com/worklab/sessiond/pkg/schema"
)

const (
	// DefaultCredentialPath is where the container mounts the
	// service-account key.
	DefaultCredentialPath = "/app/serviceAccounts.json"

	// ConfigFileName is the base name of the optional YAML config file.
	ConfigFileName = "sessiond"

	envPrefix = "SESSIOND"
)

const (
	defaultAuthTimeout    = 30 * time.Second
	defaultExpirySkew     = 2 * time.Minute
	defaultRetryAttempts  = 5
	defaultInitialDelay   = 500 * time.Millisecond
	defaultMaxDelay       = 30 * time.Second
	defaultMaxElapsedTime = 5 * time.Minute
	defaultRetryMult      = 2.0

	defaultExtendInterval  = time.Minute
	defaultRollingHorizon  = 15 * time.Minute
	defaultTopUpThreshold  = 10 * time.Minute
	defaultEventCollection = "events"
)

// defaultScopes are the OAuth scopes requested for the access token. The
// service talks to Firestore and Calendar through one identity, so both
// scopes are requested up front.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/datastore",
}

// defaultPlaces are the recognized work locations.
var defaultPlaces = []string{"ev", "home", "ieee", "mcgill"}

// Load reads the configuration. searchPaths lists directories to probe for
// an optional sessiond.yaml; missing config files are fine, the defaults and
// environment carry the full configuration on their own.
func Load(searchPaths ...string) (schema.Configuration, error) {
	var cfg schema.Configuration

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	setDefaults(v)
	bindEnv(v)

	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if len(searchPaths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return cfg, fmt.Errorf("%w: read config file: %w", errUtils.ErrInvalidConfig, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: unmarshal: %w", errUtils.ErrInvalidConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot run without.
func Validate(cfg *schema.Configuration) error {
	if cfg.Credential.Path == "" {
		return fmt.Errorf("%w: credential path is empty", errUtils.ErrInvalidConfig)
	}
	if cfg.Discord.Token == "" {
		return fmt.Errorf("%w: discord token is required (set DISCORD_TOKEN)", errUtils.ErrInvalidConfig)
	}
	if cfg.Calendar.CalendarID == "" {
		return fmt.Errorf("%w: calendar ID is required (set CALENDAR_ID)", errUtils.ErrInvalidConfig)
	}
	if cfg.Extender.Horizon < cfg.Extender.Threshold {
		return fmt.Errorf("%w: extender horizon %s is shorter than threshold %s",
			errUtils.ErrInvalidConfig, cfg.Extender.Horizon, cfg.Extender.Threshold)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logs.level", "info")
	v.SetDefault("credential.path", DefaultCredentialPath)
	v.SetDefault("auth.scopes", defaultScopes)
	v.SetDefault("auth.timeout", defaultAuthTimeout)
	v.SetDefault("auth.expiry_skew", defaultExpirySkew)
	v.SetDefault("auth.retry.max_attempts", defaultRetryAttempts)
	v.SetDefault("auth.retry.backoff_strategy", string(schema.BackoffExponential))
	v.SetDefault("auth.retry.initial_delay", defaultInitialDelay)
	v.SetDefault("auth.retry.max_delay", defaultMaxDelay)
	v.SetDefault("auth.retry.multiplier", defaultRetryMult)
	v.SetDefault("auth.retry.random_jitter", true)
	v.SetDefault("auth.retry.max_elapsed_time", defaultMaxElapsedTime)
	v.SetDefault("calendar.time_zone", "UTC")
	v.SetDefault("firestore.collection", defaultEventCollection)
	v.SetDefault("extender.interval", defaultExtendInterval)
	v.SetDefault("extender.horizon", defaultRollingHorizon)
	v.SetDefault("extender.threshold", defaultTopUpThreshold)
	v.SetDefault("places", defaultPlaces)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names kept for compatibility with the original
	// container deployment.
	v.BindEnv("credential.path", "SESSIOND_CREDENTIAL_PATH", "SA_PATH")
	v.BindEnv("discord.token", "SESSIOND_DISCORD_TOKEN", "DISCORD_TOKEN")
	v.BindEnv("calendar.calendar_id", "SESSIOND_CALENDAR_ID", "CALENDAR_ID")
}
