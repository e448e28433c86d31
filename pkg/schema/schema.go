// Package schema defines the configuration structures for sessiond.
package schema

import "time"

// Configuration is the full service configuration, populated once at startup
// by pkg/config and passed explicitly to the components that need it.
type Configuration struct {
	Logs       LogsConfig       `yaml:"logs" mapstructure:"logs"`
	Credential CredentialConfig `yaml:"credential" mapstructure:"credential"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Discord    DiscordConfig    `yaml:"discord" mapstructure:"discord"`
	Calendar   CalendarConfig   `yaml:"calendar" mapstructure:"calendar"`
	Firestore  FirestoreConfig  `yaml:"firestore" mapstructure:"firestore"`
	Extender   ExtenderConfig   `yaml:"extender" mapstructure:"extender"`
	Places     []string         `yaml:"places" mapstructure:"places"`
}

// LogsConfig controls logging output.
type LogsConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// CredentialConfig locates the mounted service-account credential file.
type CredentialConfig struct {
	// Path to the service-account key JSON. Bound to SA_PATH for
	// compatibility with the container mount convention.
	Path string `yaml:"path" mapstructure:"path"`
}

// AuthConfig controls the token exchange against the credential's token
// endpoint.
type AuthConfig struct {
	// Scopes requested for the access token.
	Scopes []string `yaml:"scopes" mapstructure:"scopes"`

	// Timeout applied to each token-endpoint call. A timeout is treated as
	// the endpoint being unavailable.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// ExpirySkew refreshes tokens this close to expiry instead of letting
	// them lapse mid-request.
	ExpirySkew time.Duration `yaml:"expiry_skew" mapstructure:"expiry_skew"`

	// Retry bounds the backoff applied to transient token-endpoint failures.
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// DiscordConfig configures the Discord gateway connection.
type DiscordConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// CalendarConfig identifies the Google Calendar that mirrors work sessions.
type CalendarConfig struct {
	CalendarID string `yaml:"calendar_id" mapstructure:"calendar_id"`
	TimeZone   string `yaml:"time_zone" mapstructure:"time_zone"`
}

// FirestoreConfig identifies the Firestore project and collection holding
// session documents.
type FirestoreConfig struct {
	// ProjectID overrides the credential's project_id when set.
	ProjectID  string `yaml:"project_id" mapstructure:"project_id"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// ExtenderConfig tunes the rolling-horizon calendar extender.
type ExtenderConfig struct {
	// Interval between extender sweeps over active sessions.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Horizon is how far into the future an active session's calendar event
	// is kept.
	Horizon time.Duration `yaml:"horizon" mapstructure:"horizon"`

	// Threshold is the remaining-time floor below which an event gets
	// topped up, reducing Calendar API calls.
	Threshold time.Duration `yaml:"threshold" mapstructure:"threshold"`
}

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryConfig controls retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts     int             `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffStrategy BackoffStrategy `yaml:"backoff_strategy" mapstructure:"backoff_strategy"`
	InitialDelay    time.Duration   `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay        time.Duration   `yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier      float64         `yaml:"multiplier" mapstructure:"multiplier"`
	RandomJitter    bool            `yaml:"random_jitter" mapstructure:"random_jitter"`
	MaxElapsedTime  time.Duration   `yaml:"max_elapsed_time" mapstructure:"max_elapsed_time"`
}
