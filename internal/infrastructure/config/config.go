package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Halo Bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Cloud    CloudConfig    `yaml:"cloud"`
	Auth     AuthConfig     `yaml:"auth"`
	MFA      MFAConfig      `yaml:"mfa"`
	Poll     PollConfig     `yaml:"poll"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AccountConfig contains the cloud account credentials and home selection.
type AccountConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	HomeName string `yaml:"home_name"`
}

// CloudConfig contains the remote device API settings.
type CloudConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// AuthConfig contains session refresh behaviour.
type AuthConfig struct {
	// CredentialsPath is where the session token triple is cached between runs.
	CredentialsPath string `yaml:"credentials_path"`

	// RefreshInterval is the background token refresh period in seconds.
	RefreshInterval int `yaml:"refresh_interval"`

	// ReauthAfterFailures is the number of consecutive refresh failures after
	// which the manager fires its exhaustion hook. 0 disables escalation; the
	// previous token stays in use either way.
	ReauthAfterFailures int `yaml:"reauth_after_failures"`
}

// MFAConfig contains the local verification-code server settings.
type MFAConfig struct {
	// Port is the local listener port for the code submission page.
	// Must be in the 1024-65535 range.
	Port int `yaml:"port"`

	// GraceSeconds is how long the server stays reachable after a successful
	// submission so the browser redirect completes before the socket closes.
	GraceSeconds int `yaml:"grace_seconds"`

	// MaxAttempts bounds verification-code submissions per login attempt.
	// 0 means unlimited.
	MaxAttempts int `yaml:"max_attempts"`
}

// PollConfig contains device polling and reconciliation settings.
type PollConfig struct {
	// Interval is the per-lock state poll period in seconds.
	Interval int `yaml:"interval"`

	// ResyncInterval is the device-list reconciliation period in seconds.
	// 0 reconciles once at startup only.
	ResyncInterval int `yaml:"resync_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HALOBRIDGE_SECTION_KEY
// For example: HALOBRIDGE_ACCOUNT_EMAIL, HALOBRIDGE_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Cloud: CloudConfig{
			BaseURL: "https://ynk95r1v52.execute-api.us-east-1.amazonaws.com",
			Timeout: 30,
		},
		Auth: AuthConfig{
			CredentialsPath: "./data/credentials.json",
			RefreshInterval: 600,
		},
		MFA: MFAConfig{
			Port:         47865,
			GraceSeconds: 7,
		},
		Poll: PollConfig{
			Interval: 30,
		},
		Database: DatabaseConfig{
			Path:        "./data/halobridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "halobridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HALOBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Account - credentials usually come from the environment in deployments
	if v := os.Getenv("HALOBRIDGE_ACCOUNT_EMAIL"); v != "" {
		cfg.Account.Email = v
	}
	if v := os.Getenv("HALOBRIDGE_ACCOUNT_PASSWORD"); v != "" {
		cfg.Account.Password = v
	}

	// Database
	if v := os.Getenv("HALOBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HALOBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HALOBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HALOBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HALOBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// MFA port bounds. Ports below 1024 require elevated privileges and are
// rejected up front rather than failing at bind time.
const (
	minMFAPort = 1024
	maxMFAPort = 65535
)

// Validate checks the configuration for errors.
//
// Account credentials, home name and the MFA port range are validated here,
// before any component that depends on them is started.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Account validation - wrong or missing credentials must surface at startup
	if c.Account.Email == "" {
		errs = append(errs, "account.email is required")
	}
	if c.Account.Password == "" {
		errs = append(errs, "account.password is required")
	}
	if c.Account.HomeName == "" {
		errs = append(errs, "account.home_name is required")
	}

	// MFA validation
	if c.MFA.Port < minMFAPort || c.MFA.Port > maxMFAPort {
		errs = append(errs, "mfa.port must be between 1024 and 65535")
	}
	if c.MFA.MaxAttempts < 0 {
		errs = append(errs, "mfa.max_attempts must not be negative")
	}

	// Cloud validation
	if c.Cloud.BaseURL == "" {
		errs = append(errs, "cloud.base_url is required")
	}

	// Auth validation
	if c.Auth.CredentialsPath == "" {
		errs = append(errs, "auth.credentials_path is required")
	}
	if c.Auth.RefreshInterval <= 0 {
		errs = append(errs, "auth.refresh_interval must be positive")
	}

	// Poll validation
	if c.Poll.Interval <= 0 {
		errs = append(errs, "poll.interval must be positive")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetCloudTimeout returns the remote API request timeout as a Duration.
func (c *Config) GetCloudTimeout() time.Duration {
	return time.Duration(c.Cloud.Timeout) * time.Second
}

// GetRefreshInterval returns the session refresh period as a Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Auth.RefreshInterval) * time.Second
}

// GetMFAGrace returns the challenge server shutdown grace window as a Duration.
func (c *Config) GetMFAGrace() time.Duration {
	return time.Duration(c.MFA.GraceSeconds) * time.Second
}

// GetPollInterval returns the per-lock poll period as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Poll.Interval) * time.Second
}

// GetResyncInterval returns the reconciliation period as a Duration.
// Zero means reconcile once at startup only.
func (c *Config) GetResyncInterval() time.Duration {
	return time.Duration(c.Poll.ResyncInterval) * time.Second
}
