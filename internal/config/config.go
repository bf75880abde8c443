// Package config loads the meetingscheduler configuration.
//
// Values are resolved in increasing order of precedence: built-in defaults,
// the optional YAML profile, environment variables, and finally command-line
// flags (applied by the cmd package after Load).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/scheduler"
)

// Environment variables.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIModel   = "OPENAI_MODEL"
	EnvCredentials   = "MEETINGSCHEDULER_CREDENTIALS"
	EnvToken         = "MEETINGSCHEDULER_TOKEN"
	EnvOperatorName  = "MEETINGSCHEDULER_OPERATOR_NAME"
	EnvOperatorEmail = "MEETINGSCHEDULER_OPERATOR_EMAIL"
	EnvTimezone      = "MEETINGSCHEDULER_TIMEZONE"
	EnvWorkStart     = "MEETINGSCHEDULER_WORK_START"
	EnvWorkEnd       = "MEETINGSCHEDULER_WORK_END"
	EnvRunTimeout    = "MEETINGSCHEDULER_RUN_TIMEOUT"
	EnvMetricsAddr   = "MEETINGSCHEDULER_METRICS_ADDR"
	EnvDebug         = "MEETINGSCHEDULER_DEBUG"
)

// Defaults.
const (
	DefaultModel           = "gpt-4o"
	DefaultCredentialsFile = "credentials.json"
	DefaultTokenFile       = "token.json"
)

// ErrMissingAPIKey is returned by ValidateChat when no OpenAI key is set.
var ErrMissingAPIKey = errors.New(EnvOpenAIKey + " is not set")

// clockLayout is the format of working hour bounds.
const clockLayout = "15:04"

// Operator identifies the person meetings are scheduled for.
type Operator struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Timezone string `yaml:"timezone"`
}

// WorkingHours bounds suggested meeting times, in "15:04" form.
type WorkingHours struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Config holds every setting of the program.
type Config struct {
	// OpenAIAPIKey is only read from the environment.
	OpenAIAPIKey string `yaml:"-"`
	Model        string `yaml:"model"`

	CredentialsFile string `yaml:"credentials"`
	TokenFile       string `yaml:"token"`

	Operator     Operator     `yaml:"operator"`
	WorkingHours WorkingHours `yaml:"working_hours"`

	RunTimeout      time.Duration `yaml:"run_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval"`

	MetricsAddr string `yaml:"metrics_addr"`
	Debug       bool   `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model:           DefaultModel,
		CredentialsFile: DefaultCredentialsFile,
		TokenFile:       DefaultTokenFile,
		WorkingHours: WorkingHours{
			Start: assistant.DefaultWorkStart,
			End:   assistant.DefaultWorkEnd,
		},
		RunTimeout:      scheduler.DefaultRunTimeout,
		PollInterval:    scheduler.DefaultPollInterval,
		MaxPollInterval: scheduler.DefaultMaxPollInterval,
	}
}

// Load builds the configuration from defaults, the YAML profile at path (if
// path is not empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.OpenAIAPIKey = getEnvOrDefault(EnvOpenAIKey, c.OpenAIAPIKey)
	c.Model = getEnvOrDefault(EnvOpenAIModel, c.Model)
	c.CredentialsFile = getEnvOrDefault(EnvCredentials, c.CredentialsFile)
	c.TokenFile = getEnvOrDefault(EnvToken, c.TokenFile)
	c.Operator.Name = getEnvOrDefault(EnvOperatorName, c.Operator.Name)
	c.Operator.Email = getEnvOrDefault(EnvOperatorEmail, c.Operator.Email)
	c.Operator.Timezone = getEnvOrDefault(EnvTimezone, c.Operator.Timezone)
	c.WorkingHours.Start = getEnvOrDefault(EnvWorkStart, c.WorkingHours.Start)
	c.WorkingHours.End = getEnvOrDefault(EnvWorkEnd, c.WorkingHours.End)
	c.RunTimeout = getEnvDurationOrDefault(EnvRunTimeout, c.RunTimeout)
	c.MetricsAddr = getEnvOrDefault(EnvMetricsAddr, c.MetricsAddr)
	c.Debug = getEnvBoolOrDefault(EnvDebug, c.Debug)
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if c.TokenFile == "" {
		return errors.New("token file path must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Operator.Email != "" {
		addr, err := mail.ParseAddress(c.Operator.Email)
		if err != nil || addr.Address != c.Operator.Email {
			return fmt.Errorf("operator email %q is not an email address", c.Operator.Email)
		}
	}

	start, err := time.Parse(clockLayout, c.WorkingHours.Start)
	if err != nil {
		return fmt.Errorf("invalid working hours start %q, expected HH:MM", c.WorkingHours.Start)
	}
	end, err := time.Parse(clockLayout, c.WorkingHours.End)
	if err != nil {
		return fmt.Errorf("invalid working hours end %q, expected HH:MM", c.WorkingHours.End)
	}
	if !end.After(start) {
		return fmt.Errorf("working hours end %s must be after start %s", c.WorkingHours.End, c.WorkingHours.Start)
	}

	if c.RunTimeout <= 0 {
		return fmt.Errorf("run timeout must be positive, got %s", c.RunTimeout)
	}
	if c.PollInterval <= 0 || c.MaxPollInterval < c.PollInterval {
		return fmt.Errorf("invalid poll intervals %s..%s", c.PollInterval, c.MaxPollInterval)
	}
	return nil
}

// ValidateChat additionally requires what the chat command needs.
func (c *Config) ValidateChat() error {
	if c.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	return c.Validate()
}

// Location returns the operator's time zone, or the local zone when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Operator.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Operator.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Operator.Timezone, err)
	}
	return loc, nil
}

// Profile converts the operator settings for the assistant session. It
// assumes Validate succeeded.
func (c *Config) Profile() assistant.Profile {
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return assistant.Profile{
		Name:      c.Operator.Name,
		Email:     c.Operator.Email,
		Location:  loc,
		WorkStart: c.WorkingHours.Start,
		WorkEnd:   c.WorkingHours.End,
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the boolean value of an environment variable or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvDurationOrDefault returns the duration value of an environment variable or a default value.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
