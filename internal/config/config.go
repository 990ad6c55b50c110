// Package config loads the daemon settings from a YAML file with
// EDGEDUPE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	edgedupe "github.com/anatolykoptev/go-edgedupe"
)

// Config is the top-level daemon configuration.
type Config struct {
	Reddit  RedditConfig  `yaml:"reddit"`
	Webhook WebhookConfig `yaml:"webhook"`
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
}

// RedditConfig controls submission polling.
type RedditConfig struct {
	// UserAgent is sent with every listing request.
	UserAgent string `yaml:"user_agent"`

	// SubmissionLimit is how many of the newest submissions are read per
	// subreddit each cycle. The listing API caps it at 100.
	// Default: 30
	SubmissionLimit int `yaml:"submission_limit"`

	// Interval between scrape cycles.
	// Default: 5m
	Interval Duration `yaml:"interval"`

	// FetchWorkers bounds concurrent image downloads within one submission.
	// Default: 4
	FetchWorkers int `yaml:"fetch_workers"`
}

// WebhookConfig controls delivery.
type WebhookConfig struct {
	Username string `yaml:"username"`

	// SendDelay is the minimum spacing between two webhook posts.
	// Default: 1s
	SendDelay Duration `yaml:"send_delay"`
}

// StorageConfig names the files the daemon persists.
// Relative names are resolved against DataDir.
type StorageConfig struct {
	DataDir  string `yaml:"data_dir"`
	Database string `yaml:"database"`
	Archive  string `yaml:"archive"`
	State    string `yaml:"state"`
}

// EngineConfig mirrors edgedupe.Config. Zero fields keep the library defaults.
type EngineConfig struct {
	MatchPercent  *int `yaml:"match_percent"`
	LineDetect    *int `yaml:"line_detect"`
	SamplePercent *int `yaml:"sample_percent"`
	SampleWidth   int  `yaml:"sample_width"`
	SampleHeight  int  `yaml:"sample_height"`
}

// Duration is a time.Duration that unmarshals from strings like "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent:       "go-edgedupe/1.0",
			SubmissionLimit: 30,
			Interval:        Duration(5 * time.Minute),
			FetchWorkers:    4,
		},
		Webhook: WebhookConfig{
			Username:  "Reddit Scrapper",
			SendDelay: Duration(time.Second),
		},
		Storage: StorageConfig{
			DataDir:  "data",
			Database: "edgedupe.db",
			Archive:  "reddit_array.bin",
			State:    "reddit.json",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are not applied; call ApplyEnv.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
//
// Environment variables:
//   - EDGEDUPE_DATA_DIR: directory for the database, archive and state files
//   - EDGEDUPE_USER_AGENT: listing user agent
//   - EDGEDUPE_SUBMISSION_LIMIT: submissions read per subreddit
//   - EDGEDUPE_INTERVAL: time between cycles, e.g. "2m"
//   - EDGEDUPE_FETCH_WORKERS: concurrent downloads
//   - EDGEDUPE_WEBHOOK_USERNAME: display name on posted messages
//   - EDGEDUPE_MATCH_PERCENT, EDGEDUPE_LINE_DETECT, EDGEDUPE_SAMPLE_PERCENT: engine tuning
func (c *Config) ApplyEnv() error {
	if err := parseEnvString("EDGEDUPE_DATA_DIR", &c.Storage.DataDir); err != nil {
		return err
	}
	if err := parseEnvString("EDGEDUPE_USER_AGENT", &c.Reddit.UserAgent); err != nil {
		return err
	}
	if err := parseEnvInt("EDGEDUPE_SUBMISSION_LIMIT", &c.Reddit.SubmissionLimit); err != nil {
		return err
	}
	if err := parseEnvDuration("EDGEDUPE_INTERVAL", &c.Reddit.Interval); err != nil {
		return err
	}
	if err := parseEnvInt("EDGEDUPE_FETCH_WORKERS", &c.Reddit.FetchWorkers); err != nil {
		return err
	}
	if err := parseEnvString("EDGEDUPE_WEBHOOK_USERNAME", &c.Webhook.Username); err != nil {
		return err
	}
	if err := parseEnvIntPtr("EDGEDUPE_MATCH_PERCENT", &c.Engine.MatchPercent); err != nil {
		return err
	}
	if err := parseEnvIntPtr("EDGEDUPE_LINE_DETECT", &c.Engine.LineDetect); err != nil {
		return err
	}
	return parseEnvIntPtr("EDGEDUPE_SAMPLE_PERCENT", &c.Engine.SamplePercent)
}

// Validate checks if the configuration has valid values.
func (c *Config) Validate() error {
	if c.Reddit.SubmissionLimit < 1 || c.Reddit.SubmissionLimit > 100 {
		return fmt.Errorf("submission_limit must be between 1 and 100 (got %d)", c.Reddit.SubmissionLimit)
	}
	if c.Reddit.Interval.Std() < time.Second {
		return fmt.Errorf("interval must be at least 1s (got %s)", c.Reddit.Interval.Std())
	}
	if c.Reddit.FetchWorkers < 1 {
		return fmt.Errorf("fetch_workers must be at least 1 (got %d)", c.Reddit.FetchWorkers)
	}
	if c.Webhook.SendDelay.Std() < 0 {
		return fmt.Errorf("send_delay cannot be negative (got %s)", c.Webhook.SendDelay.Std())
	}
	if c.Storage.Database == "" || c.Storage.Archive == "" || c.Storage.State == "" {
		return errors.New("storage file names cannot be empty")
	}
	if _, err := c.Engine.Config(); err != nil {
		return err
	}
	return nil
}

// Config converts the engine section into a validated edgedupe.Config.
func (e EngineConfig) Config() (edgedupe.Config, error) {
	cfg := edgedupe.DefaultConfig()
	if e.MatchPercent != nil {
		cfg.MatchPercent = *e.MatchPercent
	}
	if e.LineDetect != nil {
		cfg.LineDetect = *e.LineDetect
	}
	if e.SamplePercent != nil {
		cfg.SamplePercent = *e.SamplePercent
	}
	if e.SampleWidth != 0 {
		cfg.SampleWidth = e.SampleWidth
	}
	if e.SampleHeight != 0 {
		cfg.SampleHeight = e.SampleHeight
	}
	return cfg, cfg.Validate()
}

// DatabasePath returns the registry database location.
func (c *Config) DatabasePath() string { return c.resolve(c.Storage.Database) }

// ArchivePath returns the signature archive location.
func (c *Config) ArchivePath() string { return c.resolve(c.Storage.Archive) }

// StatePath returns the seen-set JSON location.
func (c *Config) StatePath() string { return c.resolve(c.Storage.State) }

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) || c.Storage.DataDir == "" {
		return name
	}
	return filepath.Join(c.Storage.DataDir, name)
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvIntPtr(key string, dest **int) error {
	if os.Getenv(key) == "" {
		return nil
	}
	var v int
	if err := parseEnvInt(key, &v); err != nil {
		return err
	}
	*dest = &v
	return nil
}

// parseEnvDuration parses a duration from an environment variable
func parseEnvDuration(key string, dest *Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = Duration(parsed)
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
	return nil
}
