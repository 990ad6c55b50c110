package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edgedupe "github.com/anatolykoptev/go-edgedupe"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30, cfg.Reddit.SubmissionLimit)
	assert.Equal(t, 5*time.Minute, cfg.Reddit.Interval.Std())
	assert.Equal(t, "Reddit Scrapper", cfg.Webhook.Username)
	assert.Equal(t, filepath.Join("data", "reddit_array.bin"), cfg.ArchivePath())

	engine, err := cfg.Engine.Config()
	require.NoError(t, err)
	assert.Equal(t, edgedupe.DefaultConfig(), engine)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edgedupe.yaml")
	doc := `
reddit:
  submission_limit: 50
  interval: 90s
webhook:
  send_delay: 250ms
storage:
  data_dir: /var/lib/edgedupe
  state: /tmp/state.json
engine:
  match_percent: 0
  line_detect: 200
  sample_width: 256
  sample_height: 256
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 50, cfg.Reddit.SubmissionLimit)
	assert.Equal(t, 90*time.Second, cfg.Reddit.Interval.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Webhook.SendDelay.Std())
	assert.Equal(t, 4, cfg.Reddit.FetchWorkers, "unset fields keep defaults")
	assert.Equal(t, "/var/lib/edgedupe/edgedupe.db", cfg.DatabasePath())
	assert.Equal(t, "/tmp/state.json", cfg.StatePath())

	engine, err := cfg.Engine.Config()
	require.NoError(t, err)
	assert.Equal(t, 0, engine.MatchPercent, "explicit zero is kept")
	assert.Equal(t, 200, engine.LineDetect)
	assert.Equal(t, edgedupe.DefaultSamplePercent, engine.SamplePercent)
	assert.Equal(t, 256, engine.SampleWidth)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reddit: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reddit:\n  interval: soon\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EDGEDUPE_DATA_DIR", "/srv/dupes")
	t.Setenv("EDGEDUPE_SUBMISSION_LIMIT", "10")
	t.Setenv("EDGEDUPE_INTERVAL", "30s")
	t.Setenv("EDGEDUPE_MATCH_PERCENT", "75")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "/srv/dupes/reddit.json", cfg.StatePath())
	assert.Equal(t, 10, cfg.Reddit.SubmissionLimit)
	assert.Equal(t, 30*time.Second, cfg.Reddit.Interval.Std())
	require.NotNil(t, cfg.Engine.MatchPercent)
	assert.Equal(t, 75, *cfg.Engine.MatchPercent)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv("EDGEDUPE_FETCH_WORKERS", "many")
	assert.ErrorContains(t, Default().ApplyEnv(), "EDGEDUPE_FETCH_WORKERS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"limit zero", func(c *Config) { c.Reddit.SubmissionLimit = 0 }},
		{"limit too high", func(c *Config) { c.Reddit.SubmissionLimit = 101 }},
		{"interval too short", func(c *Config) { c.Reddit.Interval = Duration(time.Millisecond) }},
		{"no workers", func(c *Config) { c.Reddit.FetchWorkers = 0 }},
		{"negative delay", func(c *Config) { c.Webhook.SendDelay = Duration(-time.Second) }},
		{"empty archive", func(c *Config) { c.Storage.Archive = "" }},
		{"bad engine", func(c *Config) { v := 0; c.Engine.SamplePercent = &v }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineConfig_ErrConfiguration(t *testing.T) {
	v := 300
	_, err := EngineConfig{LineDetect: &v}.Config()
	assert.ErrorIs(t, err, edgedupe.ErrConfiguration)
}
