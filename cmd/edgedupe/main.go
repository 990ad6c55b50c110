// Command edgedupe watches subreddits and forwards new, non-duplicate
// images to webhooks. It also exposes the duplicate engine offline.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	edgedupe "github.com/anatolykoptev/go-edgedupe"
	"github.com/anatolykoptev/go-edgedupe/internal/config"
	"github.com/anatolykoptev/go-edgedupe/internal/registry"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "edgedupe",
	Short: "Near-duplicate image filter for subreddit feeds",
	Long: `edgedupe polls subreddits for new image posts, drops exact and
near-duplicate images using edge signatures, and forwards the rest to
Discord-style webhooks.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "edgedupe.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newPipeline builds an empty pipeline from the engine settings.
func newPipeline(cfg *config.Config, capacity int) (*edgedupe.Pipeline, error) {
	engine, err := cfg.Engine.Config()
	if err != nil {
		return nil, err
	}
	x, err := edgedupe.NewExtractor(engine)
	if err != nil {
		return nil, err
	}
	idx, err := edgedupe.NewIndex(engine, capacity)
	if err != nil {
		return nil, err
	}
	return edgedupe.NewPipeline(x, idx, edgedupe.NewSeenSet(capacity)), nil
}

func openRegistry() (*registry.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := registry.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
