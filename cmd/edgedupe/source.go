package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-edgedupe/internal/reddit"
	"github.com/anatolykoptev/go-edgedupe/internal/registry"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage watched subreddits",
}

var sourceAddCmd = &cobra.Command{
	Use:   "add SUBREDDIT",
	Short: "Watch a subreddit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noVerify, _ := cmd.Flags().GetBool("no-verify")
		store, cfg, err := openRegistry()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if !noVerify {
			ok, err := reddit.NewClient(cfg.Reddit.UserAgent).Exists(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("unable to find the subreddit r/%s", args[0])
			}
		}
		sub, err := store.AddSubreddit(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added r/%s\n", sub.Name)
		return nil
	},
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove SUBREDDIT",
	Short: "Stop watching a subreddit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.RemoveSubreddit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d subreddit(s)\n", n)
		return nil
	},
}

var sourceSetWebhookCmd = &cobra.Command{
	Use:   "set-webhook SUBREDDIT WEBHOOK",
	Short: "Link a subreddit to a webhook (name, URL, id or \"none\")",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		defer store.Close()

		sub, err := store.SetWebhook(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated r/%s\n", sub.Name)
		return nil
	},
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched subreddits",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		defer store.Close()
		return listSources(cmd.Context(), cmd.OutOrStdout(), store)
	},
}

func init() {
	sourceAddCmd.Flags().Bool("no-verify", false, "skip checking that the subreddit exists")
	sourceCmd.AddCommand(sourceAddCmd, sourceRemoveCmd, sourceSetWebhookCmd, sourceListCmd)
	rootCmd.AddCommand(sourceCmd)
}

// listSources prints each subreddit with a mark showing whether it has a webhook.
func listSources(ctx context.Context, w io.Writer, store *registry.Store) error {
	sources, err := store.Sources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(w, "No subreddits registered")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	for _, src := range sources {
		mark := green("✓")
		if src.WebhookURL == "" {
			mark = red("✗")
		}
		fmt.Fprintf(w, "%s r/%s\n", mark, src.Name)
	}
	return nil
}
