package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-edgedupe/internal/registry"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage delivery webhooks",
}

var webhookAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Register a webhook",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		defer store.Close()

		wh, err := store.AddWebhook(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added webhook %s (id %d)\n", wh.Name, wh.ID)
		return nil
	},
}

var webhookRemoveCmd = &cobra.Command{
	Use:   "remove WEBHOOK",
	Short: "Remove a webhook and unlink its subreddits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RemoveWebhook(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed webhook %s\n", args[0])
		return nil
	},
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List webhooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		defer store.Close()
		return listWebhooks(cmd.Context(), cmd.OutOrStdout(), store)
	},
}

func init() {
	webhookCmd.AddCommand(webhookAddCmd, webhookRemoveCmd, webhookListCmd)
	rootCmd.AddCommand(webhookCmd)
}

func listWebhooks(ctx context.Context, w io.Writer, store *registry.Store) error {
	hooks, err := store.Webhooks(ctx)
	if err != nil {
		return err
	}
	if len(hooks) == 0 {
		fmt.Fprintln(w, "No webhooks registered")
		return nil
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	for _, wh := range hooks {
		fmt.Fprintf(w, "%s %s  %s\n", cyan(wh.ID), wh.Name, redactURL(wh.URL))
	}
	return nil
}

// redactURL hides the token part of a webhook URL.
func redactURL(u string) string {
	i := strings.LastIndexByte(u, '/')
	if i < 0 || i == len(u)-1 {
		return u
	}
	tail := u[i+1:]
	if len(tail) <= 4 {
		return u
	}
	return u[:i+1] + tail[:4] + strings.Repeat("*", 8)
}
