package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	edgedupe "github.com/anatolykoptev/go-edgedupe"
)

var compareCmd = &cobra.Command{
	Use:   "compare SOURCE OTHER",
	Short: "Compare two images directly",
	Long: `Sample the edges of SOURCE and look for them in OTHER, allowing a few
pixels of drift. Prints the share of sampled edges found and the
difference-hash distance of the two images.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := cfg.Engine.Config()
		if err != nil {
			return err
		}
		c, err := edgedupe.NewComparer(engine)
		if err != nil {
			return err
		}

		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		other, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		res, err := c.CompareBytes(src, other)
		if err != nil {
			return err
		}

		verdict := color.New(color.FgGreen).Sprint("different")
		if res.Match {
			verdict = color.New(color.FgYellow).Sprint("match")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res)
		fmt.Fprintf(out, "Verdict: %s (%d edges sampled, dhash distance %d)\n", verdict, res.Sampled, res.DHashDistance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
