package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	edgedupe "github.com/anatolykoptev/go-edgedupe"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Check local images against the duplicate archive",
	Long: `Run local image files through the same hash and edge checks the
scrape loop uses, in argument order.

By default the archive is only read. With --record, unique images are
added and both stores are written back.

Examples:
  edgedupe check a.jpg b.png
  edgedupe check --record *.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, _ := cmd.Flags().GetBool("record")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pipeline, err := newPipeline(cfg, edgedupe.Unbounded)
		if err != nil {
			return err
		}
		if err := pipeline.Index().Load(cfg.ArchivePath()); err != nil {
			return err
		}
		if err := pipeline.Seen().Load(cfg.StatePath()); err != nil {
			return err
		}

		if _, err := checkFiles(cmd.OutOrStdout(), pipeline, args); err != nil {
			return err
		}
		if !record {
			return nil
		}
		return errors.Join(
			pipeline.Index().Save(cfg.ArchivePath()),
			pipeline.Seen().Save(cfg.StatePath()),
		)
	},
}

func init() {
	checkCmd.Flags().Bool("record", false, "persist unique images to the archive")
	rootCmd.AddCommand(checkCmd)
}

// checkFiles processes paths in order, printing one verdict line each.
// It returns the number of duplicates. Unreadable files abort the run;
// undecodable ones are reported and skipped.
func checkFiles(w io.Writer, p *edgedupe.Pipeline, paths []string) (int, error) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	dups := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return dups, err
		}
		v, err := p.Process(data)
		if err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", red("✗"), path, err)
			continue
		}
		if v.Decision == edgedupe.Duplicate {
			dups++
			fmt.Fprintf(w, "%s %s: duplicate (%s) in %s\n", yellow("≡"), path, v.Reason, v.Elapsed.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(w, "%s %s: unique, %d edges, %dx%d %s\n", green("✓"), path, v.Edges, v.Width, v.Height, v.Format)
	}
	return dups, nil
}
