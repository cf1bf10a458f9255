package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickpending/inbox/internal/feed"
	"github.com/nickpending/inbox/internal/logging"
)

func newPinsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pins",
		Short: "List pinned items with their cursors",
		Long: `List pinned items, newest pin first. The cursor column can be passed
to --jump or to :jump inside the viewer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log := logging.Console(cfg.Log.Level)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout())
			defer cancel()

			src, err := openSources(ctx, cfg, &log)
			if err != nil {
				return err
			}
			defer src.close()

			pins, err := src.pins.Pinned(ctx)
			if err != nil {
				return fmt.Errorf("failed to list pins: %w", err)
			}
			return printPins(cmd.OutOrStdout(), pins, time.Now())
		},
	}
}

// printPins writes one aligned row per pin
func printPins(w io.Writer, pins []feed.Pin, now time.Time) error {
	if len(pins) == 0 {
		_, err := fmt.Fprintln(w, "Nothing pinned.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PINNED\tITEM\tCURSOR")
	for _, p := range pins {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", pinnedAgo(p.PinnedAt, now), p.DisplayText, p.Cursor)
	}
	return tw.Flush()
}

func pinnedAgo(pinnedAt string, now time.Time) string {
	t, err := time.Parse(time.RFC3339Nano, pinnedAt)
	if err != nil {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Local().Format("2006-01-02")
}
