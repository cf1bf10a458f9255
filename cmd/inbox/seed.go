package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickpending/inbox/internal/cursor"
	"github.com/nickpending/inbox/internal/db"
	"github.com/nickpending/inbox/internal/feed"
	"github.com/nickpending/inbox/internal/logging"
)

type seedOptions struct {
	count    int
	pins     int
	interval time.Duration
}

func newSeedCmd(root *rootOptions) *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a local database with demo items",
		Long: `Fill a local database with demo items so the viewer can be tried
without a daemon. Use with --local; existing items with the same paths are
replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if !cfg.IsLocal() {
				return fmt.Errorf("seed writes to a local database; pass --local")
			}
			if opts.count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			log := logging.Console(cfg.Log.Level)

			src, err := openSources(cmd.Context(), cfg, &log)
			if err != nil {
				return err
			}
			defer src.close()

			n, err := seed(cmd.Context(), src.store, opts, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d items into %s\n", n, cfg.Local.DBPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.count, "count", 120, "Number of items to create")
	cmd.Flags().IntVar(&opts.pins, "pins", 3, "Number of items to pin")
	cmd.Flags().DurationVar(&opts.interval, "interval", 17*time.Minute, "Time between consecutive items")
	return cmd
}

// demoKinds cycles through the item shapes the viewer renders differently
var demoKinds = []struct {
	ext     string
	mime    string
	preview string
}{
	{".md", "text/markdown", "# Meeting notes %d\n\n- follow up on the **budget**\n- draft the summary\n- book the room"},
	{".txt", "text/plain", "Reminder %d\nPick up the parcel before six.\nBring the receipt."},
	{".png", "image/png", ""},
	{".md", "text/markdown", "## Idea %d\n\nA short thought captured on the go, with a `code` span and a [link](https://example.com)."},
	{".pdf", "application/pdf", ""},
}

// seed inserts opts.count items ending at now, oldest first, and pins
// opts.pins of them every seventh item back from the newest
func seed(ctx context.Context, store *db.Store, opts seedOptions, now time.Time) (int, error) {
	start := now.Add(-time.Duration(opts.count-1) * opts.interval)
	var paths []string
	for i := 0; i < opts.count; i++ {
		kind := demoKinds[i%len(demoKinds)]
		created := start.Add(time.Duration(i) * opts.interval).UTC().Format(cursor.TimeFormat)
		size := int64(512 + i*97)
		mime := kind.mime
		it := feed.Item{
			Path:      fmt.Sprintf("%sdemo-%04d%s", db.InboxPrefix, i, kind.ext),
			IsFolder:  false,
			Size:      &size,
			MimeType:  &mime,
			CreatedAt: created,
		}
		if kind.preview != "" {
			preview := fmt.Sprintf(kind.preview, i)
			it.TextPreview = &preview
		}
		if err := store.Insert(ctx, it); err != nil {
			return i, err
		}
		paths = append(paths, it.Path)
	}

	// spread pins out so jumping to them leaves the live edge
	for i := 0; i < opts.pins; i++ {
		idx := len(paths) - 1 - i*7
		if idx < 0 {
			break
		}
		if err := store.Pin(ctx, paths[idx], now.Add(-time.Duration(i)*time.Minute)); err != nil {
			return len(paths), err
		}
	}
	return len(paths), nil
}
