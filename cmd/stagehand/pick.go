package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/justestif/go-stagehand/internal/catalog"
	"github.com/justestif/go-stagehand/internal/config"
	"github.com/justestif/go-stagehand/internal/genre"
	"github.com/justestif/go-stagehand/internal/replenish"
	"github.com/justestif/go-stagehand/internal/state"
)

// printQueue writes "set next track" effects instead of sending them.
type printQueue struct {
	w io.Writer
}

func (q printQueue) SetNextTrack(_ context.Context, e catalog.Entry) error {
	_, err := fmt.Fprintf(q.w, "  -> %s [%s:%s]\n", e, e.Source, e.ID)
	return err
}

func newPickCmd(c *cli) *cobra.Command {
	var (
		count   int
		buckets []string
	)

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Select and resolve tracks without touching a room",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := parseWeights(buckets)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, cleanup, err := wireApp(ctx, c.cfg, c.logger)
			defer cleanup()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			repl := replenish.New(a.selector, a.resolver, printQueue{w: out},
				replenish.WithMaxAttempts(c.cfg.RetryCap),
				replenish.WithLogger(c.logger),
			)
			rm := state.NewRoom(c.cfg.RingSize, false)

			fmt.Fprintf(out, "weights %s\n", w)
			for i := 1; i <= count; i++ {
				res, err := repl.Replenish(ctx, rm, w)
				if err != nil {
					fmt.Fprintf(out, "%d. no track: %v\n", i, err)
					continue
				}
				fmt.Fprintf(out, "%d. %s - %s (%s, %d attempt(s))\n",
					i, res.Candidate.Artist, res.Candidate.Title, res.Candidate.Bucket, res.Attempts)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&count, "count", "n", 1, "number of tracks to pick in sequence")
	flags.StringSliceVar(&buckets, "bucket", nil, "weight a bucket once per occurrence (hiphop, rock, metal); default uniform")
	flags.Int(config.KeyRingSize, 15, "exclusion ring size")
	flags.String(config.KeyPoolFile, "", "curated artist pool (TOML or YAML)")

	return cmd
}

func parseWeights(names []string) (genre.Weights, error) {
	var w genre.Weights
	for _, name := range names {
		b, err := genre.ParseBucket(name)
		if err != nil {
			return genre.Weights{}, err
		}
		w.Add(b)
	}
	if w.IsZero() {
		return genre.Uniform(), nil
	}
	return w, nil
}
