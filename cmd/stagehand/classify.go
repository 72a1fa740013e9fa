package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justestif/go-stagehand/internal/genre"
	"github.com/justestif/go-stagehand/internal/tags"
)

func newClassifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "classify ARTIST TITLE",
		Short: "Look up a track's tags and show its genre buckets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lfm, err := newLastfmClient(c.cfg)
			if err != nil {
				return err
			}
			svc := tags.NewService(lfm, tags.WithTimeout(c.cfg.LookupTimeout), tags.WithLogger(c.logger))

			results, err := svc.FetchTagsForTracks(cmd.Context(), []tags.Track{{Artist: args[0], Name: args[1]}})
			if err != nil {
				return err
			}
			res := results[0]
			if res.Error != nil {
				return fmt.Errorf("looking up tags: %w", res.Error)
			}

			names := res.Names()
			buckets := genre.Classify(names)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tags:    %s\n", strings.Join(names, ", "))
			if len(buckets) == 0 {
				fmt.Fprintln(out, "buckets: none")
				return nil
			}
			labels := make([]string, len(buckets))
			for i, b := range buckets {
				labels[i] = b.String()
			}
			fmt.Fprintf(out, "buckets: %s\n", strings.Join(labels, ", "))
			return nil
		},
	}
}
