package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/go-stagehand/internal/auth"
)

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached Spotify token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := auth.New(auth.Config{
				ClientID:     c.cfg.SpotifyID,
				ClientSecret: c.cfg.SpotifySecret,
			}, c.logger)
			if err != nil {
				return err
			}
			if err := a.Logout(); err != nil {
				return fmt.Errorf("removing token cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Spotify token cache cleared")
			return nil
		},
	}
}
