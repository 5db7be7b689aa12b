package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"
)

func (a *app) pingCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check the health of the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if wait > 0 {
				if err := a.client.WaitReady(cmd.Context(), backoff.WithMaxElapsedTime(wait)); err != nil {
					return err
				}
			}
			status, err := a.client.Ping(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "keep retrying for up to this long until the gateway answers")
	return cmd
}

func (a *app) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured providers, models and capabilities in fallback order",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVIDER\tMODEL\tCAPABILITIES")
			for _, p := range a.client.Registry().Providers() {
				for _, m := range p.Models {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Creds, m.Name, m.Capabilities)
				}
			}
			return tw.Flush()
		},
	}
}
