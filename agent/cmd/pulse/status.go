package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentpulse/agentpulse/agent/internal/reporter"
	"github.com/agentpulse/agentpulse/pkg/types"
)

// newStatusCmd creates the status command, which prints the health snapshot.
func newStatusCmd(server *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current agent health summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := reporter.New(*server)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			snap, err := client.Snapshot(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			return printSummary(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot")
	return cmd
}

func printSummary(w io.Writer, snap types.Snapshot) error {
	t := snap.Totals
	rate := "n/a"
	if r := snap.SuccessRate24h.Rate; r != nil {
		rate = fmt.Sprintf("%.1f%%", *r*100)
	}

	p := func(format string, a ...interface{}) { _, _ = fmt.Fprintf(w, format, a...) }

	p("status:        %s\n", snap.Status)
	p("generated at:  %s\n", snap.GeneratedAt.Format(time.RFC3339))
	p("events:        %d in %d sessions\n", t.Events, t.Sessions)
	p("active:        %d\n", t.ActiveSessions)
	p("stalled:       %d\n", t.StalledSessions)
	p("stuck:         %d\n", t.PotentiallyStuckSessions)
	p("success rate:  %s (%d ok / %d failed)\n", rate, snap.SuccessRate24h.Success, snap.SuccessRate24h.Error)

	for _, s := range snap.StalledOrStuckSessions {
		p("  [%s] %s silent for %s\n", s.Severity, s.Key, (time.Duration(s.SinceLastMs) * time.Millisecond).Round(time.Second))
	}
	if len(snap.AverageRunDurationByAgentType) > 0 {
		p("avg duration:\n")
		for _, d := range snap.AverageRunDurationByAgentType {
			p("  %-12s %s over %d runs\n", d.AgentType, time.Duration(d.AvgDurationMs)*time.Millisecond, d.Runs)
		}
	}
	return nil
}
