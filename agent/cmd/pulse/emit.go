package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentpulse/agentpulse/agent/internal/reporter"
	"github.com/agentpulse/agentpulse/pkg/types"
)

type emitOptions struct {
	agentID   string
	agentType string
	runID     string
	status    string
	message   string
	duration  time.Duration
	startedAt string
	progress  string
	meta      string
	ts        string
}

// newEmitCmd creates the emit command, which submits one health event.
func newEmitCmd(server *string) *cobra.Command {
	var o emitOptions

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Send one health event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := o.input(cmd)
			if err != nil {
				return err
			}

			client, err := reporter.New(*server)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ev, err := client.Send(ctx, in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ev.ID)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.agentID, "agent-id", "", "agent identifier (required)")
	f.StringVar(&o.agentType, "agent-type", "", "agent category, e.g. crawler")
	f.StringVar(&o.runID, "run-id", "", "run identifier; events without one share the default run")
	f.StringVar(&o.status, "status", string(types.StatusHeartbeat), "heartbeat | error | completion")
	f.StringVar(&o.message, "message", "", "free-form message")
	f.DurationVar(&o.duration, "duration", 0, "run duration, sent with completions")
	f.StringVar(&o.startedAt, "started-at", "", "run start time (RFC 3339), sent with completions")
	f.StringVar(&o.progress, "progress", "", "progress as a JSON value")
	f.StringVar(&o.meta, "meta", "", "metadata as a JSON value")
	f.StringVar(&o.ts, "ts", "", "event time (RFC 3339); defaults to the server's clock")
	_ = cmd.MarkFlagRequired("agent-id")

	return cmd
}

// input validates the flags and builds the ingestion payload.
func (o emitOptions) input(cmd *cobra.Command) (types.Input, error) {
	status := types.Status(o.status)
	if !status.Valid() {
		return types.Input{}, fmt.Errorf("--status %q: must be heartbeat, error or completion", o.status)
	}

	in := types.Input{
		TS:        o.ts,
		AgentID:   o.agentID,
		AgentType: o.agentType,
		RunID:     o.runID,
		Status:    status,
		Message:   o.message,
		StartedAt: o.startedAt,
	}

	if cmd.Flags().Changed("duration") {
		if o.duration < 0 {
			return types.Input{}, fmt.Errorf("--duration must not be negative")
		}
		ms := float64(o.duration) / float64(time.Millisecond)
		in.DurationMs = &ms
	}

	var err error
	if in.Progress, err = rawJSON("progress", o.progress); err != nil {
		return types.Input{}, err
	}
	if in.Meta, err = rawJSON("meta", o.meta); err != nil {
		return types.Input{}, err
	}
	return in, nil
}

func rawJSON(flag, v string) (json.RawMessage, error) {
	if v == "" {
		return nil, nil
	}
	if !json.Valid([]byte(v)) {
		return nil, fmt.Errorf("--%s: not valid JSON", flag)
	}
	return json.RawMessage(v), nil
}
