// Package main implements pulse, a command line reporter for agentpulse-server.
//
// Shell-scripted agents use it to send heartbeats and terminal events:
//
//	pulse emit --agent-id crawler-1 --run-id "$RUN" --status heartbeat --message "page 3"
//	pulse emit --agent-id crawler-1 --run-id "$RUN" --status completion --duration 5s
//	pulse status
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

const (
	defaultServer = "http://localhost:8080"
	serverEnv     = "AGENTPULSE_SERVER"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	server := defaultServer
	if v := os.Getenv(serverEnv); v != "" {
		server = v
	}

	rootCmd := &cobra.Command{
		Use:          "pulse",
		Short:        "pulse reports agent health events to agentpulse-server",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().StringVar(&server, "server", server, "agentpulse-server base URL (env "+serverEnv+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddCommand(
		newEmitCmd(&server),
		newStatusCmd(&server),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of pulse",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "pulse version %s\n", Version)
				return err
			},
		},
	)
	return rootCmd
}
