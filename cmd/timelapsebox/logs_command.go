package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"timelapsebox/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var phase string
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs [directory]",
		Short: "Display a session's logs",
		Long: `Print the combined session_log.txt of a session, or one phase's log
with --phase capture|processing|assembly. Without a directory the most
recent session is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveSession(ctx, optionalArg(args, 0))
			if err != nil {
				return err
			}
			path, err := logs.SessionFile(dir.Path, phase)
			if err != nil {
				return err
			}

			opts := logs.TailOptions{Offset: -1, Limit: lines}
			if lines <= 0 {
				opts = logs.TailOptions{Offset: 0}
			}
			result, err := logs.Tail(cmd.Context(), path, opts)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			out := cmd.OutOrStdout()
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(result.Lines) == 0 {
					if _, statErr := os.Stat(path); statErr != nil {
						fmt.Fprintf(out, "No log file at %s\n", path)
					} else {
						fmt.Fprintln(out, "No log entries available")
					}
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, result.Offset, func(batch []string) {
				for _, line := range batch {
					fmt.Fprintln(out, line)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&phase, "phase", "p", "", "Show only this phase's log (capture, processing, assembly)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	return cmd
}
