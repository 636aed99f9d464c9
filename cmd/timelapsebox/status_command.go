package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"timelapsebox/internal/preflight"
	"timelapsebox/internal/services/gphoto2"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipCamera bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check configuration, directories, tools, and the camera",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			checks := preflight.RunAll(cmd.Context(), cfg)
			statuses := preflight.CheckSystemDeps(cfg)
			var probe *preflight.CameraProbe
			if !skipCamera && len(statuses) > 0 && statuses[0].Available {
				client, err := gphoto2.New(cfg.Capture.Binary, gphoto2.WithLogger(ctx.loggerValue()))
				if err == nil {
					result := preflight.ProbeCamera(cmd.Context(), client)
					probe = &result
				}
			}

			if ctx.JSONMode() {
				payload := map[string]any{
					"config_path":   ctx.configPath,
					"config_exists": ctx.configExists,
					"checks":        checks,
					"dependencies":  statuses,
				}
				if probe != nil {
					payload["camera"] = map[string]any{
						"detected": probe.Detected,
						"cameras":  probe.Cameras,
						"detail":   probe.Detail(),
					}
				}
				return writeJSON(cmd, payload)
			}

			var lines []string
			lines = append(lines, renderSectionHeader("configuration", colorize)...)
			configDetail := ctx.configPath
			configKind := statusOK
			if !ctx.configExists {
				configDetail += " (not found; using defaults)"
				configKind = statusInfo
			}
			lines = append(lines, renderStatusLine("Config file", configKind, configDetail, colorize))
			lines = append(lines, renderStatusLine("Schedule", statusInfo,
				fmt.Sprintf("%d shots over %d min", cfg.Capture.ShotCount, cfg.Capture.DurationMinutes), colorize))
			lines = append(lines, renderStatusLine("Transform", statusInfo, cfg.Processing.Transform, colorize))
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("directories", colorize)...)
			lines = append(lines, preflightLines(checks, colorize)...)
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("dependencies", colorize)...)
			lines = append(lines, dependencyLines(statuses, colorize)...)
			if probe != nil {
				lines = append(lines, cameraStatusLine(*probe, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipCamera, "skip-camera", false, "Do not probe for a connected camera")
	return cmd
}
