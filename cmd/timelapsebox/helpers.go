package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"timelapsebox/internal/services"
	"timelapsebox/internal/session"
)

// optionalArg returns args[i] trimmed, or "" when absent.
func optionalArg(args []string, i int) string {
	if i < len(args) {
		return strings.TrimSpace(args[i])
	}
	return ""
}

func parsePositiveInt(name, raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, services.Wrap(services.ErrConfiguration, "cli", "args", fmt.Sprintf("%s must be a positive integer, got %q", name, raw), nil)
	}
	return n, nil
}

func parseNonNegativeInt(name, raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, services.Wrap(services.ErrConfiguration, "cli", "args", fmt.Sprintf("%s must be a non-negative integer, got %q", name, raw), nil)
	}
	return n, nil
}

// parseMinutes accepts fractional minutes so short test runs are possible.
func parseMinutes(raw string, fallback int) (float64, error) {
	if raw == "" {
		return float64(fallback), nil
	}
	minutes, err := strconv.ParseFloat(raw, 64)
	if err != nil || minutes <= 0 {
		return 0, services.Wrap(services.ErrConfiguration, "cli", "args", fmt.Sprintf("duration-minutes must be a positive number, got %q", raw), nil)
	}
	return minutes, nil
}

func resolveSession(ctx *commandContext, arg string) (session.Directory, error) {
	manager, err := ctx.sessionManager()
	if err != nil {
		return session.Directory{}, err
	}
	return manager.Resolve(arg)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
