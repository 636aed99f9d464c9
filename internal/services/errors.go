package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrCapture        = errors.New("capture error")
	ErrNoAsset        = errors.New("no asset produced")
	ErrConfigSnapshot = errors.New("config snapshot error")
	ErrEncoding       = errors.New("encoding error")
	ErrFilesystem     = errors.New("filesystem error")
	ErrNotFound       = errors.New("not found")
	ErrExternalTool   = errors.New("external tool error")
	ErrBusy           = errors.New("busy")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureKind maps an error onto the short label recorded in session logs and
// the session catalog.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNoAsset):
		return "no_asset"
	case errors.Is(err, ErrCapture):
		return "capture"
	case errors.Is(err, ErrConfigSnapshot):
		return "config_snapshot"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrFilesystem):
		return "filesystem"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
