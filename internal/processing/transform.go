package processing

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"timelapsebox/internal/config"
	"timelapsebox/internal/fileutil"
	"timelapsebox/internal/services"
)

var commandContext = exec.CommandContext

// Transform turns one source photo into one output photo. Implementations
// must leave dst either absent or complete.
type Transform interface {
	Name() string
	Apply(ctx context.Context, src, dst string) error
}

// NewTransform builds the transform selected in cfg.
func NewTransform(cfg config.Processing) (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transform)) {
	case "", config.TransformCopy:
		return CopyTransform{}, nil
	case config.TransformReencode:
		return ReencodeTransform{Quality: cfg.JPEGQuality}, nil
	case config.TransformCommand:
		if len(cfg.Command) == 0 {
			return nil, services.Wrap(services.ErrConfiguration, "processing", "transform", "command transform requires processing.command", nil)
		}
		return CommandTransform{Argv: cfg.Command}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "processing", "transform", fmt.Sprintf("unknown transform %q", cfg.Transform), nil)
	}
}

// CopyTransform copies the photo unchanged.
type CopyTransform struct{}

func (CopyTransform) Name() string { return config.TransformCopy }

func (CopyTransform) Apply(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fileutil.CopyFileAtomic(src, dst)
}

// ReencodeTransform decodes the photo and writes it back as a baseline JPEG
// at Quality, dropping EXIF and other metadata segments.
type ReencodeTransform struct {
	Quality int
}

func (ReencodeTransform) Name() string { return config.TransformReencode }

func (t ReencodeTransform) Apply(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}
	quality := t.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return fileutil.WriteAtomic(dst, func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	})
}

// CommandTransform runs an external program per photo. Argv elements may
// contain {input} and {output}; the program writes to a temporary path that
// is renamed over dst only after a zero exit.
type CommandTransform struct {
	Argv []string
}

func (CommandTransform) Name() string { return config.TransformCommand }

func (t CommandTransform) Apply(ctx context.Context, src, dst string) error {
	if len(t.Argv) == 0 {
		return services.Wrap(services.ErrConfiguration, "processing", "command", "empty command", nil)
	}
	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".partial"+filepath.Ext(dst))
	defer os.Remove(tmp)

	args := ExpandArgs(t.Argv, src, tmp)
	cmd := commandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, "processing", "command", detail, err)
	}
	if _, err := os.Stat(tmp); err != nil {
		return services.Wrap(services.ErrExternalTool, "processing", "command", "command exited 0 without writing {output}", err)
	}
	return os.Rename(tmp, dst)
}

// ExpandArgs substitutes {input} and {output} in every element of argv.
func ExpandArgs(argv []string, input, output string) []string {
	replacer := strings.NewReplacer("{input}", input, "{output}", output)
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = replacer.Replace(arg)
	}
	return out
}
