package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"timelapsebox/internal/config"
	"timelapsebox/internal/testsupport"
)

// gphoto2Stub answers the handful of invocations the CLI makes and drops
// one jpg into the --filename directory on capture.
const gphoto2Stub = `#!/bin/sh
target=""
for arg in "$@"; do
  case "$arg" in
    --version) echo "gphoto2 2.5.28 (stub)"; exit 0 ;;
    --auto-detect)
      echo "Model                          Port"
      echo "----------------------------------------------------------"
      echo "Stub Camera                    usb:001,004"
      exit 0 ;;
    --list-all-config|--list-config) echo "/main/settings/datetime"; echo "Current: 0"; exit 0 ;;
    --filename=*) target="${arg#--filename=}" ;;
  esac
done
if [ -n "$target" ]; then
  printf 'jpeg' > "$(dirname "$target")/capt0001.jpg"
  exit 0
fi
exit 1
`

// ffmpegStub writes a placeholder to the final argument, the output path.
const ffmpegStub = `#!/bin/sh
case "$1" in -version) echo "ffmpeg version stub"; exit 0 ;; esac
for last; do :; done
printf 'mp4' > "$last"
echo "frame=1"
echo "progress=end"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	opts = append([]testsupport.ConfigOption{
		testsupport.WithStubScript("gphoto2", gphoto2Stub),
		testsupport.WithStubScript("ffmpeg", ffmpegStub),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "timelapsebox.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    testsupport.BaseDir(cfg),
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
