package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

var commandContext = exec.CommandContext

// CaptureTool describes gphoto2 for the given binary.
func CaptureTool(binary string) Requirement {
	return Requirement{
		Name:        "gphoto2",
		Command:     binary,
		Description: "Triggers the tethered camera and downloads each shot",
		VersionArgs: []string{"--version"},
	}
}

// Encoder describes ffmpeg for the given binary.
func Encoder(binary string) Requirement {
	return Requirement{
		Name:        "ffmpeg",
		Command:     binary,
		Description: "Assembles the image sequence into a video",
		VersionArgs: []string{"-version"},
	}
}

func probeVersion(binary string, args []string) string {
	ctx, cancel := context.WithTimeout(context.Background(), versionProbeTimeout)
	defer cancel()
	out, err := commandContext(ctx, binary, args...).CombinedOutput()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
