package config

const (
	defaultDataDir                = "./data"
	defaultLogDir                 = "~/.local/share/timelapsebox/logs"
	defaultLogRetentionDays       = 30
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultCaptureBinary          = "gphoto2"
	defaultDurationMinutes        = 5
	defaultShotCount              = 24
	defaultStaleStagingMaxAgeDays = 2
	defaultTransform              = TransformCopy
	defaultJPEGQuality            = 92
	defaultAssemblyBinary         = "ffmpeg"
	defaultFPS                    = 24
	defaultQuality                = 23
	defaultCodec                  = "libx264"
	defaultPixelFormat            = "yuv420p"
	defaultOutputName             = "timelapse.mp4"
)

// Processing transforms.
const (
	TransformCopy     = "copy"
	TransformReencode = "reencode"
	TransformCommand  = "command"
)

func defaultJPGExtensions() []string {
	return []string{".jpg", ".jpeg"}
}

func defaultRAWExtensions() []string {
	return []string{".cr2", ".cr3", ".nef", ".arw", ".raf", ".dng", ".orf", ".rw2"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Capture: Capture{
			Binary:                 defaultCaptureBinary,
			DurationMinutes:        defaultDurationMinutes,
			ShotCount:              defaultShotCount,
			SnapshotConfig:         true,
			JPGExtensions:          defaultJPGExtensions(),
			RAWExtensions:          defaultRAWExtensions(),
			StaleStagingMaxAgeDays: defaultStaleStagingMaxAgeDays,
		},
		Processing: Processing{
			Transform:   defaultTransform,
			JPEGQuality: defaultJPEGQuality,
		},
		Assembly: Assembly{
			Binary:      defaultAssemblyBinary,
			FPS:         defaultFPS,
			Quality:     defaultQuality,
			Codec:       defaultCodec,
			PixelFormat: defaultPixelFormat,
			OutputName:  defaultOutputName,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
