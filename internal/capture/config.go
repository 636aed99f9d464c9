package capture

import (
	"fmt"
	"math"
	"time"

	"timelapsebox/internal/services"
)

// SessionConfig bounds a capture session. It is fixed once Run starts.
type SessionConfig struct {
	TotalDuration  time.Duration
	TotalShotCount int
}

// NewSessionConfig builds a config from the user-facing duration in minutes.
func NewSessionConfig(durationMinutes float64, shotCount int) (SessionConfig, error) {
	if math.IsNaN(durationMinutes) || math.IsInf(durationMinutes, 0) {
		return SessionConfig{}, services.Wrap(services.ErrConfiguration, "capture", "config", "duration must be a finite number", nil)
	}
	cfg := SessionConfig{
		TotalDuration:  time.Duration(durationMinutes * float64(time.Minute)),
		TotalShotCount: shotCount,
	}
	return cfg, cfg.Validate()
}

// Validate rejects non-positive durations or shot counts with
// services.ErrConfiguration.
func (c SessionConfig) Validate() error {
	if c.TotalDuration <= 0 {
		return services.Wrap(services.ErrConfiguration, "capture", "config", fmt.Sprintf("total duration must be positive, got %s", c.TotalDuration), nil)
	}
	if c.TotalShotCount <= 0 {
		return services.Wrap(services.ErrConfiguration, "capture", "config", fmt.Sprintf("total shot count must be positive, got %d", c.TotalShotCount), nil)
	}
	if c.Interval() <= 0 {
		return services.Wrap(services.ErrConfiguration, "capture", "config", "interval between shots rounds to zero", nil)
	}
	return nil
}

// Interval is TotalDuration / TotalShotCount without rounding to whole
// seconds. It is zero for an invalid config.
func (c SessionConfig) Interval() time.Duration {
	if c.TotalShotCount <= 0 {
		return 0
	}
	return c.TotalDuration / time.Duration(c.TotalShotCount)
}

// schedule is the span covered by TotalShotCount whole intervals. It can be
// shorter than TotalDuration by the nanoseconds Interval truncated.
func (c SessionConfig) schedule() time.Duration {
	return c.Interval() * time.Duration(c.TotalShotCount)
}

// Progress is emitted after every capture attempt, successful or not.
type Progress struct {
	ShotsCaptured   int
	TotalShotCount  int
	PercentComplete int
	ElapsedMinutes  float64
	Attempt         int
	Failed          bool
}

func newProgress(shots, total, attempt int, elapsed time.Duration, failed bool) Progress {
	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(shots) / float64(total) * 100))
	}
	return Progress{
		ShotsCaptured:   shots,
		TotalShotCount:  total,
		PercentComplete: percent,
		ElapsedMinutes:  elapsed.Minutes(),
		Attempt:         attempt,
		Failed:          failed,
	}
}
