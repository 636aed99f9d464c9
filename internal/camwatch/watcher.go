package camwatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
)

// Event describes the camera that appeared.
type Event struct {
	Action  string
	DevPath string
	DevName string
	Vendor  string
	Model   string
}

// Label is a human-readable name for the camera.
func (e Event) Label() string {
	label := strings.TrimSpace(strings.ReplaceAll(e.Vendor+" "+e.Model, "_", " "))
	if label == "" {
		return e.DevName
	}
	return label
}

type monitor interface {
	Monitor(queue chan netlink.UEvent, errs chan error, matcher netlink.Matcher) chan struct{}
	Close() error
}

// Watcher listens for camera hot-plug events.
type Watcher struct {
	logger  *slog.Logger
	connect func() (monitor, error)
}

// New returns a Watcher bound to the kernel udev netlink socket.
func New(logger *slog.Logger) *Watcher {
	return &Watcher{
		logger: logging.NewComponentLogger(logger, "camwatch"),
		connect: func() (monitor, error) {
			conn := new(netlink.UEventConn)
			if err := conn.Connect(netlink.UdevEvent); err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

// Wait blocks until a camera add event arrives, timeout elapses, or ctx is
// done. A timeout fails with services.ErrNotFound; an unusable netlink
// socket fails with services.ErrExternalTool so callers can fall back to
// capturing without waiting.
func (w *Watcher) Wait(ctx context.Context, timeout time.Duration) (Event, error) {
	conn, err := w.connect()
	if err != nil {
		return Event{}, services.Wrap(services.ErrExternalTool, "camwatch", "connect", "udev netlink socket unavailable", err)
	}
	defer conn.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, Matcher())
	defer close(quit)

	w.logger.Info("waiting for camera",
		logging.Duration("timeout", timeout),
		logging.String(logging.FieldEventType, "camera_wait_started"),
	)
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return Event{}, services.Wrap(services.ErrNotFound, "camwatch", "wait", "no camera connected within "+timeout.String(), nil)
			}
			return Event{}, ctx.Err()
		case uevent := <-queue:
			event := eventFrom(uevent)
			w.logger.Info("camera connected",
				logging.String("camera", event.Label()),
				logging.String("devpath", event.DevPath),
				logging.String(logging.FieldEventType, "camera_detected"),
			)
			return event, nil
		case err := <-errs:
			w.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "camera detection may be delayed"),
			)
		}
	}
}

// Matcher accepts udev add events that libgphoto2's udev rules tag with
// ID_GPHOTO2=1.
func Matcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":  "usb",
			"ID_GPHOTO2": "1",
		},
	})
	return rules
}

func eventFrom(uevent netlink.UEvent) Event {
	return Event{
		Action:  string(uevent.Action),
		DevPath: uevent.Env["DEVPATH"],
		DevName: uevent.Env["DEVNAME"],
		Vendor:  firstNonEmpty(uevent.Env["ID_VENDOR_FROM_DATABASE"], uevent.Env["ID_VENDOR"]),
		Model:   firstNonEmpty(uevent.Env["ID_MODEL_FROM_DATABASE"], uevent.Env["ID_MODEL"]),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
