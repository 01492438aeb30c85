package cli

import (
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// ServiceNotifier reports service state to systemd when running under a
// Type=notify unit. Outside systemd every call is a no-op.
type ServiceNotifier struct {
	logger *slog.Logger
}

// NewServiceNotifier creates a notifier.
func NewServiceNotifier(logger *slog.Logger) *ServiceNotifier {
	return &ServiceNotifier{logger: logger}
}

// Ready signals that the service finished starting up.
func (n *ServiceNotifier) Ready() {
	n.notify(daemon.SdNotifyReady)
}

// Stopping signals that the service is shutting down.
func (n *ServiceNotifier) Stopping() {
	n.notify(daemon.SdNotifyStopping)
}

// Status publishes a free-form status line (systemctl status).
func (n *ServiceNotifier) Status(status string) {
	n.notify("STATUS=" + status)
}

func (n *ServiceNotifier) notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
}
