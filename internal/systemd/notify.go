// Package systemd integrates with the service manager: readiness
// notification and unit state queries.
package systemd

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/ouvrt-cameras/internal/logging"
)

// Notifier sends sd_notify state updates. Outside a Type=notify unit every
// call is a no-op.
type Notifier struct {
	unsetEnv bool
	send     func(unsetEnv bool, state string) (bool, error)
}

// NewNotifier creates a Notifier on NOTIFY_SOCKET.
func NewNotifier() *Notifier {
	return &Notifier{send: daemon.SdNotify}
}

// Ready reports that every camera pipeline is playing.
func (n *Notifier) Ready(cameras int) error {
	return n.notify(daemon.SdNotifyReady + "\n" + statusLine(cameras))
}

// Stopping reports that teardown has begun.
func (n *Notifier) Stopping() error {
	return n.notify(daemon.SdNotifyStopping)
}

// Status updates the free-form status line.
func (n *Notifier) Status(status string) error {
	return n.notify("STATUS=" + status)
}

func (n *Notifier) notify(state string) error {
	if n == nil {
		return nil
	}
	sent, err := n.send(n.unsetEnv, state)
	if err != nil {
		return fmt.Errorf("sd_notify: %w", err)
	}
	if sent {
		logging.GetLogger("systemd").Debug("Notified service manager", "state", state)
	}
	return nil
}

func statusLine(cameras int) string {
	if cameras == 1 {
		return "STATUS=Showing 1 camera"
	}
	return fmt.Sprintf("STATUS=Showing %d cameras", cameras)
}
