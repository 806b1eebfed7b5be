package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DefaultCameraService is the user unit that publishes the cameras.
const DefaultCameraService = "ouvrtd.service"

// Manager queries unit state over the user D-Bus session.
type Manager struct {
	conn *dbus.Conn
}

// NewManager creates a new systemd manager with a user-level D-Bus connection.
func NewManager(ctx context.Context) (*Manager, error) {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Manager{conn: conn}, nil
}

// ServiceStatus retrieves the ActiveState property of a unit.
func (m *Manager) ServiceStatus(ctx context.Context, unit string) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
	if err != nil {
		return "", err
	}
	return prop.Value.String(), nil
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// ServiceStatus opens a short-lived connection and reports the ActiveState
// of unit.
func ServiceStatus(ctx context.Context, unit string) (string, error) {
	m, err := NewManager(ctx)
	if err != nil {
		return "", err
	}
	defer m.Close()
	return m.ServiceStatus(ctx, unit)
}
