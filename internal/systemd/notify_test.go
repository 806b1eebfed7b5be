package systemd

import (
	"errors"
	"testing"
)

type recorder struct {
	states []string
	err    error
}

func (r *recorder) send(_ bool, state string) (bool, error) {
	r.states = append(r.states, state)
	return r.err == nil, r.err
}

func TestNotifier(t *testing.T) {
	rec := &recorder{}
	n := &Notifier{send: rec.send}

	if err := n.Ready(2); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if err := n.Status("tearing down"); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if err := n.Stopping(); err != nil {
		t.Fatalf("Stopping() error = %v", err)
	}

	want := []string{
		"READY=1\nSTATUS=Showing 2 cameras",
		"STATUS=tearing down",
		"STOPPING=1",
	}
	if len(rec.states) != len(want) {
		t.Fatalf("states = %q, want %q", rec.states, want)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Errorf("state %d = %q, want %q", i, rec.states[i], want[i])
		}
	}
}

func TestNotifierSingleCamera(t *testing.T) {
	rec := &recorder{}
	n := &Notifier{send: rec.send}
	_ = n.Ready(1)
	if rec.states[0] != "READY=1\nSTATUS=Showing 1 camera" {
		t.Errorf("state = %q", rec.states[0])
	}
}

func TestNotifierError(t *testing.T) {
	n := &Notifier{send: (&recorder{err: errors.New("socket gone")}).send}
	if err := n.Stopping(); err == nil {
		t.Error("Stopping() error = nil, want failure")
	}
}

func TestNotifierNil(t *testing.T) {
	var n *Notifier
	if err := n.Ready(1); err != nil {
		t.Errorf("nil Ready() error = %v", err)
	}
}

func TestNotifierOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	if err := NewNotifier().Ready(1); err != nil {
		t.Errorf("Ready() without NOTIFY_SOCKET error = %v", err)
	}
}
