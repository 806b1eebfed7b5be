// Package logging provides structured logging with per-module log level configuration.
//
// Records go to stdout (text or JSON) and, when journald is reachable, to the
// systemd journal under the ouvrt-cameras identifier. The default level is
// warn so that an interactive run only shows the capability line printed for
// each camera.
//
// Initialize once at startup, then get one logger per package:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"control": "debug"},
//	})
//
//	logger := logging.GetLogger("devices")
//	logger.Info("Capture device found", "device", name)
//
// Module levels come from the --log-module flag, e.g.
// "control=debug,gstreamer=info".
//
// Journal entries carry attributes as uppercase fields:
//
//	journalctl -t ouvrt-cameras MODULE=control
//	journalctl -t ouvrt-cameras PIPELINE=pipe0
package logging
