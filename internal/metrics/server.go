package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/ouvrt-cameras/internal/logging"
)

// Server serves /metrics and /healthz on a dedicated listener.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger logging.Logger
	done   chan struct{}
}

// NewRouter returns the metrics routes.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

// Listen binds addr and starts serving in the background.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv: &http.Server{
			Handler:           NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logging.GetLogger("metrics"),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", "error", err)
		}
	}()

	s.logger.Info("Serving metrics", "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server and waits for the serve goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
