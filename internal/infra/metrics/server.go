package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the registry for scraping while a run is in progress.
type Server struct {
	http *http.Server
	ln   net.Listener
}

// StartServer binds addr (host:port, port 0 picks a free one) before
// returning, so a taken port fails the run instead of a background goroutine.
// The server serves /metrics and /healthz until Shutdown or ctx is done.
func StartServer(ctx context.Context, addr string, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog: zap.NewStdLog(logger),
		}),
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s := &Server{
		http: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		},
		ln: ln,
	}

	go func() {
		logger.Info("metrics server listening", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
