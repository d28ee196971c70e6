//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
)

// Status represents the status server: metrics and healthcheck
type Status struct {
	cfg    config.Config
	lg     *zap.Logger
	server *http.Server
	addr   net.Addr
}

type healthcheck struct{}

func (h *healthcheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "panoptes-dash alive and reachable")
}

// New constructs a status server
func New(cfg config.Config) *Status {
	return &Status{
		cfg: cfg,
		lg:  cfg.Logger(),
	}
}

// Start listens on the configured address and serves in the background
func (s *Status) Start() error {
	addr := s.cfg.Global().Status.Addr
	if addr == "" {
		addr = config.DefaultStatusAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthcheck", new(healthcheck))

	s.addr = ln.Addr()
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.lg.Error("status", zap.Error(err))
		}
	}()

	s.lg.Info("status", zap.String("event", "started"), zap.String("address", s.addr.String()))

	return nil
}

// Addr returns the listening address
func (s *Status) Addr() string {
	if s.addr == nil {
		return ""
	}

	return s.addr.String()
}

// Stop shuts down the status server
func (s *Status) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}
