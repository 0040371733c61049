package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/module/component"
	"github.com/onflow/relay-node/module/irrecoverable"
)

const shutdownTimeout = 5 * time.Second

// Server is the http server that will be serving the /metrics request for prometheus
type Server struct {
	component.Component

	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a new server that will start on the specified port,
// and responds to only the `/metrics` endpoint
func NewServer(log zerolog.Logger, port uint, gatherer prometheus.Gatherer) *Server {
	addr := ":" + strconv.Itoa(int(port))

	mux := http.NewServeMux()
	endpoint := "/metrics"
	mux.Handle(endpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	m := &Server{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		log:    log.With().Str("component", "metrics-server").Str("address", addr).Logger(),
	}

	m.Component = component.NewComponentManagerBuilder().
		AddWorker(m.serve).
		Build()

	return m
}

func (m *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	errChan := make(chan error, 1)
	go func() {
		errChan <- m.server.ListenAndServe()
	}()
	m.log.Info().Str("endpoint", "/metrics").Msg("metrics server started")
	ready()

	select {
	case err := <-errChan:
		// the node keeps running without metrics
		m.log.Err(err).Msg("metrics server stopped unexpectedly")
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.log.Err(err).Msg("error shutting down metrics server")
		return
	}
	m.log.Debug().Msg("metrics server shutdown")
}
