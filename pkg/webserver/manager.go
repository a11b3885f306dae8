package webserver

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Manager struct {
	r       *mux.Router
	addr    string
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewManager builds the router with every API route mounted. timeout bounds
// how long a single response may take to be written, so it must cover a
// cold provider load.
func NewManager(addr string, timeout time.Duration, api *API, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &Manager{
		r:       mux.NewRouter(),
		addr:    addr,
		timeout: timeout,
		logger:  logger,
	}

	m.rootHandlers()
	api.register(m.r)
	return m
}

func (m *Manager) rootHandlers() {
	m.r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the router wrapped by the CORS layer. Preflight requests
// never reach the router.
func (m *Manager) Handler() http.Handler {
	return cors(m.r)
}

func (m *Manager) Debug() {
	_ = m.r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		fields := logrus.Fields{}
		if pathTemplate, err := route.GetPathTemplate(); err == nil {
			fields["route"] = pathTemplate
		}
		if pathRegexp, err := route.GetPathRegexp(); err == nil {
			fields["regexp"] = pathRegexp
		}
		if methods, err := route.GetMethods(); err == nil {
			fields["methods"] = strings.Join(methods, ",")
		}
		m.logger.WithFields(fields).Debug("route")
		return nil
	})
}

// Serve blocks until SIGINT or SIGTERM and then shuts the server down,
// letting in-flight requests finish for a few seconds.
func (m *Manager) Serve() error {
	srv := &http.Server{
		Addr:         m.addr,
		WriteTimeout: m.timeout + 15*time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
		Handler:      m.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		m.logger.Infof("webserver listening on %s", m.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case err, ok := <-errc:
		if ok {
			return err
		}
		return nil
	case <-c:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.logger.Info("webserver shutting down")
	return srv.Shutdown(ctx)
}
