package main

import (
	"net/http"
	"strings"

	"f1telemetryapi/pkg/provider"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// CreateMockUpstream serves the fixture with the upstream URL layout on addr
// in a goroutine and returns the base URL to reach it.
func CreateMockUpstream(addr string, fixture *provider.FixtureSource, logger logrus.FieldLogger) string {
	go createMockServer(addr, fixture, logger)
	return mockUpstreamURL(addr)
}

func mockUpstreamURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}

func createMockServer(addr string, fixture *provider.FixtureSource, logger logrus.FieldLogger) {
	r := mux.NewRouter()
	r.PathPrefix("/schedule/").Handler(fixture).Methods(http.MethodGet)
	r.PathPrefix("/sessions/").Handler(fixture).Methods(http.MethodGet)

	logger.Infof("mock upstream listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.WithError(err).Error("mock upstream stopped")
	}
}
