package main

import (
	"context"
	"flag"
	"os"

	"f1telemetryapi/pkg/config"
	"f1telemetryapi/pkg/provider"
	"f1telemetryapi/pkg/webserver"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
	}
	logger := cfg.Logger()

	if err := cfg.EnsureCacheDir(); err != nil {
		logger.WithError(err).Fatal("could not prepare cache")
	}

	source, err := buildSource(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("could not set up provider")
	}

	cache, err := provider.NewCache(cfg.CacheDir, source, logger.WithField("component", "cache"))
	if err != nil {
		logger.WithError(err).Fatal("could not open provider cache")
	}
	defer cache.Close()

	if stats, err := cache.Stats(); err == nil {
		logger.Infof("provider cache at %s: %s", cfg.CacheDir, stats)
	}

	gateway := provider.NewGateway(cache, logger.WithField("component", "provider"))
	api := webserver.NewAPI(gateway, cfg.DefaultSessionType, cfg.ReplayInterval, logger.WithField("component", "api"))

	if args := flag.Args(); len(args) > 0 {
		if args[0] != "inspect" {
			logger.Fatalf("unknown command %q", args[0])
		}
		if err := runInspect(context.Background(), api, args[1:], os.Stdout); err != nil {
			logger.WithError(err).Fatal("inspect failed")
		}
		return
	}

	m := webserver.NewManager(cfg.Address, cfg.ProviderTimeout, api, logger.WithField("component", "webserver"))
	m.Debug()
	if err := m.Serve(); err != nil {
		logger.WithError(err).Fatal("webserver stopped")
	}
}

// buildSource picks where provider rows come from: the fixture file, the
// fixture served by a local mock upstream, or the real upstream service.
func buildSource(cfg config.Config, logger logrus.FieldLogger) (provider.Source, error) {
	if cfg.FixtureFile == "" {
		return provider.NewHTTPSource(cfg.ProviderURL, cfg.ProviderTimeout), nil
	}

	fixture, err := provider.LoadFixtureFile(cfg.FixtureFile)
	if err != nil {
		return nil, errors.Wrap(err, "loading fixture")
	}
	if cfg.MockUpstream == "" {
		logger.Infof("serving provider data from %s", cfg.FixtureFile)
		return fixture, nil
	}

	baseURL := CreateMockUpstream(cfg.MockUpstream, fixture, logger)
	return provider.NewHTTPSource(baseURL, cfg.ProviderTimeout), nil
}
