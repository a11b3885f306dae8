package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config is the whole process configuration. It is read once at start up
// and handed explicitly to the components that need it.
type Config struct {
	Address            string        `yaml:"address"`
	CacheDir           string        `yaml:"cache_dir"`
	ProviderURL        string        `yaml:"provider_url"`
	ProviderTimeout    time.Duration `yaml:"provider_timeout"`
	FixtureFile        string        `yaml:"fixture_file"`
	MockUpstream       string        `yaml:"mock_upstream"`
	DefaultSessionType string        `yaml:"default_session_type"`
	LogLevel           string        `yaml:"log_level"`
	ReplayInterval     time.Duration `yaml:"replay_interval"`
}

func Default() Config {
	return Config{
		Address:            ":8000",
		CacheDir:           "cache",
		ProviderURL:        "http://127.0.0.1:8100",
		ProviderTimeout:    2 * time.Minute,
		DefaultSessionType: "R",
		LogLevel:           "info",
		ReplayInterval:     100 * time.Millisecond,
	}
}

// Load builds the configuration from the defaults, the optional YAML file
// at path and the environment, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "reading config file")
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"WEBSERVER_ADDRESS": &c.Address,
		"CACHE_DIR":         &c.CacheDir,
		"PROVIDER_URL":      &c.ProviderURL,
		"FIXTURE_FILE":      &c.FixtureFile,
		"MOCK_UPSTREAM":     &c.MockUpstream,
		"SESSION_TYPE":      &c.DefaultSessionType,
		"LOG_LEVEL":         &c.LogLevel,
	}
	for env, dst := range strs {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PROVIDER_TIMEOUT": &c.ProviderTimeout,
		"REPLAY_INTERVAL":  &c.ReplayInterval,
	}
	for env, dst := range durations {
		v, ok := lookup(env)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			// plain seconds are accepted too
			secs, serr := strconv.ParseFloat(v, 64)
			if serr != nil {
				return errors.Wrapf(err, "parsing %s", env)
			}
			d = time.Duration(secs * float64(time.Second))
		}
		*dst = d
	}
	return nil
}

func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("config: address is required")
	}
	if c.CacheDir == "" {
		return errors.New("config: cache_dir is required")
	}
	if c.FixtureFile == "" && c.ProviderURL == "" {
		return errors.New("config: either provider_url or fixture_file is required")
	}
	if c.ProviderTimeout <= 0 {
		return errors.New("config: provider_timeout must be positive")
	}
	if c.ReplayInterval <= 0 {
		return errors.New("config: replay_interval must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// Logger builds the process logger at the configured level.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// EnsureCacheDir creates the cache directory when it does not exist.
func (c Config) EnsureCacheDir() error {
	if _, err := os.Stat(c.CacheDir); os.IsNotExist(err) {
		return errors.Wrap(os.MkdirAll(c.CacheDir, 0o755), "creating cache dir")
	}
	return nil
}
