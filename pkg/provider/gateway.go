package provider

import (
	"context"
	"math"
	"time"

	"f1telemetryapi/pkg/metrics"

	"github.com/hako/durafmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Gateway opens provider sessions and fetches only the data subsets each
// query needs.
type Gateway struct {
	source Source
	logger logrus.FieldLogger
}

func NewGateway(source Source, logger logrus.FieldLogger) *Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gateway{
		source: source,
		logger: logger,
	}
}

// EventSchedule returns the calendar of a season. No session is involved.
func (g *Gateway) EventSchedule(ctx context.Context, year int) (Rows, error) {
	if year <= 0 {
		return nil, &ProviderError{Op: "schedule", Err: errors.Errorf("invalid year %d", year)}
	}
	return g.fetch(ctx, Dataset{Kind: KindSchedule, Year: year})
}

// OpenSession creates an unloaded session handle. It does no I/O.
func (g *Gateway) OpenSession(year, round int, sessionType string) (*Session, error) {
	st, ok := NormalizeSessionType(sessionType)
	if !ok {
		return nil, &ProviderError{Op: "open session", Err: errors.Errorf("unknown session type %q", sessionType)}
	}
	if year <= 0 || round < 0 {
		return nil, &ProviderError{Op: "open session", Err: errors.Errorf("invalid session %d/%d", year, round)}
	}
	return &Session{
		Year:  year,
		Round: round,
		Type:  st,
		gw:    g,
	}, nil
}

func (g *Gateway) fetch(ctx context.Context, ds Dataset) (Rows, error) {
	start := time.Now()
	rows, err := g.source.Fetch(ctx, ds)
	elapsed := time.Since(start)
	metrics.ProviderFetchDuration.WithLabelValues(string(ds.Kind)).Observe(elapsed.Seconds())

	logger := g.logger.WithField("dataset", ds.Path())
	if err != nil {
		logger.WithError(err).Warnf("provider fetch failed after %s", durafmt.Parse(elapsed))
		return nil, wrapProviderError(string(ds.Kind), err)
	}
	logger.Debugf("provider fetched %d rows in %s", len(rows), durafmt.Parse(elapsed))
	return rows, nil
}

// Session is a loaded (year, round, session type) of the provider. It is
// owned by a single request and must be released when that request ends.
type Session struct {
	Year  int
	Round int
	Type  string

	gw       *Gateway
	loaded   bool
	opts     LoadOptions
	released bool

	drivers  Rows
	laps     LapTable
	weather  Rows
	messages Rows
}

func (s *Session) dataset(kind Kind) Dataset {
	return Dataset{Kind: kind, Year: s.Year, Round: s.Round, SessionType: s.Type}
}

// Load fetches the roster plus the subsets selected in opts. Telemetry is
// fetched per lap afterwards through LapTelemetry.
func (s *Session) Load(ctx context.Context, opts LoadOptions) error {
	if s.released {
		return &ProviderError{Op: "load", Err: ErrReleased}
	}
	s.gw.logger.WithField("session", s.String()).Debugf("loading session (%s)", opts)

	drivers, err := s.gw.fetch(ctx, s.dataset(KindDrivers))
	if err != nil {
		return err
	}
	if len(drivers) == 0 {
		return &ProviderError{Op: "load", Err: errors.Errorf("session %s has no drivers", s)}
	}
	s.drivers = drivers

	if opts.Laps {
		laps, err := s.gw.fetch(ctx, s.dataset(KindLaps))
		if err != nil {
			return err
		}
		s.laps = LapTable(laps)
	}
	if opts.Weather {
		if s.weather, err = s.gw.fetch(ctx, s.dataset(KindWeather)); err != nil {
			return err
		}
	}
	if opts.Messages {
		if s.messages, err = s.gw.fetch(ctx, s.dataset(KindMessages)); err != nil {
			return err
		}
	}

	s.loaded = true
	s.opts = opts
	return nil
}

func (s *Session) check(requested bool) error {
	if s.released {
		return errors.WithStack(ErrReleased)
	}
	if !s.loaded || !requested {
		return errors.WithStack(ErrNotLoaded)
	}
	return nil
}

func (s *Session) Drivers() (Rows, error) {
	if err := s.check(true); err != nil {
		return nil, err
	}
	return s.drivers, nil
}

func (s *Session) Laps() (LapTable, error) {
	if err := s.check(s.opts.Laps); err != nil {
		return nil, err
	}
	return s.laps, nil
}

func (s *Session) Weather() (Rows, error) {
	if err := s.check(s.opts.Weather); err != nil {
		return nil, err
	}
	return s.weather, nil
}

func (s *Session) Messages() (Rows, error) {
	if err := s.check(s.opts.Messages); err != nil {
		return nil, err
	}
	return s.messages, nil
}

// LapTelemetry returns the telemetry trace of one lap row of this session.
func (s *Session) LapTelemetry(ctx context.Context, lap Row) (Rows, error) {
	if err := s.check(s.opts.Telemetry); err != nil {
		return nil, err
	}
	driver, ok := lap.Text(ColDriver)
	if !ok || driver == "" {
		return nil, &ProviderError{Op: "telemetry", Err: errors.New("lap has no driver")}
	}
	n, ok := lap.Number(ColLapNumber)
	if !ok || math.IsNaN(n) || n < 1 {
		return nil, &ProviderError{Op: "telemetry", Err: errors.New("lap has no lap number")}
	}

	ds := s.dataset(KindTelemetry)
	ds.Driver = driver
	ds.Lap = int(n)
	return s.gw.fetch(ctx, ds)
}

// Release drops every table held by the session. Later accesses fail with
// ErrReleased.
func (s *Session) Release() {
	s.released = true
	s.drivers = nil
	s.laps = nil
	s.weather = nil
	s.messages = nil
}

func (s *Session) String() string {
	return Dataset{Year: s.Year, Round: s.Round, SessionType: s.Type}.sessionKey()
}
