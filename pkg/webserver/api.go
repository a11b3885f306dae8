package webserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"f1telemetryapi/pkg/caster"
	"f1telemetryapi/pkg/laps"
	"f1telemetryapi/pkg/lifecycle"
	"f1telemetryapi/pkg/metrics"
	"f1telemetryapi/pkg/model"
	"f1telemetryapi/pkg/provider"
	"f1telemetryapi/pkg/shaper"

	"github.com/go-http-utils/etag"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	rootMessage       = "F1 telemetry API online"
	telemetryFailure  = "telemetry processing error"
	sessionQueryParam = "session"
	lapQueryParam     = "lap"
)

// API serves the read-only query endpoints. Every request opens its own
// provider session and releases it before returning.
type API struct {
	gateway        *provider.Gateway
	sessionType    string
	replayInterval time.Duration
	logger         logrus.FieldLogger
}

func NewAPI(gateway *provider.Gateway, sessionType string, replayInterval time.Duration, logger logrus.FieldLogger) *API {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &API{
		gateway:        gateway,
		sessionType:    sessionType,
		replayInterval: replayInterval,
		logger:         logger,
	}
}

func (a *API) register(r *mux.Router) {
	r.HandleFunc("/", a.root).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/races/{year:[0-9]+}", etag.Handler(http.HandlerFunc(a.races), false)).Methods(http.MethodGet)
	api.Handle("/drivers/{year:[0-9]+}/{round:[0-9]+}", etag.Handler(http.HandlerFunc(a.drivers), false)).Methods(http.MethodGet)
	api.HandleFunc("/laps/{year:[0-9]+}/{round:[0-9]+}/{driver_code}", a.laps).Methods(http.MethodGet)
	api.HandleFunc("/telemetry/{year:[0-9]+}/{round:[0-9]+}/{driver_code}", a.telemetry).Methods(http.MethodGet)
	api.HandleFunc("/replay/{year:[0-9]+}/{round:[0-9]+}/{driver_code}", a.replay).Methods(http.MethodGet)
}

func (a *API) root(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, model.Message{Message: rootMessage})
}

func (a *API) races(w http.ResponseWriter, r *http.Request) {
	year, err := intVar(r, "year")
	if err != nil {
		a.badRequest(w, "races", err)
		return
	}

	scope := lifecycle.NewScope("races", a.logger)
	defer scope.Release()

	events, err := a.EventSchedule(r.Context(), scope, year)
	if err != nil {
		scope.Logger.WithError(err).Error("races query failed")
		a.fail(w, "races", err.Error())
		return
	}
	a.succeed(w, "races", events)
}

// EventSchedule, SessionDrivers, LapRecords and LapSamples run one query
// each. Provider objects they touch are owned by scope.
func (a *API) EventSchedule(ctx context.Context, scope *lifecycle.Scope, year int) ([]model.EventScheduleEntry, error) {
	rows, err := a.gateway.EventSchedule(ctx, year)
	if err != nil {
		return nil, err
	}
	scope.Own(&rows)
	return shaper.Events(rows)
}

func (a *API) drivers(w http.ResponseWriter, r *http.Request) {
	year, round, err := yearAndRound(r)
	if err != nil {
		a.badRequest(w, "drivers", err)
		return
	}

	scope := lifecycle.NewScope("drivers", a.logger)
	defer scope.Release()

	drivers, err := a.SessionDrivers(r.Context(), scope, year, round, a.session(r))
	if err != nil {
		scope.Logger.WithError(err).Error("drivers query failed")
		a.fail(w, "drivers", err.Error())
		return
	}
	a.succeed(w, "drivers", drivers)
}

func (a *API) SessionDrivers(ctx context.Context, scope *lifecycle.Scope, year, round int, sessionType string) ([]model.DriverSummary, error) {
	sess, err := a.gateway.OpenSession(year, round, sessionType)
	if err != nil {
		return nil, err
	}
	scope.Own(sess)

	if err := sess.Load(ctx, provider.DriversOnly); err != nil {
		return nil, err
	}
	rows, err := sess.Drivers()
	if err != nil {
		return nil, err
	}
	return shaper.Drivers(rows)
}

// laps never fails from the client's point of view: any error yields an
// empty list.
func (a *API) laps(w http.ResponseWriter, r *http.Request) {
	year, round, err := yearAndRound(r)
	if err != nil {
		a.badRequest(w, "laps", err)
		return
	}
	code := mux.Vars(r)["driver_code"]

	scope := lifecycle.NewScope("laps", a.logger)
	defer scope.Release()

	records, err := a.LapRecords(r.Context(), scope, year, round, a.session(r), code)
	if err != nil {
		scope.Logger.WithError(err).WithField("driver", code).Error("laps query failed")
		metrics.Requests.WithLabelValues("laps", "degraded").Inc()
		a.writeJSON(w, http.StatusOK, []model.LapRecord{})
		return
	}
	a.succeed(w, "laps", records)
}

func (a *API) LapRecords(ctx context.Context, scope *lifecycle.Scope, year, round int, sessionType, code string) ([]model.LapRecord, error) {
	sess, err := a.gateway.OpenSession(year, round, sessionType)
	if err != nil {
		return nil, err
	}
	scope.Own(sess)

	if err := sess.Load(ctx, provider.LapsOnly); err != nil {
		return nil, err
	}
	table, err := sess.Laps()
	if err != nil {
		return nil, err
	}
	driverLaps := table.PickDriver(code)
	scope.Own(&driverLaps)

	fastest := laps.FastestLapNumber(driverLaps)
	valid := laps.ValidLaps(driverLaps)
	scope.Own(&valid)

	return shaper.Laps(valid, fastest)
}

func (a *API) telemetry(w http.ResponseWriter, r *http.Request) {
	year, round, err := yearAndRound(r)
	if err != nil {
		a.badRequest(w, "telemetry", err)
		return
	}
	lapNumber, err := lapParam(r)
	if err != nil {
		a.badRequest(w, "telemetry", err)
		return
	}
	code := mux.Vars(r)["driver_code"]

	scope := lifecycle.NewScope("telemetry", a.logger)
	defer scope.Release()

	samples, err := a.LapSamples(r.Context(), scope, year, round, a.session(r), code, lapNumber)
	if err != nil {
		scope.Logger.WithError(err).WithFields(logrus.Fields{
			"driver": code,
			"lap":    lapNumber,
		}).Error("telemetry query failed")
		a.fail(w, "telemetry", telemetryFailure)
		return
	}
	a.succeed(w, "telemetry", samples)
}

func (a *API) LapSamples(ctx context.Context, scope *lifecycle.Scope, year, round int, sessionType, code string, lapNumber int) ([]model.TelemetrySample, error) {
	sess, err := a.gateway.OpenSession(year, round, sessionType)
	if err != nil {
		return nil, err
	}
	scope.Own(sess)

	if err := sess.Load(ctx, provider.LapsAndTelemetry); err != nil {
		return nil, err
	}
	table, err := sess.Laps()
	if err != nil {
		return nil, err
	}
	driverLaps := table.PickDriver(code)
	scope.Own(&driverLaps)

	lap, err := laps.ResolveLap(driverLaps, lapNumber)
	if err != nil {
		return nil, err
	}
	rows, err := sess.LapTelemetry(ctx, lap)
	if err != nil {
		return nil, err
	}
	scope.Own(&rows)

	return shaper.Samples(rows)
}

// TableSize is the row count of one provider table of a session.
type TableSize struct {
	Table string
	Rows  int
}

// SessionTables loads every subset of a session except telemetry and
// reports how many rows each table holds.
func (a *API) SessionTables(ctx context.Context, scope *lifecycle.Scope, year, round int, sessionType string) ([]TableSize, error) {
	sess, err := a.gateway.OpenSession(year, round, sessionType)
	if err != nil {
		return nil, err
	}
	scope.Own(sess)

	if err := sess.Load(ctx, provider.LoadOptions{Laps: true, Weather: true, Messages: true}); err != nil {
		return nil, err
	}
	drivers, err := sess.Drivers()
	if err != nil {
		return nil, err
	}
	table, err := sess.Laps()
	if err != nil {
		return nil, err
	}
	weather, err := sess.Weather()
	if err != nil {
		return nil, err
	}
	messages, err := sess.Messages()
	if err != nil {
		return nil, err
	}
	return []TableSize{
		{Table: string(provider.KindDrivers), Rows: len(drivers)},
		{Table: string(provider.KindLaps), Rows: len(table)},
		{Table: "quick laps", Rows: len(laps.ValidLaps(table))},
		{Table: string(provider.KindWeather), Rows: len(weather)},
		{Table: string(provider.KindMessages), Rows: len(messages)},
	}, nil
}

// DefaultSessionType is the session used when a request does not name one.
func (a *API) DefaultSessionType() string {
	return a.sessionType
}

func (a *API) session(r *http.Request) string {
	if s := r.URL.Query().Get(sessionQueryParam); s != "" {
		return s
	}
	return a.sessionType
}

func (a *API) succeed(w http.ResponseWriter, endpoint string, v interface{}) {
	metrics.Requests.WithLabelValues(endpoint, "ok").Inc()
	a.writeJSON(w, http.StatusOK, v)
}

func (a *API) fail(w http.ResponseWriter, endpoint, detail string) {
	metrics.Requests.WithLabelValues(endpoint, "error").Inc()
	a.writeJSON(w, http.StatusInternalServerError, model.Message{Detail: detail})
}

func (a *API) badRequest(w http.ResponseWriter, endpoint string, err error) {
	metrics.Requests.WithLabelValues(endpoint, "invalid").Inc()
	a.writeJSON(w, http.StatusUnprocessableEntity, model.Message{Detail: err.Error()})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := caster.Encode(w, v); err != nil {
		a.logger.WithError(err).Error("could not write response")
	}
}

func intVar(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, errors.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func yearAndRound(r *http.Request) (int, int, error) {
	year, err := intVar(r, "year")
	if err != nil {
		return 0, 0, err
	}
	round, err := intVar(r, "round")
	if err != nil {
		return 0, 0, err
	}
	return year, round, nil
}

// lapParam reads the optional lap query parameter. Missing means 0, the
// fastest lap.
func lapParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get(lapQueryParam)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Errorf("%s must be an integer", lapQueryParam)
	}
	return n, nil
}
