package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"f1telemetryapi/pkg/helper"

	"github.com/pkg/errors"
)

// Provider column names.
const (
	ColRoundNumber  = "RoundNumber"
	ColEventName    = "EventName"
	ColEventDate    = "EventDate"
	ColLocation     = "Location"
	ColAbbreviation = "Abbreviation"
	ColFullName     = "FullName"
	ColTeamName     = "TeamName"
	ColDriverNumber = "DriverNumber"
	ColDriver       = "Driver"
	ColLapNumber    = "LapNumber"
	ColLapTime      = "LapTime"
	ColIsQuickLap   = "IsQuickLap"
	ColTime         = "Time"
	ColX            = "X"
	ColY            = "Y"
	ColSpeed        = "Speed"
	ColGear         = "nGear"
	ColThrottle     = "Throttle"
	ColBrake        = "Brake"
)

var (
	ErrNotLoaded = errors.New("provider: data subset was not requested when loading the session")
	ErrReleased  = errors.New("provider: session has been released")
)

// ProviderError is returned for anything the telemetry provider could not
// produce: unknown year or round, cache failures, upstream failures or a
// malformed session.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider: %s: %s", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Cause() error {
	return e.Err
}

func wrapProviderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Err: err}
}

// LoadOptions selects the data subsets a session fetches. The roster is
// always loaded.
type LoadOptions struct {
	Laps      bool
	Telemetry bool
	Weather   bool
	Messages  bool
}

var (
	DriversOnly      = LoadOptions{}
	LapsOnly         = LoadOptions{Laps: true}
	LapsAndTelemetry = LoadOptions{Laps: true, Telemetry: true}
)

func (o LoadOptions) String() string {
	return fmt.Sprintf("laps=%t telemetry=%t weather=%t messages=%t", o.Laps, o.Telemetry, o.Weather, o.Messages)
}

var sessionTypes = map[string]string{
	"FP1":               "FP1",
	"FP2":               "FP2",
	"FP3":               "FP3",
	"Q":                 "Q",
	"SQ":                "SQ",
	"SS":                "SS",
	"S":                 "S",
	"R":                 "R",
	"PRACTICE 1":        "FP1",
	"PRACTICE 2":        "FP2",
	"PRACTICE 3":        "FP3",
	"QUALIFYING":        "Q",
	"SPRINT":            "S",
	"SPRINT QUALIFYING": "SQ",
	"SPRINT SHOOTOUT":   "SS",
	"RACE":              "R",
}

// NormalizeSessionType maps a session identifier or name to its short form.
func NormalizeSessionType(s string) (string, bool) {
	t, ok := sessionTypes[strings.ToUpper(strings.TrimSpace(s))]
	return t, ok
}

type Kind string

const (
	KindSchedule  Kind = "schedule"
	KindDrivers   Kind = "drivers"
	KindLaps      Kind = "laps"
	KindTelemetry Kind = "telemetry"
	KindWeather   Kind = "weather"
	KindMessages  Kind = "messages"
)

// Dataset identifies one table the provider can produce.
type Dataset struct {
	Kind        Kind
	Year        int
	Round       int
	SessionType string
	Driver      string
	Lap         int
}

// Path is the dataset location, shared by the upstream URL layout, the
// fixture documents and the cache keys.
func (d Dataset) Path() string {
	switch d.Kind {
	case KindSchedule:
		return fmt.Sprintf("schedule/%d", d.Year)
	case KindTelemetry:
		return fmt.Sprintf("sessions/%d/%d/%s/telemetry/%s/%d", d.Year, d.Round, d.SessionType, url.PathEscape(d.Driver), d.Lap)
	default:
		return fmt.Sprintf("sessions/%d/%d/%s/%s", d.Year, d.Round, d.SessionType, d.Kind)
	}
}

func (d Dataset) sessionKey() string {
	return fmt.Sprintf("%d/%d/%s", d.Year, d.Round, d.SessionType)
}

// Source produces provider tables.
type Source interface {
	Fetch(ctx context.Context, ds Dataset) (Rows, error)
}

// Row is a provider-native record: column name to decoded JSON value.
type Row map[string]interface{}

// Value returns the raw value of a column, nil when absent.
func (r Row) Value(col string) interface{} {
	return r[col]
}

// Has reports whether the column is present and not null.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

// Number reads a numeric column. Numeric strings are accepted; "NaN" yields
// a NaN value. ok is false for absent, null, boolean or garbled values.
func (r Row) Number(col string) (float64, bool) {
	switch v := r[col].(type) {
	case json.Number:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Text reads a column as text. Numbers keep their JSON spelling.
func (r Row) Text(col string) (string, bool) {
	switch v := r[col].(type) {
	case string:
		return v, true
	case json.Number:
		return string(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// Flag reads a boolean column. Numbers are true when non zero.
func (r Row) Flag(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	}
	f, ok := r.Number(col)
	return ok && !math.IsNaN(f) && f != 0
}

// Duration reads a timedelta column given either as seconds or as text.
func (r Row) Duration(col string) (time.Duration, bool) {
	if s, ok := r[col].(string); ok {
		return helper.ParseTimedelta(s)
	}
	f, ok := r.Number(col)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return time.Duration(math.Round(f * float64(time.Second))), true
}

// Rows is a provider table.
type Rows []Row

func (rs *Rows) Release() {
	*rs = nil
}
