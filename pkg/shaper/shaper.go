// Package shaper converts provider rows into the JSON-safe records served by
// the API. It is the only place that interprets provider column values; every
// output field goes through an explicit coercion.
package shaper

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"f1telemetryapi/pkg/helper"
	"f1telemetryapi/pkg/model"
	"f1telemetryapi/pkg/provider"

	"github.com/pkg/errors"
)

// MaxLapTimeLen is the maximum length of a formatted lap time.
const MaxLapTimeLen = 10

var errMissing = errors.New("missing value")

// ShapingError reports a provider row that could not be coerced to the
// output schema.
type ShapingError struct {
	Entity string
	Field  string
	Err    error
}

func (e *ShapingError) Error() string {
	return fmt.Sprintf("shaping %s.%s: %s", e.Entity, e.Field, e.Err)
}

func (e *ShapingError) Unwrap() error {
	return e.Err
}

func shapingError(entity, field string, err error) error {
	return &ShapingError{Entity: entity, Field: field, Err: err}
}

// Int reads a whole number column.
func Int(row provider.Row, col string) (int, error) {
	f, err := Float(row, col)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, errors.Errorf("%v is not a whole number", f)
	}
	return int(f), nil
}

// Float reads a finite float column.
func Float(row provider.Row, col string) (float64, error) {
	if !row.Has(col) {
		return 0, errMissing
	}
	f, ok := row.Number(col)
	if !ok {
		return 0, errors.Errorf("%v is not a number", row.Value(col))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Errorf("%v is not finite", f)
	}
	return f, nil
}

// String reads a column as text. Absent or null columns are an error.
func String(row provider.Row, col string) (string, error) {
	if !row.Has(col) {
		return "", errMissing
	}
	s, ok := row.Text(col)
	if !ok {
		return "", errors.Errorf("%v is not text", row.Value(col))
	}
	return strings.TrimSpace(s), nil
}

// LapNumber reads the lap number of a lap row, mapping missing, NaN or
// fractional values to -1.
func LapNumber(row provider.Row) int {
	if row == nil {
		return -1
	}
	n, err := Int(row, provider.ColLapNumber)
	if err != nil {
		return -1
	}
	return n
}

// Seconds reads a timedelta column as float seconds.
func Seconds(row provider.Row, col string) (float64, error) {
	if !row.Has(col) {
		return 0, errMissing
	}
	d, ok := row.Duration(col)
	if !ok {
		return 0, errors.Errorf("%v is not a duration", row.Value(col))
	}
	return d.Seconds(), nil
}

// FormatLapTime normalizes a provider lap time text: the day-count prefix
// and a redundant "00:" hour field are dropped, the minutes lose their zero
// padding, the fraction is cut to milliseconds and the result is capped at
// MaxLapTimeLen characters. Already normalized values come back unchanged.
func FormatLapTime(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "days"); i >= 0 {
		s = strings.TrimSpace(s[i+len("days"):])
	} else if i := strings.LastIndex(s, "day"); i >= 0 {
		s = strings.TrimSpace(s[i+len("day"):])
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, ","))
	s = strings.TrimPrefix(s, "00:")
	if len(s) > 2 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' && s[2] == ':' {
		s = s[1:]
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 3 {
		s = s[:dot+4]
	}
	if len(s) > MaxLapTimeLen {
		s = s[:MaxLapTimeLen]
	}
	return s
}

// CoerceBrake turns a provider brake value into a flag when it is exactly
// 0, 1, true or false and keeps any other number as a pressure.
func CoerceBrake(v interface{}) (model.Brake, error) {
	switch b := v.(type) {
	case bool:
		return model.BrakeFlag(b), nil
	case nil:
		return model.Brake{}, errMissing
	}

	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return model.Brake{}, errors.Errorf("%v is not a brake value", v)
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		switch strings.TrimSpace(n) {
		case "true", "True":
			return model.BrakeFlag(true), nil
		case "false", "False":
			return model.BrakeFlag(false), nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return model.Brake{}, errors.Errorf("%v is not a brake value", v)
		}
		f = parsed
	default:
		return model.Brake{}, errors.Errorf("%v is not a brake value", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Brake{}, errors.Errorf("%v is not finite", f)
	}
	switch f {
	case 0:
		return model.BrakeFlag(false), nil
	case 1:
		return model.BrakeFlag(true), nil
	}
	return model.BrakePressure(f), nil
}

func Event(row provider.Row) (model.EventScheduleEntry, error) {
	const entity = "event"
	var e model.EventScheduleEntry
	var err error

	if e.Round, err = Int(row, provider.ColRoundNumber); err != nil {
		return e, shapingError(entity, provider.ColRoundNumber, err)
	}
	if e.Round < 0 {
		return e, shapingError(entity, provider.ColRoundNumber, errors.Errorf("negative round %d", e.Round))
	}
	if e.Name, err = String(row, provider.ColEventName); err != nil {
		return e, shapingError(entity, provider.ColEventName, err)
	}
	if e.Date, err = String(row, provider.ColEventDate); err != nil {
		return e, shapingError(entity, provider.ColEventDate, err)
	}
	if e.Location, err = String(row, provider.ColLocation); err != nil {
		return e, shapingError(entity, provider.ColLocation, err)
	}
	return e, nil
}

// Driver shapes a roster row. The abbreviation falls back to one derived
// from the full name.
func Driver(row provider.Row) (model.DriverSummary, error) {
	const entity = "driver"
	var d model.DriverSummary
	var err error

	if d.Code, err = String(row, provider.ColAbbreviation); err != nil || d.Code == "" {
		name, _ := String(row, provider.ColFullName)
		d.Code = helper.DriverCode(name)
	}
	if d.Code == "" {
		return d, shapingError(entity, provider.ColAbbreviation, errMissing)
	}
	if d.Team, err = String(row, provider.ColTeamName); err != nil {
		return d, shapingError(entity, provider.ColTeamName, err)
	}
	if d.Number, err = String(row, provider.ColDriverNumber); err != nil {
		return d, shapingError(entity, provider.ColDriverNumber, err)
	}
	return d, nil
}

// Lap shapes a lap row. fastestLapNumber is the driver's fastest lap number
// or -1 when there is none.
func Lap(row provider.Row, fastestLapNumber int) (model.LapRecord, error) {
	const entity = "lap"
	var l model.LapRecord

	l.LapNumber = LapNumber(row)
	if l.LapNumber < 1 {
		return l, shapingError(entity, provider.ColLapNumber, errors.Errorf("invalid lap number %v", row.Value(provider.ColLapNumber)))
	}

	switch v := row.Value(provider.ColLapTime).(type) {
	case nil:
		return l, shapingError(entity, provider.ColLapTime, errMissing)
	case string:
		d, ok := helper.ParseTimedelta(v)
		if !ok {
			return l, shapingError(entity, provider.ColLapTime, errors.Errorf("%q is not a lap time", v))
		}
		if strings.Contains(v, ":") {
			l.LapTime = FormatLapTime(v)
		} else {
			// plain seconds
			l.LapTime = FormatLapTime(helper.SecondsToLapTime(d.Seconds()))
		}
	default:
		secs, err := Seconds(row, provider.ColLapTime)
		if err != nil {
			return l, shapingError(entity, provider.ColLapTime, err)
		}
		l.LapTime = FormatLapTime(helper.SecondsToLapTime(secs))
	}

	l.IsFastest = fastestLapNumber >= 1 && l.LapNumber == fastestLapNumber
	return l, nil
}

func Sample(row provider.Row) (model.TelemetrySample, error) {
	const entity = "telemetry"
	var s model.TelemetrySample
	var err error

	if s.Time, err = Seconds(row, provider.ColTime); err != nil {
		return s, shapingError(entity, provider.ColTime, err)
	}
	floats := []struct {
		col string
		dst *float64
	}{
		{provider.ColX, &s.X},
		{provider.ColY, &s.Y},
		{provider.ColSpeed, &s.Speed},
		{provider.ColThrottle, &s.Throttle},
	}
	for _, f := range floats {
		if *f.dst, err = Float(row, f.col); err != nil {
			return s, shapingError(entity, f.col, err)
		}
	}
	if s.Gear, err = Int(row, provider.ColGear); err != nil {
		return s, shapingError(entity, provider.ColGear, err)
	}
	if s.Brake, err = CoerceBrake(row.Value(provider.ColBrake)); err != nil {
		return s, shapingError(entity, provider.ColBrake, err)
	}
	return s, nil
}

func Events(rows provider.Rows) ([]model.EventScheduleEntry, error) {
	events := make([]model.EventScheduleEntry, 0, len(rows))
	for _, row := range rows {
		e, err := Event(row)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func Drivers(rows provider.Rows) ([]model.DriverSummary, error) {
	drivers := make([]model.DriverSummary, 0, len(rows))
	for _, row := range rows {
		d, err := Driver(row)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, nil
}

func Laps(table provider.LapTable, fastestLapNumber int) ([]model.LapRecord, error) {
	laps := make([]model.LapRecord, 0, len(table))
	for _, row := range table {
		l, err := Lap(row, fastestLapNumber)
		if err != nil {
			return nil, err
		}
		laps = append(laps, l)
	}
	return laps, nil
}

// Samples shapes a telemetry trace, keeping the provider's order.
func Samples(rows provider.Rows) ([]model.TelemetrySample, error) {
	samples := make([]model.TelemetrySample, 0, len(rows))
	for _, row := range rows {
		s, err := Sample(row)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}
