package shaper

import (
	"encoding/json"
	"strings"
	"testing"

	"f1telemetryapi/pkg/model"
	"f1telemetryapi/pkg/provider"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLapTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0 days 00:01:32.400000", "1:32.400"},
		{"00:01:31.900000", "1:31.900"},
		{"1:31.900", "1:31.900"},
		{"01:31.900", "1:31.900"},
		{"0 days 00:00:59.123456", "0:59.123"},
		{"0 days 01:02:03.456000", "1:02:03.45"},
		{"1 day, 00:01:40.000", "1:40.000"},
		{"  0 days 00:01:32.4  ", "1:32.4"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := FormatLapTime(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), MaxLapTimeLen)
			assert.False(t, strings.HasPrefix(got, "00:"))
			assert.Equal(t, got, FormatLapTime(got), "formatting must be idempotent")
		})
	}
}

func TestCoerceBrake(t *testing.T) {
	flags := []struct {
		in   interface{}
		want bool
	}{
		{true, true},
		{false, false},
		{json.Number("0"), false},
		{json.Number("1"), true},
		{json.Number("1.0"), true},
		{0.0, false},
		{1, true},
		{"True", true},
		{"false", false},
	}
	for _, tt := range flags {
		b, err := CoerceBrake(tt.in)
		require.NoError(t, err)
		assert.True(t, b.IsFlag(), "%v", tt.in)
		assert.Equal(t, tt.want, brakeValue(b), "%v", tt.in)
	}

	b, err := CoerceBrake(json.Number("0.37"))
	require.NoError(t, err)
	assert.False(t, b.IsFlag())
	assert.Equal(t, 0.37, brakeValue(b))

	b, err = CoerceBrake(12.5)
	require.NoError(t, err)
	assert.Equal(t, 12.5, brakeValue(b))

	for _, bad := range []interface{}{nil, "hard", json.Number("NaN"), []int{1}} {
		_, err := CoerceBrake(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestBrakeJSON(t *testing.T) {
	data, err := json.Marshal([]model.Brake{model.BrakeFlag(true), model.BrakePressure(0.37)})
	require.NoError(t, err)
	assert.Equal(t, `[true,0.37]`, string(data))

	var back []model.Brake
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, true, brakeValue(back[0]))
	assert.Equal(t, 0.37, brakeValue(back[1]))
}

func TestLapNumber(t *testing.T) {
	assert.Equal(t, 3, LapNumber(provider.Row{provider.ColLapNumber: json.Number("3")}))
	assert.Equal(t, 3, LapNumber(provider.Row{provider.ColLapNumber: 3.0}))
	assert.Equal(t, -1, LapNumber(provider.Row{provider.ColLapNumber: "NaN"}))
	assert.Equal(t, -1, LapNumber(provider.Row{provider.ColLapNumber: nil}))
	assert.Equal(t, -1, LapNumber(provider.Row{}))
	assert.Equal(t, -1, LapNumber(nil))
	assert.Equal(t, -1, LapNumber(provider.Row{provider.ColLapNumber: "2.5"}))
	assert.Equal(t, -1, LapNumber(provider.Row{provider.ColLapNumber: json.Number("2.5")}))
}

func TestEvent(t *testing.T) {
	e, err := Event(provider.Row{
		provider.ColRoundNumber: json.Number("20"),
		provider.ColEventName:   "São Paulo Grand Prix",
		provider.ColEventDate:   "2023-11-05 00:00:00",
		provider.ColLocation:    "São Paulo",
		"Country":               "Brazil",
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventScheduleEntry{Round: 20, Name: "São Paulo Grand Prix", Date: "2023-11-05 00:00:00", Location: "São Paulo"}, e)

	_, err = Event(provider.Row{provider.ColRoundNumber: json.Number("1.5")})
	var se *ShapingError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, provider.ColRoundNumber, se.Field)

	_, err = Event(provider.Row{provider.ColRoundNumber: json.Number("1"), provider.ColEventName: "Bahrain"})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, provider.ColEventDate, se.Field)
}

func TestDriver(t *testing.T) {
	d, err := Driver(provider.Row{
		provider.ColAbbreviation: "VER",
		provider.ColTeamName:     "Red Bull Racing",
		provider.ColDriverNumber: json.Number("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.DriverSummary{Code: "VER", Team: "Red Bull Racing", Number: "1"}, d)

	d, err = Driver(provider.Row{
		provider.ColFullName:     "Lewis Hamilton",
		provider.ColTeamName:     "Mercedes",
		provider.ColDriverNumber: "44",
	})
	require.NoError(t, err)
	assert.Equal(t, "LHA", d.Code)

	_, err = Driver(provider.Row{provider.ColTeamName: "Mercedes"})
	var se *ShapingError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, provider.ColAbbreviation, se.Field)
}

func TestLap(t *testing.T) {
	row := provider.Row{provider.ColLapNumber: json.Number("2"), provider.ColLapTime: "0 days 00:01:31.900000"}

	l, err := Lap(row, 2)
	require.NoError(t, err)
	assert.Equal(t, model.LapRecord{LapNumber: 2, LapTime: "1:31.900", IsFastest: true}, l)

	l, err = Lap(row, -1)
	require.NoError(t, err)
	assert.False(t, l.IsFastest)

	l, err = Lap(provider.Row{provider.ColLapNumber: 7.0, provider.ColLapTime: json.Number("92.4")}, 3)
	require.NoError(t, err)
	assert.Equal(t, model.LapRecord{LapNumber: 7, LapTime: "1:32.400"}, l)

	l, err = Lap(provider.Row{provider.ColLapNumber: 7.0, provider.ColLapTime: "92.4"}, 3)
	require.NoError(t, err)
	assert.Equal(t, model.LapRecord{LapNumber: 7, LapTime: "1:32.400"}, l)

	_, err = Lap(provider.Row{provider.ColLapNumber: "2.5", provider.ColLapTime: "1:30.000"}, 2)
	var se *ShapingError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, provider.ColLapNumber, se.Field)

	_, err = Lap(provider.Row{provider.ColLapNumber: json.Number("2"), provider.ColLapTime: "NaT"}, 2)
	assert.Error(t, err)
	_, err = Lap(provider.Row{provider.ColLapTime: "1:31.900"}, 2)
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	s, err := Sample(provider.Row{
		provider.ColTime:     "0 days 00:00:01.250000",
		provider.ColX:        json.Number("-1234.5"),
		provider.ColY:        json.Number("880"),
		provider.ColSpeed:    json.Number("301.2"),
		provider.ColGear:     json.Number("8"),
		provider.ColThrottle: json.Number("99"),
		provider.ColBrake:    false,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.25, s.Time)
	assert.Equal(t, -1234.5, s.X)
	assert.Equal(t, 880.0, s.Y)
	assert.Equal(t, 301.2, s.Speed)
	assert.Equal(t, 8, s.Gear)
	assert.Equal(t, 99.0, s.Throttle)
	assert.Equal(t, false, brakeValue(s.Brake))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":1.25,"x":-1234.5,"y":880,"speed":301.2,"gear":8,"throttle":99,"brake":false}`, string(data))

	_, err = Sample(provider.Row{provider.ColTime: json.Number("1"), provider.ColX: "NaN"})
	var se *ShapingError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, provider.ColX, se.Field)
}

func TestSampleRejectsFractionalGear(t *testing.T) {
	_, err := Sample(provider.Row{
		provider.ColTime: json.Number("1"), provider.ColX: 0.0, provider.ColY: 0.0,
		provider.ColSpeed: 100.0, provider.ColGear: 3.7, provider.ColThrottle: 50.0, provider.ColBrake: 0.0,
	})
	var se *ShapingError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, provider.ColGear, se.Field)
}

func brakeValue(b model.Brake) interface{} {
	if b.IsFlag() {
		return b.On()
	}
	return b.Pressure()
}

func TestSamplesKeepOrder(t *testing.T) {
	rows := provider.Rows{}
	for _, ts := range []string{"0.1", "0.2", "0.35"} {
		rows = append(rows, provider.Row{
			provider.ColTime: json.Number(ts), provider.ColX: 0.0, provider.ColY: 0.0,
			provider.ColSpeed: 100.0, provider.ColGear: 3.0, provider.ColThrottle: 50.0, provider.ColBrake: 0.37,
		})
	}
	samples, err := Samples(rows)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 0.1, samples[0].Time)
	assert.Equal(t, 0.2, samples[1].Time)
	assert.Equal(t, 0.35, samples[2].Time)
}
