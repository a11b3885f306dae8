package model

import (
	"strconv"

	"github.com/pkg/errors"
)

// EventScheduleEntry is one round of a season calendar.
type EventScheduleEntry struct {
	Round    int    `json:"round"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Location string `json:"location"`
}

type DriverSummary struct {
	Code   string `json:"code"`
	Team   string `json:"team"`
	Number string `json:"number"`
}

// LapRecord is a lap of one driver in one session. LapTime is already
// normalized to at most 10 characters.
type LapRecord struct {
	LapNumber int    `json:"lap_number"`
	LapTime   string `json:"lap_time"`
	IsFastest bool   `json:"is_fastest"`
}

type TelemetrySample struct {
	Time     float64 `json:"time"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Speed    float64 `json:"speed"`
	Gear     int     `json:"gear"`
	Throttle float64 `json:"throttle"`
	Brake    Brake   `json:"brake"`
}

// Brake is either an on/off flag or a continuous pressure value, depending
// on what the provider reports. It marshals to a JSON boolean or number.
type Brake struct {
	pressure float64
	isFlag   bool
	on       bool
}

func BrakeFlag(on bool) Brake {
	return Brake{isFlag: true, on: on}
}

func BrakePressure(p float64) Brake {
	return Brake{pressure: p}
}

func (b Brake) IsFlag() bool {
	return b.isFlag
}

func (b Brake) On() bool {
	if b.isFlag {
		return b.on
	}
	return b.pressure > 0
}

func (b Brake) Pressure() float64 {
	if b.isFlag {
		if b.on {
			return 1
		}
		return 0
	}
	return b.pressure
}

func (b Brake) MarshalJSON() ([]byte, error) {
	if b.isFlag {
		return []byte(strconv.FormatBool(b.on)), nil
	}
	return []byte(strconv.FormatFloat(b.pressure, 'f', -1, 64)), nil
}

func (b *Brake) UnmarshalJSON(data []byte) error {
	switch s := string(data); s {
	case "true", "false":
		*b = BrakeFlag(s == "true")
		return nil
	default:
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Errorf("brake: %s is neither a flag nor a pressure", s)
		}
		*b = BrakePressure(p)
		return nil
	}
}

// Message is the body of every non-list response.
type Message struct {
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
