package laps

import (
	"f1telemetryapi/pkg/provider"
	"f1telemetryapi/pkg/shaper"

	"github.com/pkg/errors"
)

// NoFastestLap is returned by FastestLapNumber when the table has no
// fastest lap.
const NoFastestLap = -1

var ErrLapNotFound = errors.New("lap not found")

// ValidLaps keeps the representative laps of a table, as classified by the
// provider.
func ValidLaps(table provider.LapTable) provider.LapTable {
	return table.PickQuickLaps()
}

// FastestLapNumber returns the lap number of the fastest lap of the whole,
// unfiltered table, or NoFastestLap.
func FastestLapNumber(table provider.LapTable) int {
	fastest, ok := table.PickFastest()
	if !ok {
		return NoFastestLap
	}
	n := shaper.LapNumber(fastest)
	if n < 1 {
		return NoFastestLap
	}
	return n
}

// ResolveLap returns the fastest lap when lapNumber is 0, otherwise the
// first row with that lap number.
func ResolveLap(table provider.LapTable, lapNumber int) (provider.Row, error) {
	if lapNumber == 0 {
		fastest, ok := table.PickFastest()
		if !ok || shaper.LapNumber(fastest) < 1 {
			return nil, errors.Wrap(ErrLapNotFound, "no fastest lap")
		}
		return fastest, nil
	}
	if lapNumber < 0 {
		return nil, errors.Wrapf(ErrLapNotFound, "lap %d", lapNumber)
	}
	for _, row := range table {
		if shaper.LapNumber(row) == lapNumber {
			return row, nil
		}
	}
	return nil, errors.Wrapf(ErrLapNotFound, "lap %d", lapNumber)
}
