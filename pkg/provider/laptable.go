package provider

import (
	"strings"
)

// LapTable is the provider's lap table. Row order is the provider's order.
type LapTable []Row

// PickDriver keeps the laps of one driver, matched by abbreviation or by
// car number.
func (t LapTable) PickDriver(code string) LapTable {
	code = strings.TrimSpace(code)
	picked := LapTable{}
	for _, lap := range t {
		if drv, ok := lap.Text(ColDriver); ok && strings.EqualFold(drv, code) {
			picked = append(picked, lap)
			continue
		}
		if num, ok := lap.Text(ColDriverNumber); ok && num == code {
			picked = append(picked, lap)
		}
	}
	return picked
}

// PickQuickLaps keeps the laps the provider classified as representative
// pace. The classification itself is the provider's.
func (t LapTable) PickQuickLaps() LapTable {
	picked := LapTable{}
	for _, lap := range t {
		if lap.Flag(ColIsQuickLap) {
			picked = append(picked, lap)
		}
	}
	return picked
}

// PickFastest returns the row with the minimum lap time. The first row wins
// a tie. ok is false when no row has a lap time.
func (t LapTable) PickFastest() (Row, bool) {
	var fastest Row
	found := false
	var best int64
	for _, lap := range t {
		d, ok := lap.Duration(ColLapTime)
		if !ok || d <= 0 {
			continue
		}
		if !found || int64(d) < best {
			fastest, best, found = lap, int64(d), true
		}
	}
	return fastest, found
}

func (t *LapTable) Release() {
	*t = nil
}
