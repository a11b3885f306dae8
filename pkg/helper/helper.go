package helper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SecondsToLapTime converts seconds to minutes:seconds.milliseconds, adding
// an hour field only when needed.
func SecondsToLapTime(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "-"
	}
	ms := int64(math.Round(seconds * 1000))
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	secs := ms / 1000
	ms -= secs * 1000
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", hours, minutes, secs, ms)
	}
	return fmt.Sprintf("%d:%02d.%03d", minutes, secs, ms)
}

// ParseTimedelta reads a provider duration. Accepted forms are
// "0 days 00:01:32.400000", "00:01:32.400000", "1:32.400" and plain seconds
// ("92.4"). Missing values ("", "NaT", "NaN", "None") report ok=false.
func ParseTimedelta(s string) (d time.Duration, ok bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NaT", "NaN", "nan", "None", "null":
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}

	var days int64
	if i := strings.Index(s, "day"); i >= 0 {
		n, err := strconv.ParseInt(strings.TrimSpace(s[:i]), 10, 64)
		if err != nil {
			return 0, false
		}
		days = n
		s = strings.TrimSpace(s[i+len("day"):])
		s = strings.TrimPrefix(s, "s")
		s = strings.TrimSpace(strings.TrimPrefix(s, ","))
	}

	var total float64
	if s != "" {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, false
		}
		for _, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, false
			}
			total = total*60 + v
		}
	}

	d = time.Duration(days)*24*time.Hour + time.Duration(math.Round(total*1e9))
	if negative {
		d = -d
	}
	return d, true
}

// DriverCode reads a full name and returns the first letter of the name and
// the first two letters of the surname, upper cased.
func DriverCode(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	code := string(words[0][0])
	if len(words) > 1 {
		last := words[len(words)-1]
		if len(last) > 2 {
			code += last[:2]
		} else {
			code += last
		}
	} else if len(words[0]) > 2 {
		code += words[0][1:3]
	}
	return strings.ToUpper(code)
}
