package takingtest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

var (
	hourToken   = regexp.MustCompile(`(\d+)H`)
	minuteToken = regexp.MustCompile(`(\d+)M`)
)

// ParseDurationMinutes converts a time limit into whole minutes.
// Two forms are accepted: bare minutes ("90", "-5") and the ISO-like "PT2H30M".
// In the second form the hour and minute tokens are read independently; a missing
// token contributes zero, and input with neither token yields zero.
func ParseDurationMinutes(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}

	upper := strings.ToUpper(raw)
	total := 0
	if m := hourToken.FindStringSubmatch(upper); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m := minuteToken.FindStringSubmatch(upper); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n
	}
	return total
}

// ParseStartTime parses a dd/MM/yyyy HH:mm start time in loc.
func ParseStartTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(model.StartTimeLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start time %q: %w", raw, err)
	}
	return t, nil
}

// Deadline derives the absolute end of a session from its declared start and limit.
func Deadline(startTime, timeLimit string, loc *time.Location) (time.Time, error) {
	start, err := ParseStartTime(startTime, loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(ParseDurationMinutes(timeLimit)) * time.Minute), nil
}
