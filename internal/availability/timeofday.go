package availability

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as seconds since midnight.
// The value 24:00:00 (86400) is valid as the end of a window and
// means end of day.
type TimeOfDay int

const (
	Minute      TimeOfDay = 60
	Hour        TimeOfDay = 60 * Minute
	QuarterHour TimeOfDay = 15 * Minute
	EndOfDay    TimeOfDay = 24 * Hour
)

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS" strings as they appear
// in business-hours feeds, including "24:00" for end of day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	var total TimeOfDay
	for i, unit := range []TimeOfDay{Hour, Minute, 1} {
		if i >= len(parts) {
			break
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		total += TimeOfDay(n) * unit
	}

	if total > EndOfDay {
		return 0, fmt.Errorf("time of day %q is past 24:00:00", s)
	}

	return total, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t/Hour, t%Hour/Minute, t%Minute)
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}

	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// SecondsOfDay converts a timestamp to its time-of-day component.
func SecondsOfDay(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour())*Hour + TimeOfDay(t.Minute())*Minute + TimeOfDay(t.Second())
}
