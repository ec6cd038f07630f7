// Package availability decides which dates and time ranges of a calendar
// are bookable. It is pure in-memory logic: the calendar view that owns
// rendering and data fetching calls in with already-fetched business hours
// and unavailable dates, and translates the results back into the grid.
package availability

import "time"

// Window is a recurring weekly business-hours window. Weekdays follow
// time.Weekday numbering (Sunday = 0), matching the upstream feed.
// Windows are scanned as a flat list in feed order; they are not assumed
// sorted or disjoint.
type Window struct {
	DaysOfWeek []time.Weekday `json:"daysOfWeek"`
	StartTime  TimeOfDay      `json:"startTime"`
	EndTime    TimeOfDay      `json:"endTime"`
}

func (w Window) appliesOn(day time.Weekday) bool {
	for _, d := range w.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

// Slot is a normalized bookable time range. Once a slot comes out of
// EvaluateRange, End - Start equals the engine's appointment duration.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Bounds limits the visible portion of a day grid. Derived from the
// active window set, never authoritative.
type Bounds struct {
	MinTime TimeOfDay
	MaxTime TimeOfDay
}

// DefaultBounds is used when no business-hours data applies, e.g. in
// month view or after a failed fetch.
var DefaultBounds = Bounds{MinTime: 8 * Hour, MaxTime: 16 * Hour}

// Engine answers availability questions for one activity: a fixed
// appointment duration, a static set of unavailable dates, and the
// business-hours windows of the currently visible week.
type Engine struct {
	duration    TimeOfDay
	unavailable map[string]struct{}
	windows     []Window
	bounds      Bounds
}

// NewEngine creates an engine for an appointment length in seconds and a
// set of ISO (YYYY-MM-DD) dates on which nothing may be selected.
// The engine starts with no windows; SetWindows installs them whenever
// the visible week's data arrives.
func NewEngine(durationSeconds int, unavailableDates []string) *Engine {
	unavailable := make(map[string]struct{}, len(unavailableDates))
	for _, d := range unavailableDates {
		unavailable[d] = struct{}{}
	}

	return &Engine{
		duration:    TimeOfDay(durationSeconds),
		unavailable: unavailable,
		bounds:      DefaultBounds,
	}
}

// IsDateAvailable reports whether a day may be selected at all. It only
// consults the unavailable-date set, independent of business hours.
func (e *Engine) IsDateAvailable(date string) bool {
	_, blocked := e.unavailable[date]
	return !blocked
}

// SetWindows replaces the active window set wholesale and recomputes the
// display bounds. Pass nil after a failed fetch to fall back to defaults
// and make every range evaluate as no fit.
func (e *Engine) SetWindows(windows []Window) {
	e.windows = windows
	e.bounds = ComputeBounds(windows)
}

// Bounds returns the display bounds for the active window set.
func (e *Engine) Bounds() Bounds {
	return e.bounds
}

// EvaluateRange normalizes a raw selected range into a bookable slot of
// exactly the appointment duration, or reports that no window can
// accommodate it. The date component is taken from start; ranges never
// cross midnight.
//
// The first window (in list order) on start's weekday whose span is at
// least the duration and whose half-open interval overlaps the candidate
// wins. The candidate is clamped to that window, then resized: an
// oversized span is truncated from the end, an undersized one is extended
// at the end first and only shifted backward when the window end is in
// the way. The order matters: a borderline drag resolves to the later
// slot when possible.
func (e *Engine) EvaluateRange(start, end time.Time) (Slot, bool) {
	startSec := SecondsOfDay(start)
	endSec := SecondsOfDay(end)
	day := start.Weekday()

	var win Window
	found := false
	for _, w := range e.windows {
		if !w.appliesOn(day) {
			continue
		}
		if w.EndTime-w.StartTime < e.duration {
			continue
		}
		if w.StartTime < endSec && w.EndTime > startSec {
			win = w
			found = true
			break
		}
	}
	if !found {
		return Slot{}, false
	}

	// Clamp the selection to the window.
	if startSec < win.StartTime {
		startSec = win.StartTime
	}
	if endSec > win.EndTime {
		endSec = win.EndTime
	}

	if endSec-startSec > e.duration {
		endSec = startSec + e.duration
	} else if endSec-startSec < e.duration {
		endSec = startSec + e.duration
		if endSec > win.EndTime {
			endSec = win.EndTime
		}
		if endSec-startSec < e.duration {
			startSec = endSec - e.duration
		}
	}

	adjusted := start.Add(time.Duration(startSec-SecondsOfDay(start)) * time.Second)

	return Slot{
		Start: adjusted,
		End:   adjusted.Add(time.Duration(e.duration) * time.Second),
	}, true
}

// ComputeBounds derives display bounds from a window set. The grid stays
// tight around actual bookable hours, but the 9:00-14:00 core is never
// clipped, and a 15 minute margin keeps edge-of-window slots away from
// the grid border: the lower bound gets the margin and floors to the
// hour, the upper bound ceils to the hour and then gets the margin
// unless that would pass midnight.
func ComputeBounds(windows []Window) Bounds {
	if len(windows) == 0 {
		return DefaultBounds
	}

	minStart := 9 * Hour
	maxEnd := 14 * Hour
	for _, w := range windows {
		if w.StartTime < minStart {
			minStart = w.StartTime
		}
		if w.EndTime > maxEnd {
			maxEnd = w.EndTime
		}
	}

	if minStart > QuarterHour {
		minStart -= QuarterHour
	}
	minStart = minStart / Hour * Hour

	maxEnd = (maxEnd + Hour - 1) / Hour * Hour
	if maxEnd < EndOfDay {
		maxEnd += QuarterHour
	}

	return Bounds{MinTime: minStart, MaxTime: maxEnd}
}
