package availability

import (
	"testing"
	"time"
)

// 2026-01-05 is a Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func at(day time.Time, h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func window(days []time.Weekday, startH, startM, endH, endM int) Window {
	return Window{
		DaysOfWeek: days,
		StartTime:  TimeOfDay(startH)*Hour + TimeOfDay(startM)*Minute,
		EndTime:    TimeOfDay(endH)*Hour + TimeOfDay(endM)*Minute,
	}
}

func newTestEngine(durationSeconds int, windows ...Window) *Engine {
	e := NewEngine(durationSeconds, nil)
	e.SetWindows(windows)
	return e
}

func TestEvaluateRange_InsideWindow(t *testing.T) {
	e := newTestEngine(3600, window([]time.Weekday{time.Monday}, 9, 0, 12, 0))

	slot, ok := e.EvaluateRange(at(monday, 10, 0), at(monday, 11, 0))
	if !ok {
		t.Fatal("expected a slot, got no fit")
	}
	if !slot.Start.Equal(at(monday, 10, 0)) || !slot.End.Equal(at(monday, 11, 0)) {
		t.Fatalf("expected 10:00-11:00, got %s-%s", slot.Start, slot.End)
	}
	if slot.End.Sub(slot.Start) != time.Hour {
		t.Fatalf("expected slot length 1h, got %s", slot.End.Sub(slot.Start))
	}
}

func TestEvaluateRange_NoWindowOnDay(t *testing.T) {
	e := newTestEngine(3600, window([]time.Weekday{time.Tuesday}, 9, 0, 12, 0))

	if _, ok := e.EvaluateRange(at(monday, 10, 0), at(monday, 11, 0)); ok {
		t.Fatal("expected no fit on a day without windows")
	}
}

func TestEvaluateRange_WindowShorterThanDuration(t *testing.T) {
	// The only overlapping window spans 30 minutes, the appointment needs 60.
	e := newTestEngine(3600, window([]time.Weekday{time.Monday}, 9, 0, 9, 30))

	if _, ok := e.EvaluateRange(at(monday, 9, 0), at(monday, 9, 30)); ok {
		t.Fatal("expected no fit in a window shorter than the duration")
	}
}

func TestEvaluateRange_NoOverlap(t *testing.T) {
	e := newTestEngine(3600, window([]time.Weekday{time.Monday}, 9, 0, 12, 0))

	if _, ok := e.EvaluateRange(at(monday, 13, 0), at(monday, 14, 0)); ok {
		t.Fatal("expected no fit outside the window")
	}
}

func TestEvaluateRange_TruncatesOversizedSelection(t *testing.T) {
	e := newTestEngine(3600, window([]time.Weekday{time.Monday}, 9, 0, 12, 0))

	slot, ok := e.EvaluateRange(at(monday, 9, 0), at(monday, 10, 30))
	if !ok {
		t.Fatal("expected a slot, got no fit")
	}
	if !slot.Start.Equal(at(monday, 9, 0)) || !slot.End.Equal(at(monday, 10, 0)) {
		t.Fatalf("expected 09:00-10:00, got %s-%s", slot.Start, slot.End)
	}
}

func TestEvaluateRange_ExtendsUndersizedSelection(t *testing.T) {
	e := newTestEngine(1800, window([]time.Weekday{time.Monday}, 9, 0, 12, 0))

	slot, ok := e.EvaluateRange(at(monday, 9, 0), at(monday, 9, 10))
	if !ok {
		t.Fatal("expected a slot, got no fit")
	}
	if !slot.Start.Equal(at(monday, 9, 0)) || !slot.End.Equal(at(monday, 9, 30)) {
		t.Fatalf("expected 09:00-09:30, got %s-%s", slot.Start, slot.End)
	}
}

func TestEvaluateRange_ShiftsStartBackAtWindowEnd(t *testing.T) {
	// Extending 11:45 by 30 minutes would pass the window end,
	// so the start moves back instead.
	e := newTestEngine(1800, window([]time.Weekday{time.Monday}, 9, 0, 12, 0))

	slot, ok := e.EvaluateRange(at(monday, 11, 45), at(monday, 12, 0))
	if !ok {
		t.Fatal("expected a slot, got no fit")
	}
	if !slot.Start.Equal(at(monday, 11, 30)) || !slot.End.Equal(at(monday, 12, 0)) {
		t.Fatalf("expected 11:30-12:00, got %s-%s", slot.Start, slot.End)
	}
}

func TestEvaluateRange_ClampsToWindowStart(t *testing.T) {
	e := newTestEngine(3600, window([]time.Weekday{time.Monday}, 9, 0, 12, 0))

	slot, ok := e.EvaluateRange(at(monday, 8, 30), at(monday, 9, 45))
	if !ok {
		t.Fatal("expected a slot, got no fit")
	}
	if !slot.Start.Equal(at(monday, 9, 0)) || !slot.End.Equal(at(monday, 10, 0)) {
		t.Fatalf("expected 09:00-10:00, got %s-%s", slot.Start, slot.End)
	}
}

func TestEvaluateRange_FirstMatchingWindowWins(t *testing.T) {
	// Both windows overlap the candidate; list order decides, not fit quality.
	e := newTestEngine(3600,
		window([]time.Weekday{time.Monday}, 10, 30, 12, 0),
		window([]time.Weekday{time.Monday}, 9, 0, 12, 0),
	)

	slot, ok := e.EvaluateRange(at(monday, 10, 45), at(monday, 11, 0))
	if !ok {
		t.Fatal("expected a slot, got no fit")
	}
	if !slot.Start.Equal(at(monday, 10, 45)) || !slot.End.Equal(at(monday, 11, 45)) {
		t.Fatalf("expected 10:45-11:45 from the first window, got %s-%s", slot.Start, slot.End)
	}
}

func TestEvaluateRange_SkipsUndersizedWindowInScan(t *testing.T) {
	// The first listed window overlaps but is too short; the scan moves on.
	e := newTestEngine(3600,
		window([]time.Weekday{time.Monday}, 10, 0, 10, 30),
		window([]time.Weekday{time.Monday}, 9, 0, 12, 0),
	)

	slot, ok := e.EvaluateRange(at(monday, 10, 0), at(monday, 10, 30))
	if !ok {
		t.Fatal("expected a slot, got no fit")
	}
	if !slot.Start.Equal(at(monday, 10, 0)) || !slot.End.Equal(at(monday, 11, 0)) {
		t.Fatalf("expected 10:00-11:00, got %s-%s", slot.Start, slot.End)
	}
}

func TestEvaluateRange_Idempotent(t *testing.T) {
	e := newTestEngine(1800, window([]time.Weekday{time.Monday}, 9, 0, 12, 0))

	first, ok := e.EvaluateRange(at(monday, 11, 45), at(monday, 12, 0))
	if !ok {
		t.Fatal("expected a slot, got no fit")
	}

	second, ok := e.EvaluateRange(first.Start, first.End)
	if !ok {
		t.Fatal("expected re-evaluation to fit")
	}
	if !second.Start.Equal(first.Start) || !second.End.Equal(first.End) {
		t.Fatalf("re-evaluation drifted: %s-%s vs %s-%s",
			first.Start, first.End, second.Start, second.End)
	}
}

func TestEvaluateRange_NoWindowsSet(t *testing.T) {
	e := NewEngine(3600, nil)

	if _, ok := e.EvaluateRange(at(monday, 10, 0), at(monday, 11, 0)); ok {
		t.Fatal("expected no fit with no windows set")
	}
}

func TestIsDateAvailable(t *testing.T) {
	e := NewEngine(3600, []string{"2026-01-05", "2026-01-06"})

	if e.IsDateAvailable("2026-01-05") {
		t.Error("2026-01-05 should be unavailable")
	}
	if !e.IsDateAvailable("2026-01-07") {
		t.Error("2026-01-07 should be available")
	}
}

func TestComputeBounds_EmptyWindows(t *testing.T) {
	b := ComputeBounds(nil)
	if b != DefaultBounds {
		t.Fatalf("expected default bounds 08:00-16:00, got %s-%s", b.MinTime, b.MaxTime)
	}
}

func TestComputeBounds_MarginAndRounding(t *testing.T) {
	b := ComputeBounds([]Window{
		window([]time.Weekday{time.Monday}, 9, 30, 11, 0),
		window([]time.Weekday{time.Monday}, 13, 0, 15, 30),
	})

	// 9:30 - 0:15 = 9:15, floored to 9:00; 15:30 ceiled to 16:00, plus 0:15.
	if b.MinTime != 9*Hour {
		t.Errorf("expected min 09:00:00, got %s", b.MinTime)
	}
	if b.MaxTime != 16*Hour+QuarterHour {
		t.Errorf("expected max 16:15:00, got %s", b.MaxTime)
	}
}

func TestComputeBounds_DefaultCoreNeverClipped(t *testing.T) {
	// A single midday window must not pull the bounds inside 9:00-14:00.
	b := ComputeBounds([]Window{window([]time.Weekday{time.Monday}, 10, 0, 11, 0)})

	// 9:00 - 0:15 = 8:45, floored to 8:00.
	if b.MinTime != 8*Hour {
		t.Errorf("expected min 08:00:00, got %s", b.MinTime)
	}
	if b.MaxTime != 14*Hour+QuarterHour {
		t.Errorf("expected max 14:15:00, got %s", b.MaxTime)
	}
}

func TestComputeBounds_NoMarginPastMidnight(t *testing.T) {
	b := ComputeBounds([]Window{window([]time.Weekday{time.Friday}, 20, 0, 23, 30)})

	if b.MaxTime != EndOfDay {
		t.Errorf("expected max 24:00:00, got %s", b.MaxTime)
	}
}

func TestComputeBounds_EarlyMorningWindow(t *testing.T) {
	// A start within the first quarter hour gets no margin and floors to 00:00.
	b := ComputeBounds([]Window{window([]time.Weekday{time.Monday}, 0, 10, 11, 0)})

	if b.MinTime != 0 {
		t.Errorf("expected min 00:00:00, got %s", b.MinTime)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
	}{
		{"09:00", 9 * Hour},
		{"9:00", 9 * Hour},
		{"09:30:15", 9*Hour + 30*Minute + 15},
		{"24:00", EndOfDay},
		{"00:00:00", 0},
	}

	for _, c := range cases {
		got, err := ParseTimeOfDay(c.in)
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"", "9", "25:00", "09:xx", "1:2:3:4"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Errorf("ParseTimeOfDay(%q): expected error", bad)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if s := (9*Hour + 5*Minute).String(); s != "09:05:00" {
		t.Errorf("expected 09:05:00, got %s", s)
	}
	if s := EndOfDay.String(); s != "24:00:00" {
		t.Errorf("expected 24:00:00, got %s", s)
	}
}
