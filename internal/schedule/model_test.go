package schedule

import (
	"testing"
	"time"

	"github.com/leprikon-cz/availability/internal/availability"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysOfWeekWeekdays(t *testing.T) {
	cases := []struct {
		mask DaysOfWeek
		want []time.Weekday
	}{
		{Monday, []time.Weekday{time.Monday}},
		{Monday | Friday, []time.Weekday{time.Monday, time.Friday}},
		{Sunday, []time.Weekday{time.Sunday}},
		{Saturday | Sunday, []time.Weekday{time.Saturday, time.Sunday}},
		{0, nil},
	}

	for _, c := range cases {
		got := c.mask.Weekdays()
		if len(got) != len(c.want) {
			t.Errorf("mask %b: got %v, want %v", c.mask, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("mask %b: got %v, want %v", c.mask, got, c.want)
				break
			}
		}
	}
}

func TestDaysOfWeekContains(t *testing.T) {
	if !Weekdays.Contains(time.Wednesday) {
		t.Error("weekday mask should contain Wednesday")
	}
	if Weekdays.Contains(time.Sunday) {
		t.Error("weekday mask should not contain Sunday")
	}
}

func TestFlattenRules(t *testing.T) {
	ruleStart := date(2026, 2, 1)
	ruleEnd := date(2026, 2, 28)

	rules := []WeeklyTimeRule{
		{Days: Monday, StartTime: 9 * availability.Hour, EndTime: 12 * availability.Hour},
		// Only valid in February
		{Days: Tuesday, StartTime: 13 * availability.Hour, EndTime: 15 * availability.Hour,
			StartDate: &ruleStart, EndDate: &ruleEnd},
		// Degenerate rules are dropped
		{Days: 0, StartTime: 9 * availability.Hour, EndTime: 12 * availability.Hour},
		{Days: Monday, StartTime: 12 * availability.Hour, EndTime: 9 * availability.Hour},
	}

	january := FlattenRules(rules, date(2026, 1, 5), date(2026, 1, 12))
	if len(january) != 1 {
		t.Fatalf("expected 1 window in January, got %d", len(january))
	}
	if january[0].StartTime != 9*availability.Hour {
		t.Errorf("expected the Monday rule, got start %s", january[0].StartTime)
	}

	february := FlattenRules(rules, date(2026, 2, 2), date(2026, 2, 9))
	if len(february) != 2 {
		t.Fatalf("expected 2 windows in February, got %d", len(february))
	}
	// Insertion order carries through to the engine's first-match scan.
	if february[0].StartTime != 9*availability.Hour || february[1].StartTime != 13*availability.Hour {
		t.Errorf("window order not preserved: %v", february)
	}
}

func TestFlattenRules_StartsOnRangeEnd(t *testing.T) {
	nextMonday := date(2026, 1, 12)
	rules := []WeeklyTimeRule{
		{Days: Monday, StartTime: 9 * availability.Hour, EndTime: 12 * availability.Hour,
			StartDate: &nextMonday},
	}

	// Week ranges are half-open: a rule starting exactly on the range
	// end is not active yet.
	if got := FlattenRules(rules, date(2026, 1, 5), nextMonday); len(got) != 0 {
		t.Fatalf("expected no windows the week before validity, got %d", len(got))
	}
	if got := FlattenRules(rules, nextMonday, date(2026, 1, 19)); len(got) != 1 {
		t.Fatalf("expected the rule in its first valid week, got %d", len(got))
	}
}

func TestWeekRange(t *testing.T) {
	// 2026-01-07 is a Wednesday; its week runs Mon 5th to Mon 12th.
	from, to := WeekRange(time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC))
	if !from.Equal(date(2026, 1, 5)) {
		t.Errorf("expected week start 2026-01-05, got %s", from)
	}
	if !to.Equal(date(2026, 1, 12)) {
		t.Errorf("expected week end 2026-01-12, got %s", to)
	}

	// Sunday belongs to the week that started the previous Monday.
	from, _ = WeekRange(date(2026, 1, 11))
	if !from.Equal(date(2026, 1, 5)) {
		t.Errorf("expected week start 2026-01-05 for a Sunday, got %s", from)
	}
}

func TestSlotLabel(t *testing.T) {
	slot := availability.Slot{
		Start: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
	}
	if got := SlotLabel(slot); got != "05.01.2026 10:00 - 11:00" {
		t.Errorf("unexpected label %q", got)
	}
}
