package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/leprikon-cz/availability/internal/availability"
)

type SelectionStatus string

const (
	StatusPending   SelectionStatus = "pending"
	StatusConfirmed SelectionStatus = "confirmed"
	StatusExpired   SelectionStatus = "expired"
)

// DaysOfWeek is a bitmask of weekdays with Monday in the lowest bit,
// the storage representation of recurring rules.
type DaysOfWeek int

const (
	Monday DaysOfWeek = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday

	Weekdays = Monday | Tuesday | Wednesday | Thursday | Friday
	AllDays  = Weekdays | Saturday | Sunday
)

// maskOrder maps bit positions to time.Weekday (Sunday = 0) numbering
// used by the business-hours feed and the availability engine.
var maskOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// Weekdays expands the bitmask into feed-order weekdays.
func (d DaysOfWeek) Weekdays() []time.Weekday {
	var days []time.Weekday
	for i, wd := range maskOrder {
		if d&(1<<i) != 0 {
			days = append(days, wd)
		}
	}
	return days
}

func (d DaysOfWeek) Contains(day time.Weekday) bool {
	for _, wd := range d.Weekdays() {
		if wd == day {
			return true
		}
	}
	return false
}

// Activity is a bookable offering with a uniform appointment length.
type Activity struct {
	ID              uuid.UUID
	Name            string
	DurationSeconds int
	MinStartDate    time.Time
	MaxEndDate      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WeeklyTimeRule is a recurring business-hours window with an optional
// validity date range. Rules are kept in insertion order; the engine's
// first-match scan depends on it.
type WeeklyTimeRule struct {
	ID         uuid.UUID
	ActivityID uuid.UUID
	Days       DaysOfWeek
	StartTime  availability.TimeOfDay
	EndTime    availability.TimeOfDay
	StartDate  *time.Time
	EndDate    *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// activeDuring reports whether the rule's validity range overlaps the
// half-open [from, to). Rules without dates are always active. A rule
// starting exactly on to (the next week's Monday) is not yet active.
func (r WeeklyTimeRule) activeDuring(from, to time.Time) bool {
	if r.StartDate != nil && !r.StartDate.Before(to) {
		return false
	}
	if r.EndDate != nil && r.EndDate.Before(from) {
		return false
	}
	return true
}

// FlattenRules converts the rules applicable to [from, to) into the flat
// window list the engine scans and the calendar widget consumes.
func FlattenRules(rules []WeeklyTimeRule, from, to time.Time) []availability.Window {
	windows := make([]availability.Window, 0, len(rules))
	for _, r := range rules {
		if !r.activeDuring(from, to) {
			continue
		}
		if r.Days == 0 || r.StartTime >= r.EndTime {
			continue
		}
		windows = append(windows, availability.Window{
			DaysOfWeek: r.Days.Weekdays(),
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
		})
	}
	return windows
}

// BlockedDate marks a whole day as unavailable for an activity.
type BlockedDate struct {
	ActivityID uuid.UUID
	Day        time.Time
	Reason     string
}

// Selection is the committed slot of one client for one activity. A new
// commit replaces the previous selection for the same (activity, client)
// pair atomically.
type Selection struct {
	ID         uuid.UUID
	ActivityID uuid.UUID
	ClientID   uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	Label      string
	Status     SelectionStatus
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type EventLog struct {
	ID          int64
	EventType   string
	SelectionID *uuid.UUID
	Payload     []byte
	CreatedAt   time.Time
}

// SlotLabel renders the human-readable form-field label for a slot,
// e.g. "05.01.2026 10:00 - 11:00".
func SlotLabel(slot availability.Slot) string {
	return slot.Start.Format("02.01.2006 15:04") + " - " + slot.End.Format("15:04")
}

// ISODate formats a timestamp's day component the way the widget keys
// unavailable dates.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}
