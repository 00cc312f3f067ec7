package schedule

import "time"

// Horizon bounds how far into the future a schedule is expanded.
type Horizon struct {
	Days  int // used by daily schedules
	Weeks int // used by weekly schedules
}

// DefaultHorizon matches the materialization windows used throughout the
// system: 30 days of daily reminders, 8 weeks of weekly ones.
func DefaultHorizon() Horizon {
	return Horizon{Days: 30, Weeks: 8}
}

// Instant is a single concrete trigger produced by expansion. When is the
// absolute instant with seconds and sub-seconds zeroed; Time is the
// wall-clock component kept alongside for same-day ordering.
type Instant struct {
	When time.Time
	Time TimeOfDay
}

// Expand turns a schedule into its finite list of trigger instants within the
// horizon, anchored at anchor and computed in UTC. It is a pure function of
// its inputs: the caller supplies the anchor, the system clock is never read.
func Expand(s Schedule, h Horizon, anchor time.Time) []Instant {
	return ExpandIn(s, h, anchor, time.UTC)
}

// ExpandIn is Expand in an arbitrary location. The server materializes in
// UTC; the device-local scheduler expands the same rules against the device's
// own calendar.
func ExpandIn(s Schedule, h Horizon, anchor time.Time, loc *time.Location) []Instant {
	switch s.Type {
	case TypeDaily:
		return expandDaily(s.Times, h.Days, anchor, loc)
	case TypeWeekly:
		return expandWeekly(s.Times, s.Days, h.Weeks, anchor, loc)
	default:
		// As-needed schedules produce no future instants.
		return nil
	}
}

// stamp builds the instant from calendar fields of day and the slot's
// hour:minute, zeroing seconds. Field-by-field construction avoids drift when
// the anchor was produced in a different zone than loc.
func stamp(day time.Time, slot TimeOfDay, loc *time.Location) Instant {
	year, month, dom := day.Date()
	return Instant{
		When: time.Date(year, month, dom, slot.Hour, slot.Minute, 0, 0, loc),
		Time: slot,
	}
}

func expandDaily(times []TimeOfDay, days int, anchor time.Time, loc *time.Location) []Instant {
	anchor = anchor.In(loc)
	instants := make([]Instant, 0, days*len(times))
	for i := 0; i < days; i++ {
		day := anchor.AddDate(0, 0, i)
		for _, slot := range times {
			instants = append(instants, stamp(day, slot, loc))
		}
	}
	return instants
}

func expandWeekly(times []TimeOfDay, days []int, weeks int, anchor time.Time, loc *time.Location) []Instant {
	anchor = anchor.In(loc)
	currentDay := int(anchor.Weekday())
	instants := make([]Instant, 0, weeks*len(days)*len(times))
	for week := 0; week < weeks; week++ {
		for _, day := range days {
			// The +7 keeps the offset non-negative when the weekday has
			// already passed this week, rolling it to the next occurrence.
			daysUntilNext := (day - currentDay + 7) % 7
			daysUntilNext += week * 7
			target := anchor.AddDate(0, 0, daysUntilNext)
			for _, slot := range times {
				instants = append(instants, stamp(target, slot, loc))
			}
		}
	}
	return instants
}
