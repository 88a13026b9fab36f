// Package window computes the daily active window the daemon operates in:
// which days count, when the window opens, and when quiet hours begin.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Clock is a wall-clock time of day in the schedule's location.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("WIN_CLOCK_PARSE: %q is not HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("WIN_CLOCK_PARSE: bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("WIN_CLOCK_PARSE: bad minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("WIN_CLOCK_RANGE: %q out of range", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the clock instant on the calendar day of t, in t's location.
func (c Clock) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// DaySet is the set of weekdays the window is active on.
type DaySet map[time.Weekday]bool

var dayLetters = map[rune]time.Weekday{
	'M': time.Monday,
	'T': time.Tuesday,
	'W': time.Wednesday,
	'R': time.Thursday,
	'F': time.Friday,
	'S': time.Saturday,
	'U': time.Sunday,
}

// ParseDays parses a day-letter string ("MTWRFSU", R=Thursday, U=Sunday)
// or the literal "weekdays". Letters are case-insensitive; unknown letters
// are an error.
func ParseDays(s string) (DaySet, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "weekdays") {
		return DaySet{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		}, nil
	}
	if s == "" {
		return nil, fmt.Errorf("WIN_DAYS_EMPTY: no active days")
	}
	set := DaySet{}
	for _, ch := range strings.ToUpper(s) {
		wd, ok := dayLetters[ch]
		if !ok {
			return nil, fmt.Errorf("WIN_DAYS_PARSE: unknown day letter %q", string(ch))
		}
		set[wd] = true
	}
	return set, nil
}

// Schedule describes one daily active window. When Cron is set it replaces
// the Start clock and DaySet for computing window opens; End still closes
// the window each day.
type Schedule struct {
	Start Clock
	End   Clock
	Days  DaySet
	Cron  string
	Loc   *time.Location
}

// ActiveDay reports whether the window opens at all on now's calendar day.
func (s Schedule) ActiveDay(now time.Time) bool {
	now = now.In(s.Loc)
	if s.Cron != "" {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Loc)
		tick, err := gronx.NextTickAfter(s.Cron, dayStart.Add(-time.Second), false)
		if err != nil {
			return false
		}
		return tick.Before(dayStart.AddDate(0, 0, 1))
	}
	return s.Days[now.Weekday()]
}

// NextStart returns the next window open strictly after now. Without a
// cron expression this is the next occurrence of the start clock; day
// filtering is the caller's concern, matching the loop's re-check at each
// wakeup.
func (s Schedule) NextStart(now time.Time) (time.Time, error) {
	now = now.In(s.Loc)
	if s.Cron != "" {
		tick, err := gronx.NextTickAfter(s.Cron, now, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("WIN_CRON_TICK: %w", err)
		}
		return tick.In(s.Loc), nil
	}
	t := s.Start.On(now)
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// OpenToday returns the instant the window opens on now's calendar day.
// In cron mode that is the day's first tick; a day without a tick falls
// back to the start clock, so callers gate on ActiveDay first.
func (s Schedule) OpenToday(now time.Time) time.Time {
	now = now.In(s.Loc)
	if s.Cron != "" {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Loc)
		tick, err := gronx.NextTickAfter(s.Cron, dayStart.Add(-time.Second), false)
		if err == nil && tick.Before(dayStart.AddDate(0, 0, 1)) {
			return tick.In(s.Loc)
		}
	}
	return s.Start.On(now)
}

// EndToday returns today's window close for now's day.

func (s Schedule) EndToday(now time.Time) time.Time {
	return s.End.On(now.In(s.Loc))
}
