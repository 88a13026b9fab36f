package window

import (
	"testing"
	"time"
)

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	if err != nil {
		t.Fatalf("parse clock %q: %v", s, err)
	}
	return c
}

func TestParseClock(t *testing.T) {
	c := mustClock(t, "06:30")
	if c.Hour != 6 || c.Minute != 30 {
		t.Fatalf("unexpected clock: %+v", c)
	}
	if c.String() != "06:30" {
		t.Fatalf("unexpected string: %s", c.String())
	}
	for _, bad := range []string{"", "6", "24:00", "12:60", "ab:cd", "12:30:15extra:"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseClockTolerantOfWhitespace(t *testing.T) {
	c := mustClock(t, " 23:00 ")
	if c.Hour != 23 || c.Minute != 0 {
		t.Fatalf("unexpected clock: %+v", c)
	}
}

func TestParseDaysLetters(t *testing.T) {
	set, err := ParseDays("MWF")
	if err != nil {
		t.Fatalf("parse days failed: %v", err)
	}
	if !set[time.Monday] || !set[time.Wednesday] || !set[time.Friday] {
		t.Fatalf("expected M/W/F active: %v", set)
	}
	if set[time.Tuesday] || set[time.Thursday] || set[time.Saturday] || set[time.Sunday] {
		t.Fatalf("unexpected extra days: %v", set)
	}

	set, err = ParseDays("ru")
	if err != nil {
		t.Fatalf("parse days failed: %v", err)
	}
	if !set[time.Thursday] || !set[time.Sunday] {
		t.Fatalf("expected R=Thursday U=Sunday: %v", set)
	}
}

func TestParseDaysWeekdays(t *testing.T) {
	set, err := ParseDays("weekdays")
	if err != nil {
		t.Fatalf("parse days failed: %v", err)
	}
	if len(set) != 5 || set[time.Saturday] || set[time.Sunday] {
		t.Fatalf("expected Mon-Fri: %v", set)
	}
}

func TestParseDaysRejectsUnknownLetters(t *testing.T) {
	if _, err := ParseDays("MXZ"); err == nil {
		t.Fatalf("expected error for unknown letters")
	}
	if _, err := ParseDays(""); err == nil {
		t.Fatalf("expected error for empty days")
	}
}

func testSchedule(t *testing.T) Schedule {
	t.Helper()
	days, err := ParseDays("MTWRF")
	if err != nil {
		t.Fatalf("parse days: %v", err)
	}
	return Schedule{
		Start: Clock{Hour: 6},
		End:   Clock{Hour: 23},
		Days:  days,
		Loc:   time.UTC,
	}
}

func TestNextStartBeforeAndAfterClock(t *testing.T) {
	s := testSchedule(t)

	// Monday 2026-03-02 05:00, start still ahead today.
	now := time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC)
	next, err := s.NextStart(now)
	if err != nil {
		t.Fatalf("next start failed: %v", err)
	}
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}

	// Exactly at the start clock rolls to the next day.
	next, err = s.NextStart(want)
	if err != nil {
		t.Fatalf("next start failed: %v", err)
	}
	if !next.Equal(want.AddDate(0, 0, 1)) {
		t.Fatalf("expected next-day rollover, got %v", next)
	}
}

func TestActiveDay(t *testing.T) {
	s := testSchedule(t)
	monday := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	if !s.ActiveDay(monday) {
		t.Fatalf("expected monday active")
	}
	if s.ActiveDay(saturday) {
		t.Fatalf("expected saturday inactive")
	}
}

func TestCronSchedule(t *testing.T) {
	s := testSchedule(t)
	s.Cron = "30 7 * * 1-5"

	monday := time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC)
	next, err := s.NextStart(monday)
	if err != nil {
		t.Fatalf("cron next start failed: %v", err)
	}
	want := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}

	if !s.ActiveDay(monday) {
		t.Fatalf("expected cron monday active")
	}
	saturday := time.Date(2026, 3, 7, 5, 0, 0, 0, time.UTC)
	if s.ActiveDay(saturday) {
		t.Fatalf("expected cron saturday inactive")
	}

	// The cron tick replaces the start clock for today's open, even when
	// the day's tick is still ahead.
	if got := s.OpenToday(monday); !got.Equal(want) {
		t.Fatalf("expected cron open %v, got %v", want, got)
	}
	// After the tick has passed, the open for the day stays at the tick.
	afternoon := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	if got := s.OpenToday(afternoon); !got.Equal(want) {
		t.Fatalf("expected cron open %v, got %v", want, got)
	}
}

func TestWindowBoundsToday(t *testing.T) {
	s := testSchedule(t)
	now := time.Date(2026, 3, 2, 12, 34, 56, 0, time.UTC)
	if got := s.OpenToday(now); got.Hour() != 6 || got.Day() != 2 {
		t.Fatalf("unexpected start today: %v", got)
	}
	if got := s.EndToday(now); got.Hour() != 23 || got.Day() != 2 {
		t.Fatalf("unexpected end today: %v", got)
	}
}
