// Package reset infers the assistant's next usage-quota reset from the
// monitor CLI's human-oriented output.
package reset

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// StripANSI removes terminal escape sequences so the patterns below see
// plain text. The monitor renders with colors and cursor movement.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// Fallback pattern chain, first match wins. The monitor's wording has
// changed across releases; the absolute forms come first because they are
// more precise than the countdown forms.
var (
	resetAtMeridiem = regexp.MustCompile(`(?i)Limit\s+resets\s+at\s*[:\-]?\s*(\d{1,2}:\d{2})\s*(a\.m\.|p\.m\.|AM|PM)`)
	resetAt24h      = regexp.MustCompile(`(?i)Limit\s+resets\s+at\s*[:\-]?\s*(\d{2}):(\d{2})`)
	countdownClock  = regexp.MustCompile(`(?i)Time\s*to\s*Reset\s*[:\-]?\s*(\d{1,2}):(\d{2})(?::(\d{2}))?`)
	countdownHM     = regexp.MustCompile(`(?i)Time\s*to\s*Reset\s*[:\-]?\s*(\d+)\s*h\s*(\d+)?\s*m`)
)

// Parse extracts the next reset instant from raw monitor output. Absolute
// times are interpreted in now's location and roll to the next day when
// already past. Returns false when no pattern matches.
func Parse(raw string, now time.Time) (time.Time, bool) {
	out := StripANSI(raw)

	if m := resetAtMeridiem.FindStringSubmatch(out); m != nil {
		meridiem := strings.ToUpper(strings.NewReplacer("a.m.", "AM", "p.m.", "PM").Replace(m[2]))
		when, err := time.Parse("3:04 PM", m[1]+" "+meridiem)
		if err == nil {
			return rollForward(now, when.Hour(), when.Minute()), true
		}
	}
	if m := resetAt24h.FindStringSubmatch(out); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if hh < 24 && mm < 60 {
			return rollForward(now, hh, mm), true
		}
	}
	if m := countdownClock.FindStringSubmatch(out); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		s := 0
		if m[3] != "" {
			s, _ = strconv.Atoi(m[3])
		}
		d := time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(s)*time.Second
		return now.Add(d), true
	}
	if m := countdownHM.FindStringSubmatch(out); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi := 0
		if m[2] != "" {
			mi, _ = strconv.Atoi(m[2])
		}
		return now.Add(time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute), true
	}
	return time.Time{}, false
}

func rollForward(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}
