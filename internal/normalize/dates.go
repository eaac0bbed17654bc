package normalize

import (
	"regexp"
	"strings"
	"time"
)

// Unresolved is the sentinel published when no draw date could be
// determined from any source or schedule.
const Unresolved = "Check Site"

// DateLayout is the canonical calendar-date form used everywhere.
const DateLayout = "2006-01-02"

var (
	isoPattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	ordinalPattern = regexp.MustCompile(`(?i)(\d+)(st|nd|rd|th)`)
	weekdayPattern = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	monthDay       = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})\b`)
	dayMonth       = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
)

var weekdayIndex = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// FormatDate renders a date in the canonical layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NextWeekday returns the next occurrence of target strictly after now.
// A same-day hit moves a full week out: "next Wednesday" on a Wednesday
// is seven days away, never today.
func NextWeekday(now time.Time, target time.Weekday) time.Time {
	delta := (int(target) - int(now.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return midnight(now).AddDate(0, 0, delta)
}

// NextDrawFromSchedule resolves the soonest upcoming draw day from a
// weekly schedule. Reports false only for an empty schedule.
func NextDrawFromSchedule(now time.Time, schedule []time.Weekday) (time.Time, bool) {
	var best time.Time
	for _, day := range schedule {
		candidate := NextWeekday(now, day)
		if best.IsZero() || candidate.Before(best) {
			best = candidate
		}
	}
	if best.IsZero() {
		return time.Time{}, false
	}
	return best, true
}

// ParseDateText resolves a textual draw date against now. Recognized
// forms, in priority order: a canonical ISO date (returned as-is),
// "Today"/"Tomorrow" tokens, a weekday name (next occurrence), and a
// month-name with day number. Month-day dates land in the current year
// unless that already lies more than 60 days in the past, in which case
// the year advances (January dates scraped in late December).
func ParseDateText(text string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}

	if iso := isoPattern.FindString(s); iso != "" {
		if t, err := time.ParseInLocation(DateLayout, iso, now.Location()); err == nil {
			return t, true
		}
	}

	lower := strings.ToLower(s)
	if strings.Contains(lower, "today") {
		return midnight(now), true
	}
	if strings.Contains(lower, "tomorrow") {
		return midnight(now).AddDate(0, 0, 1), true
	}

	if m := weekdayPattern.FindStringSubmatch(s); m != nil {
		return NextWeekday(now, weekdayIndex[strings.ToLower(m[1])]), true
	}

	clean := ordinalPattern.ReplaceAllString(s, "$1")
	if m := monthDay.FindStringSubmatch(clean); m != nil {
		return monthDayDate(m[1], m[2], now)
	}
	if m := dayMonth.FindStringSubmatch(clean); m != nil {
		return monthDayDate(m[2], m[1], now)
	}

	return time.Time{}, false
}

func monthDayDate(monthToken, dayToken string, now time.Time) (time.Time, bool) {
	month, ok := monthIndex[strings.ToLower(monthToken)[:3]]
	if !ok {
		return time.Time{}, false
	}
	day := 0
	for _, r := range dayToken {
		day = day*10 + int(r-'0')
	}
	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if t.Day() != day {
		// Normalized overflow, e.g. February 30.
		return time.Time{}, false
	}
	if t.Before(now.AddDate(0, 0, -60)) {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
