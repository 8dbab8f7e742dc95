// Package datetime turns loose ticket date and time strings into
// "2006-01-02T15:04:05" timestamps carrying a caller supplied UTC offset.
package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const layout = "2006-01-02T15:04:05"

var (
	// combined date + time in one substring
	reDMYTime  = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})\s+(\d{1,2}):(\d{2})`)
	reYMDTime  = regexp.MustCompile(`\b(\d{4})[/.-](\d{1,2})[/.-](\d{1,2})\s+(\d{1,2}):(\d{2})`)
	reDMYYTime = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{2})\s+(\d{1,2}):(\d{2})`)

	// date only
	reDMY      = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})\b`)
	reYMD      = regexp.MustCompile(`\b(\d{4})[/.-](\d{1,2})[/.-](\d{1,2})\b`)
	reDMYY     = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{2})\b`)
	reDMonY    = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+(\d{2,4})\b`)
	reDMonYHeb = regexp.MustCompile(`\b(\d{1,2})\s+(ינואר|פברואר|מרץ|אפריל|מאי|יוני|יולי|אוגוסט|ספטמבר|אוקטובר|נובמבר|דצמבר)\s+(\d{2,4})\b`)

	// time only
	reTime = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})(?::(\d{2}))?(?:\s*([AP])M\b)?`)
)

var englishMonths = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var hebrewMonths = map[string]time.Month{
	"ינואר": time.January, "פברואר": time.February, "מרץ": time.March, "אפריל": time.April,
	"מאי": time.May, "יוני": time.June, "יולי": time.July, "אוגוסט": time.August,
	"ספטמבר": time.September, "אוקטובר": time.October, "נובמבר": time.November, "דצמבר": time.December,
}

type date struct{ y, m, d int }

type clock struct{ h, min, s int }

// Normalize resolves candidate into a timestamp with offset appended.
// Context is the surrounding document text, searched when the candidate
// carries only half of the value. Returns false when nothing parses.
func Normalize(candidate, context, offset string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}

	if t, ok := combined(candidate); ok {
		return t.Format(layout) + offset, true
	}

	d, haveDate := findDate(candidate)
	c, haveTime := findTime(candidate)

	switch {
	case haveDate && haveTime:
		if t, ok := build(d, c); ok {
			return t.Format(layout) + offset, true
		}
	case haveDate:
		if c, ok := findTime(context); ok {
			if t, ok := build(d, c); ok {
				return t.Format(layout) + offset, true
			}
		}
	case haveTime:
		if d, ok := findDate(context); ok {
			if t, ok := build(d, c); ok {
				return t.Format(layout) + offset, true
			}
		}
		return "", false
	}

	if haveDate {
		if t, ok := build(d, clock{}); ok {
			return t.Format(layout) + offset, true
		}
	}
	return "", false
}

func combined(s string) (time.Time, bool) {
	if m := reDMYTime.FindStringSubmatch(s); m != nil {
		if t, ok := build(date{atoi(m[3]), atoi(m[2]), atoi(m[1])}, clock{atoi(m[4]), atoi(m[5]), 0}); ok {
			return t, true
		}
	}
	if m := reYMDTime.FindStringSubmatch(s); m != nil {
		if t, ok := build(date{atoi(m[1]), atoi(m[2]), atoi(m[3])}, clock{atoi(m[4]), atoi(m[5]), 0}); ok {
			return t, true
		}
	}
	if m := reDMYYTime.FindStringSubmatch(s); m != nil {
		if t, ok := build(date{expandYear(atoi(m[3])), atoi(m[2]), atoi(m[1])}, clock{atoi(m[4]), atoi(m[5]), 0}); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// findDate returns the first valid date in s, trying numeric layouts before month names.
func findDate(s string) (date, bool) {
	if m := reDMY.FindStringSubmatch(s); m != nil {
		if d := (date{atoi(m[3]), atoi(m[2]), atoi(m[1])}); d.valid() {
			return d, true
		}
	}
	if m := reYMD.FindStringSubmatch(s); m != nil {
		if d := (date{atoi(m[1]), atoi(m[2]), atoi(m[3])}); d.valid() {
			return d, true
		}
	}
	if m := reDMYY.FindStringSubmatch(s); m != nil {
		if d := (date{expandYear(atoi(m[3])), atoi(m[2]), atoi(m[1])}); d.valid() {
			return d, true
		}
	}
	if m := reDMonY.FindStringSubmatch(s); m != nil {
		mon := englishMonths[strings.ToLower(m[2])]
		if d := (date{yearOf(m[3]), int(mon), atoi(m[1])}); d.valid() {
			return d, true
		}
	}
	if m := reDMonYHeb.FindStringSubmatch(s); m != nil {
		if d := (date{yearOf(m[3]), int(hebrewMonths[m[2]]), atoi(m[1])}); d.valid() {
			return d, true
		}
	}
	return date{}, false
}

func findTime(s string) (clock, bool) {
	for _, m := range reTime.FindAllStringSubmatch(s, -1) {
		c := clock{h: atoi(m[1]), min: atoi(m[2])}
		if m[3] != "" {
			c.s = atoi(m[3])
		}
		switch strings.ToUpper(m[4]) {
		case "P":
			if c.h >= 1 && c.h < 12 {
				c.h += 12
			}
		case "A":
			if c.h == 12 {
				c.h = 0
			}
		}
		if c.h < 24 && c.min < 60 && c.s < 60 {
			return c, true
		}
	}
	return clock{}, false
}

func build(d date, c clock) (time.Time, bool) {
	if !d.valid() || c.h > 23 || c.min > 59 || c.s > 59 {
		return time.Time{}, false
	}
	return time.Date(d.y, time.Month(d.m), d.d, c.h, c.min, c.s, 0, time.UTC), true
}

// valid rejects dates time.Date would roll over, such as 31/02.
func (d date) valid() bool {
	if d.m < 1 || d.m > 12 || d.d < 1 || d.y < 1 {
		return false
	}
	t := time.Date(d.y, time.Month(d.m), d.d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d.d && int(t.Month()) == d.m
}

func yearOf(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		return expandYear(y)
	}
	return y
}

// expandYear maps two digit years like strptime's %y: 69-99 to 19xx, 00-68 to 20xx.
func expandYear(y int) int {
	if y < 69 {
		return 2000 + y
	}
	return 1900 + y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// FromISO accepts an already structured timestamp. Values carrying their own
// offset are kept; naive values get offset appended. Seconds default to zero.
func FromISO(value, offset string) (string, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format(time.RFC3339), true
	}
	for _, l := range []string{layout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.Parse(l, value); err == nil {
			return t.Format(layout) + offset, true
		}
	}
	return "", false
}
