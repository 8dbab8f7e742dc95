package extract

import (
	"regexp"
	"strings"
)

// Candidates are the loose date, number and code substrings found in a document.
// Order follows pattern declaration order, then position; duplicates are kept.
type Candidates struct {
	Dates   []string `json:"dates"`
	Numbers []string `json:"numbers"`
	Codes   []string `json:"codes"`
}

const hebrewMonths = `ינואר|פברואר|מרץ|אפריל|מאי|יוני|יולי|אוגוסט|ספטמבר|אוקטובר|נובמבר|דצמבר`
const hebrewWeekdays = `יום ראשון|יום שני|יום שלישי|יום רביעי|יום חמישי|יום שישי|יום שבת`

// candidatePattern yields the whole match, or capture group 1 when group is set.
type candidatePattern struct {
	re    *regexp.Regexp
	group bool
}

func full(expr string) candidatePattern    { return candidatePattern{re: regexp.MustCompile(expr)} }
func grouped(expr string) candidatePattern { return candidatePattern{re: regexp.MustCompile(expr), group: true} }

var datePatterns = []candidatePattern{
	full(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`),
	full(`\b\d{4}[/.-]\d{1,2}[/.-]\d{1,2}\b`),
	full(`(?i)\b\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4}\b`),
	full(`(?i)\b(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun)[a-z]*\s+\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`),
	full(`\b\d{1,2}\s+(?:` + hebrewMonths + `)\s+\d{2,4}\b`),
	full(`(?:` + hebrewWeekdays + `)\s+\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`),
	full(`תאריך[:]\s*\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}`),
}

// Times are reported with the date candidates.
var timePatterns = []candidatePattern{
	full(`(?i)\b\d{1,2}:\d{2}(?::\d{2})?\s*(?:[AP]M)?\b`),
	full(`\b\d{1,2}\.\d{2}\b`),
}

var numberPatterns = []candidatePattern{
	full(`\b\d{3,}\b`),
	full(`\$\d+(?:\.\d{2})?\b`),
	full(`\b\d+[A-Z]\b`),
	full(`\b[A-Z]\d+\b`),
}

var codePatterns = []candidatePattern{
	full(`(?i)\b[A-Z0-9]{6,}\b`),
	full(`(?i)\b[A-Z]{2}\d{3,4}\b`),
	grouped(`(?i)\bPNR:?\s*([A-Z0-9]+)\b`),
	grouped(`(?i)\bRef:?\s*([A-Z0-9]+)\b`),
	grouped(`(?i)\bBooking:?\s*([A-Z0-9]+)\b`),
}

// ParseCandidates runs every candidate pattern over text.
func ParseCandidates(text string) Candidates {
	var c Candidates
	c.Dates = collect(text, datePatterns, c.Dates)
	c.Dates = collect(text, timePatterns, c.Dates)
	c.Numbers = collect(text, numberPatterns, c.Numbers)
	c.Codes = collect(text, codePatterns, c.Codes)
	return c
}

func collect(text string, patterns []candidatePattern, out []string) []string {
	for _, p := range patterns {
		if !p.group {
			for _, m := range p.re.FindAllString(text, -1) {
				if s := strings.TrimSpace(m); s != "" {
					out = append(out, s)
				}
			}
			continue
		}
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if len(m) > 1 && m[1] != "" {
				out = append(out, m[1])
			}
		}
	}
	return out
}
