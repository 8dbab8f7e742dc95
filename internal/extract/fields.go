package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Named field keys produced by ExtractFields.
const (
	FieldVenue       = "venue"
	FieldSeat        = "seat"
	FieldAuditorium  = "auditorium"
	FieldTitle       = "title"
	FieldName        = "name"
	FieldFlight      = "flight"
	FieldOrigin      = "origin"
	FieldDestination = "destination"
	FieldPNR         = "pnr"
	FieldReservation = "reservation"
)

// Fields maps a field key to its extracted value. Missing keys were not found.
type Fields map[string]string

func (f Fields) Get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok && v != ""
}

// matcher inspects the whole text and returns one value per target key.
type matcher func(text string) ([]string, bool)

// fieldRule is one step of a field's precedence list.
type fieldRule struct {
	name  string
	match matcher
}

type fieldSpec struct {
	keys  []string
	rules []fieldRule
}

// fieldTable is evaluated top to bottom; the first accepted rule for a field wins.
// Label values use [ \t] rather than \s so they stop at the end of their line.
var fieldTable = []fieldSpec{
	{
		keys: []string{FieldVenue},
		rules: []fieldRule{
			{"venue_label", firstGroup(`(?i)(?:venue|location|theatre|theater|cinema|auditorium)[:]\s*([^\n\r]+)`)},
			{"venue_at", firstGroup(`(?i)(?:at|@)\s+([A-Z][^,\n\r]{10,50})`)},
			{"venue_label_he", firstGroup(`(?:מקום|אולם|בית קולנוע|תיאטרון|אודיטוריום|מרכז|היכל)[:]\s*([^\n\r]+)`)},
			{"venue_at_he", firstGroup(`(?:^|\s)(?:אצל\s+|ב)((?:קולנוע|תיאטרון|היכל|מרכז|אודיטוריום)[\x{0590}-\x{05FF} \t]*)`)},
			{"venue_cinema_colon_he", firstGroup(`[:]\s*קולנוע[ \t]*([^\n\r]*)`)},
			{"venue_cinema_prefix_he", firstGroup(`קולנוע[ \t]+([\x{0590}-\x{05FF} \t\w]+)`)},
			{"venue_cinema_suffix_he", firstGroup(`([\x{0590}-\x{05FF} \t]+)[ \t]+קולנוע`)},
		},
	},
	{
		keys: []string{FieldSeat},
		rules: []fieldRule{
			{"seat_label", shortSeat(`(?i)(?:seat|row|section)[:]\s*([A-Z0-9\- \t]+)`)},
			{"row_seat", rowSeat(`(?i)\b(?:Row|R)\s*(\d+)\s*(?:Seat|S)\s*([A-Z0-9]+)\b`)},
			{"seat_letter", shortSeat(`(?i)\b(\d+[A-Z])\b`)},
			{"seat_label_he", shortSeat(`(?:מושב|שורה|מקום|כיסא)[:]\s*([א-ת0-9\- \t]+)`)},
			{"row_seat_he", rowSeat(`(?:שורה|ש)\s*(\d+)\s*(?:מושב|מ)\s*([א-ת0-9]+)`)},
			{"place_number_he", shortSeat(`מקום\s*(\d+)`)},
			{"seat_line", seatLine},
			{"seat_bare_line", shortSeat(`(?m)^\s*(\d{1,2})\s*$`)},
		},
	},
	{
		keys: []string{FieldAuditorium},
		rules: []fieldRule{
			{"hall_label", firstGroup(`(?i)(?:auditorium|hall|screen|room)[:]\s*([A-Z0-9\- \t]+)`)},
			{"hall_label_he", firstGroup(`(?:אולם|מסך|חדר)[:]\s*([א-ת0-9\- \t]+)`)},
			{"hall_number_suffix_he", firstGroup(`(\d+)\s+אולם`)},
			{"hall_number_prefix_he", firstGroup(`אולם\s+(\d+)`)},
		},
	},
	{
		keys: []string{FieldTitle},
		rules: []fieldRule{
			{"title_he_inline", anyGroup(`\s([\x{0590}-\x{05FF}]+\d+)\s`, acceptTitle)},
			{"title_he_line", anyGroup(`(?m)^\s*([\x{0590}-\x{05FF}]+\d+)$`, acceptTitle)},
			{"title_en", anyGroup(`([A-Z][a-zA-Z0-9 \t]{3,30})`, acceptTitle)},
		},
	},
	{
		keys: []string{FieldName},
		rules: []fieldRule{
			{"name_label", anyGroup(`(?:passenger|guest|name)[:]\s*([A-Z][a-z]+[ \t]+[A-Z][a-z]+)`, acceptName)},
			{"name_pair", anyGroup(`\b([A-Z][a-z]+[ \t]+[A-Z][a-z]+)\b`, acceptName)},
			{"name_label_he", anyGroup(`(?:נוסע|אורח|שם)[:]\s*([\x{0590}-\x{05FF} \t]+)`, acceptName)},
			{"full_name_label_he", anyGroup(`(?:שם מלא|שם הנוסע)[:]\s*([\x{0590}-\x{05FF} \t]+)`, acceptName)},
		},
	},
	{
		keys: []string{FieldFlight},
		rules: []fieldRule{
			{"flight_label", firstGroup(`(?i)(?:flight|flt)[:]\s*([A-Z]{2}\d{3,4})`)},
			{"flight_shape", firstGroup(`(?i)\b([A-Z]{2}\s*\d{3,4})\b`)},
		},
	},
	{
		keys: []string{FieldOrigin, FieldDestination},
		rules: []fieldRule{
			{"route", groups(`\b([A-Z]{3})\s*(?:to|→|-)\s*([A-Z]{3})\b`, 2)},
		},
	},
	{
		keys: []string{FieldPNR},
		rules: []fieldRule{
			{"pnr_label", firstGroup(`(?i)(?:PNR|Confirmation)[:]\s*([A-Z0-9]{6,})`)},
		},
	},
	{
		keys: []string{FieldReservation},
		rules: []fieldRule{
			{"booking_label", firstGroup(`(?i)(?:booking|reservation|order|confirmation)[:]\s*([A-Z0-9]+)`)},
			{"ref_label", firstGroup(`(?i)(?:ref|reference)[:]\s*([A-Z0-9]+)`)},
			{"booking_label_he", firstGroup(`(?i)(?:הזמנה|רזרבציה|אישור|הזמנת כרטיס)[:]\s*([A-Z0-9]+)`)},
			{"booking_number_label_he", firstGroup(`(?i)(?:מספר הזמנה|קוד הזמנה|מספר אישור)[:]\s*([A-Z0-9]+)`)},
		},
	},
}

// ExtractFields applies fieldTable to text. Pure and deterministic.
func ExtractFields(text string) Fields {
	out := Fields{}
	for _, spec := range fieldTable {
		for _, r := range spec.rules {
			vals, ok := r.match(text)
			if !ok || len(vals) != len(spec.keys) {
				continue
			}
			for i, k := range spec.keys {
				out[k] = vals[i]
			}
			break
		}
	}
	return out
}

// MatchedRules reports which rule produced each field; used for debug logging.
func MatchedRules(text string) map[string]string {
	out := map[string]string{}
	for _, spec := range fieldTable {
		for _, r := range spec.rules {
			if vals, ok := r.match(text); ok && len(vals) == len(spec.keys) {
				out[spec.keys[0]] = r.name
				break
			}
		}
	}
	return out
}

func firstGroup(expr string) matcher {
	re := regexp.MustCompile(expr)
	return func(text string) ([]string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return nil, false
		}
		v := strings.TrimSpace(m[1])
		if v == "" {
			return nil, false
		}
		return []string{v}, true
	}
}

func groups(expr string, n int) matcher {
	re := regexp.MustCompile(expr)
	return func(text string) ([]string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < n+1 {
			return nil, false
		}
		return m[1 : n+1], true
	}
}

// anyGroup walks every match of expr and keeps the first whose group 1 is accepted.
func anyGroup(expr string, accept func(string) bool) matcher {
	re := regexp.MustCompile(expr)
	return func(text string) ([]string, bool) {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			if accept(m[1]) {
				return []string{strings.TrimSpace(m[1])}, true
			}
		}
		return nil, false
	}
}

func rowSeat(expr string) matcher {
	re := regexp.MustCompile(expr)
	return func(text string) ([]string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 3 {
			return nil, false
		}
		return []string{"Row " + m[1] + " Seat " + m[2]}, true
	}
}

// shortSeat rejects date-like or long values so the next rule gets a chance.
func shortSeat(expr string) matcher {
	re := regexp.MustCompile(expr)
	return func(text string) ([]string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return nil, false
		}
		v := strings.TrimSpace(m[1])
		if !acceptSeat(v) {
			return nil, false
		}
		return []string{v}, true
	}
}

func acceptSeat(v string) bool {
	return v != "" && !strings.Contains(v, "/") && utf8.RuneCountInString(v) <= 4
}

// seatLine picks a 1-2 digit number (at most 50) alone on a line whose previous
// line carries no date or time context. It misfires on page numbers and
// similar stray digits.
func seatLine(text string) ([]string, bool) {
	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if len(line) < 1 || len(line) > 2 || !isASCIIDigits(line) {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil || n > 50 {
			continue
		}
		if i == 0 {
			continue
		}
		prev := lines[i-1]
		if strings.Contains(prev, "/") || strings.Contains(prev, ":") || strings.Contains(prev, "תאריך") {
			continue
		}
		return []string{line}, true
	}
	return nil, false
}

var titleSkipWords = []string{"תאריך", "ושעה", "קולנוע", "אולם", "מושב", "שורה", "פלאנט", "ראשלצ"}

func acceptTitle(v string) bool {
	s := strings.TrimSpace(v)
	if utf8.RuneCountInString(s) <= 3 {
		return false
	}
	for _, w := range titleSkipWords {
		if strings.Contains(v, w) {
			return false
		}
	}
	return true
}

func acceptName(v string) bool {
	return utf8.RuneCountInString(v) > 5 && strings.Contains(v, " ")
}
