package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/ticket-wallet/constants"
)

// NormalizeAndSanitizeJSON
// - Renames known synonyms (event_name -> title, category -> type, ...)
// - Canonicalizes the pass type
// - Coerces numbers to strings and empty optionals to null
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to the pass schema
	renamed("event_name", "title")
	renamed("event", "title")
	renamed("category", "type")
	renamed("pass_type", "type")
	renamed("barcode", "barcode_message")
	renamed("qr", "barcode_message")
	renamed("ticket_number", "serial")
	renamed("serial_number", "serial")
	renamed("date_time", "datetime")
	renamed("date", "datetime")
	renamed("location", "venue")
	renamed("hall", "auditorium")
	renamed("gate", "auditorium")
	renamed("booking_reference", "reservation")
	renamed("passenger", "name")
	renamed("flight_number", "flight")
	renamed("from", "origin")
	renamed("to", "destination")

	// 2) stringify scalars and trim; empty optionals become null
	for _, k := range append(slices.Clone(RequiredKeys), OptionalKeys...) {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				m[k] = nil
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			m[k] = nil
			dropped = append(dropped, k+"(type)")
		default:
			// arrays/objects cannot be coerced
			m[k] = nil
			dropped = append(dropped, k+"(type)")
		}
	}

	// 3) required keys never carry null; leave them missing so validation reports it
	for _, k := range RequiredKeys {
		if v, ok := m[k]; ok && v == nil {
			delete(m, k)
		}
	}

	// 4) canonicalize the pass type
	if v, ok := m["type"].(string); ok {
		cat, known := constants.Canonicalize(v)
		if string(cat) != v {
			m["type"] = string(cat)
			if !known {
				dropped = append(dropped, "type("+v+"->generic)")
			}
		}
	}

	// 5) remove unknown keys
	allowed := map[string]struct{}{}
	for _, k := range RequiredKeys {
		allowed[k] = struct{}{}
	}
	for _, k := range OptionalKeys {
		allowed[k] = struct{}{}
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}
