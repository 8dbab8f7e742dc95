package llm

import (
	"encoding/json"
	"strings"
)

// BuildSystemPrompt composes the system message: classification rubric, field
// glossary and formatting rules.
func BuildSystemPrompt(timezone string) string {
	parts := []string{
		"You are a ticket classification and wallet pass data extraction expert.",
		"Analyze the raw text extracted from a PDF ticket and return ONLY JSON that matches the provided JSON Schema.",

		// classification rubric
		"Classify 'type' as exactly one of:",
		"'eventTicket' for concerts, sports, theater, cinema, shows and conferences;",
		"'boardingPass' for flights, trains, buses and ferries;",
		"'storeCard' for loyalty, membership and gift cards;",
		"'coupon' for discounts, vouchers and promotional offers;",
		"'generic' for anything else.",

		// fields
		"'title' is the main event or service name.",
		"'serial' is the ticket number, booking reference or other unique identifier.",
		"'barcode_message' is the QR code content; prefer a QR payload when one is given.",
		"'datetime' is the event or departure time as YYYY-MM-DDTHH:MM:SS.",
		"'venue' is the location, airport, station or venue name; 'auditorium' is the hall, gate or platform within it.",
		"'seat' is the seat number or assignment; 'name' is the passenger or attendee name.",
		"'flight' is the flight, train or service number; 'pnr' is the passenger name record.",
		"'origin' and 'destination' are the departure and arrival locations.",

		// hygiene
		"Only extract information clearly present in the text. Hebrew text reads right-to-left.",
		"Use null for optional fields that are not present. Your response must start with { and end with }.",
	}
	if tz := strings.TrimSpace(timezone); tz != "" {
		parts = append(parts, "Times are local to UTC offset "+tz+"; do not convert them.")
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the text, QR payloads and pattern candidates.
func BuildUserPrompt(req MapRequest) string {
	var b strings.Builder
	b.WriteString("Analyze this raw PDF text and classify the ticket, then extract wallet pass data.\n\n")
	b.WriteString("RAW TEXT:\n")
	b.WriteString(strings.TrimSpace(req.RawText))
	b.WriteString("\n\nQR CODE PAYLOADS:\n")
	b.WriteString(jsonList(req.QRPayloads))
	b.WriteString("\n\nDETECTED PATTERNS:\n- Dates: ")
	b.WriteString(jsonList(req.Dates))
	b.WriteString("\n- Numbers: ")
	b.WriteString(jsonList(req.Numbers))
	b.WriteString("\n- Codes: ")
	b.WriteString(jsonList(req.Codes))
	b.WriteString("\n")
	return b.String()
}

func jsonList(v []string) string {
	if v == nil {
		v = []string{}
	}
	bs, _ := json.Marshal(v)
	return string(bs)
}

// MustJSON renders v indented, for embedding the schema in a prompt.
func MustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
