package entity

import (
	"slices"

	"github.com/joseph-ayodele/ticket-wallet/constants"
)

// ExtractionRecord is the working state of one ticket as it moves through the pipeline.
// Optional fields are nil when unknown, never "".
type ExtractionRecord struct {
	RawText          string   `json:"raw_text"`
	QRPayloads       []string `json:"qr_payloads"`
	DateCandidates   []string `json:"date_candidates"`
	NumberCandidates []string `json:"number_candidates"`
	CodeCandidates   []string `json:"code_candidates"`

	Title       *string `json:"title,omitempty"`
	DateTime    *string `json:"datetime,omitempty"`
	Venue       *string `json:"venue,omitempty"`
	Auditorium  *string `json:"auditorium,omitempty"`
	Seat        *string `json:"seat,omitempty"`
	Reservation *string `json:"reservation,omitempty"`
	Name        *string `json:"name,omitempty"`
	PNR         *string `json:"pnr,omitempty"`
	Flight      *string `json:"flight,omitempty"`
	Origin      *string `json:"origin,omitempty"`
	Destination *string `json:"destination,omitempty"`

	Category       constants.PassCategory `json:"type"`
	Serial         string                 `json:"serial"`
	BarcodeMessage string                 `json:"barcode_message"`
	Locale         string                 `json:"locale"`
}

// NewRecord starts a record for one source document.
func NewRecord(rawText string, qrPayloads []string) ExtractionRecord {
	return ExtractionRecord{
		RawText:    rawText,
		QRPayloads: slices.Clone(qrPayloads),
		Locale:     constants.LocaleEnglish,
	}
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// FieldRefs exposes the optional fields by their wire key.
func (r *ExtractionRecord) FieldRefs() map[string]**string {
	return map[string]**string{
		"title":       &r.Title,
		"datetime":    &r.DateTime,
		"venue":       &r.Venue,
		"auditorium":  &r.Auditorium,
		"seat":        &r.Seat,
		"reservation": &r.Reservation,
		"name":        &r.Name,
		"pnr":         &r.PNR,
		"flight":      &r.Flight,
		"origin":      &r.Origin,
		"destination": &r.Destination,
	}
}

// ApplyFields sets every non-empty value whose key names an optional field.
func (r *ExtractionRecord) ApplyFields(fields map[string]string) {
	refs := r.FieldRefs()
	for k, v := range fields {
		if v == "" {
			continue
		}
		if ref, ok := refs[k]; ok {
			*ref = StringPtr(v)
		}
	}
}

// CloneWithBarcode deep-copies the record and overrides only the barcode
// message and serial.
func (r ExtractionRecord) CloneWithBarcode(barcode, serialNumber string) ExtractionRecord {
	out := r
	out.QRPayloads = slices.Clone(r.QRPayloads)
	out.DateCandidates = slices.Clone(r.DateCandidates)
	out.NumberCandidates = slices.Clone(r.NumberCandidates)
	out.CodeCandidates = slices.Clone(r.CodeCandidates)

	out.Title = clonePtr(r.Title)
	out.DateTime = clonePtr(r.DateTime)
	out.Venue = clonePtr(r.Venue)
	out.Auditorium = clonePtr(r.Auditorium)
	out.Seat = clonePtr(r.Seat)
	out.Reservation = clonePtr(r.Reservation)
	out.Name = clonePtr(r.Name)
	out.PNR = clonePtr(r.PNR)
	out.Flight = clonePtr(r.Flight)
	out.Origin = clonePtr(r.Origin)
	out.Destination = clonePtr(r.Destination)

	out.BarcodeMessage = barcode
	out.Serial = serialNumber
	return out
}
