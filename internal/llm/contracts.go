package llm

import (
	"context"
	"errors"
)

// ErrInvalidResponse marks a reply that arrived but could not be decoded or
// did not satisfy the pass schema.
var ErrInvalidResponse = errors.New("invalid llm response")

// MappedFields is the normalized shape we want from the LLM.
type MappedFields struct {
	Title          string `json:"title"`
	Type           string `json:"type"` // one of the pass categories
	Serial         string `json:"serial"`
	BarcodeMessage string `json:"barcode_message"`

	DateTime    *string `json:"datetime,omitempty"` // YYYY-MM-DDTHH:MM:SS
	Venue       *string `json:"venue,omitempty"`
	Auditorium  *string `json:"auditorium,omitempty"`
	Seat        *string `json:"seat,omitempty"`
	Reservation *string `json:"reservation,omitempty"`
	Name        *string `json:"name,omitempty"`
	PNR         *string `json:"pnr,omitempty"`
	Flight      *string `json:"flight,omitempty"`
	Origin      *string `json:"origin,omitempty"`
	Destination *string `json:"destination,omitempty"`
}

// Optional returns the optional fields keyed by their wire name.
func (m MappedFields) Optional() map[string]*string {
	return map[string]*string{
		"datetime":    m.DateTime,
		"venue":       m.Venue,
		"auditorium":  m.Auditorium,
		"seat":        m.Seat,
		"reservation": m.Reservation,
		"name":        m.Name,
		"pnr":         m.PNR,
		"flight":      m.Flight,
		"origin":      m.Origin,
		"destination": m.Destination,
	}
}

type MapRequest struct {
	RawText    string
	QRPayloads []string
	Dates      []string
	Numbers    []string
	Codes      []string
	Timezone   string
}

// FieldMapper is the interface the enrichment stage depends on.
type FieldMapper interface {
	MapFields(ctx context.Context, req MapRequest) (MappedFields, []byte /*rawJSON*/, error)
}
