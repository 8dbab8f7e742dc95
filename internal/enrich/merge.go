package enrich

import (
	"strings"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/datetime"
	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
	"github.com/joseph-ayodele/ticket-wallet/internal/llm"
	"github.com/joseph-ayodele/ticket-wallet/internal/serial"
)

type MergeOptions struct {
	// PinnedCategory keeps the record's category when the caller chose it.
	PinnedCategory bool
	// Timezone is appended to model datetimes that carry no offset.
	Timezone string
}

// Merge overlays LLM fields on a record. Every non-empty field the model
// provided replaces the pattern result, the barcode included, and the serial
// is re-derived from the resulting barcode. The input record is not modified.
func Merge(r entity.ExtractionRecord, f llm.MappedFields, opts MergeOptions) entity.ExtractionRecord {
	out := r.CloneWithBarcode(r.BarcodeMessage, r.Serial)

	if t := strings.TrimSpace(f.Title); t != "" {
		out.Title = entity.StringPtr(t)
	}

	refs := out.FieldRefs()
	for key, v := range f.Optional() {
		if v == nil {
			continue
		}
		val := strings.TrimSpace(*v)
		if val == "" {
			continue
		}
		if key == "datetime" {
			if iso, ok := datetime.FromISO(val, opts.Timezone); ok {
				val = iso
			} else if norm, ok := datetime.Normalize(val, "", opts.Timezone); ok {
				val = norm
			}
		}
		*refs[key] = entity.StringPtr(val)
	}

	if !opts.PinnedCategory {
		if cat, ok := constants.Canonicalize(f.Type); ok {
			out.Category = cat
		}
	}

	if b := strings.TrimSpace(f.BarcodeMessage); b != "" {
		out.BarcodeMessage = b
		out.Serial = serial.ForTicket(b, 0)
	}
	return out
}
