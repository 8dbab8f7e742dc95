package enrich

import (
	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/llm"
)

// Kind tags an enrichment outcome.
type Kind int

const (
	KindSkipped Kind = iota
	KindOk
	KindUnavailable
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindOk:
		return constants.EnrichmentOK
	case KindUnavailable:
		return constants.EnrichmentUnavailable
	case KindInvalid:
		return constants.EnrichmentInvalid
	}
	return constants.EnrichmentSkipped
}

// Outcome is the result of one enrichment attempt. Fields is set only for
// KindOk; Reason explains the other kinds.
type Outcome struct {
	Kind   Kind
	Fields llm.MappedFields
	Raw    []byte
	Reason string
}

func Ok(fields llm.MappedFields, raw []byte) Outcome {
	return Outcome{Kind: KindOk, Fields: fields, Raw: raw}
}

func Unavailable(reason string) Outcome {
	return Outcome{Kind: KindUnavailable, Reason: reason}
}

func Invalid(reason string) Outcome {
	return Outcome{Kind: KindInvalid, Reason: reason}
}
