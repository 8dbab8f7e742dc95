// Package pipeline turns extracted document text and QR payloads into
// wallet passes, one per physical ticket.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/classify"
	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/datetime"
	"github.com/joseph-ayodele/ticket-wallet/internal/enrich"
	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
	"github.com/joseph-ayodele/ticket-wallet/internal/extract"
	"github.com/joseph-ayodele/ticket-wallet/internal/llm"
	"github.com/joseph-ayodele/ticket-wallet/internal/passkit"
	"github.com/joseph-ayodele/ticket-wallet/internal/serial"
)

const DefaultTextBudget = 8000

// ErrNothingExtracted aborts a run whose document yielded neither text nor QR payloads.
var ErrNothingExtracted = fmt.Errorf("no text and no qr payloads: %w", common.ErrNothingToExtract)

type State string

const (
	StateExtracted    State = "EXTRACTED"
	StateFieldsParsed State = "FIELDS_PARSED"
	StateClassified   State = "CLASSIFIED"
	StateNormalized   State = "NORMALIZED"
	StateOverridden   State = "OVERRIDDEN"
	StateFinalized    State = "FINALIZED"
	StateAborted      State = "ABORTED"
)

type Input struct {
	Text       string
	QRPayloads []string
	// Category pins the pass style; empty lets the classifier decide.
	Category constants.PassCategory
	Timezone string
	Enrich   bool
}

type Result struct {
	Records    []entity.ExtractionRecord
	Passes     []passkit.Pass
	Enrichment enrich.Kind
	States     []State
}

type Pipeline struct {
	classifier *classify.Classifier
	builder    *passkit.Builder
	enricher   *enrich.Enricher
	textBudget int
	logger     *slog.Logger
}

type Option func(*Pipeline)

// WithEnricher enables the LLM override step for inputs that ask for it.
func WithEnricher(e *enrich.Enricher) Option {
	return func(p *Pipeline) { p.enricher = e }
}

// WithTextBudget caps how many runes of raw text are sent for enrichment.
func WithTextBudget(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.textBudget = n
		}
	}
}

func New(classifier *classify.Classifier, builder *passkit.Builder, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		classifier: classifier,
		builder:    builder,
		textBudget: DefaultTextBudget,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives one document through the state machine. The only error is
// ErrNothingExtracted; every other shortfall degrades the output instead.
func (p *Pipeline) Run(ctx context.Context, in Input) (Result, error) {
	var res Result
	step := func(s State, attrs ...any) {
		res.States = append(res.States, s)
		p.logger.Info("pipeline.state", append([]any{"state", string(s)}, attrs...)...)
	}

	qr := cleanPayloads(in.QRPayloads)
	step(StateExtracted, "text_len", len(in.Text), "qr_payloads", len(qr))
	if strings.TrimSpace(in.Text) == "" && len(qr) == 0 {
		step(StateAborted)
		return res, ErrNothingExtracted
	}

	tz := in.Timezone
	if tz == "" {
		tz = constants.DefaultTimezoneOffset
	}

	// fields
	rec := entity.NewRecord(in.Text, qr)
	cands := extract.ParseCandidates(in.Text)
	rec.DateCandidates = cands.Dates
	rec.NumberCandidates = cands.Numbers
	rec.CodeCandidates = cands.Codes
	fields := extract.ExtractFields(in.Text)
	rec.ApplyFields(fields)
	rec.Locale = extract.DetectLocale(in.Text)
	step(StateFieldsParsed,
		"dates", len(cands.Dates),
		"numbers", len(cands.Numbers),
		"codes", len(cands.Codes),
		"fields", len(fields),
		"locale", rec.Locale,
	)

	// category
	pinned := in.Category != ""
	if pinned {
		rec.Category, _ = constants.Canonicalize(string(in.Category))
	} else {
		rec.Category = p.classifier.Detect(in.Text, qr)
	}
	step(StateClassified, "category", string(rec.Category), "pinned", pinned)

	// serial, title, datetime
	rec.BarcodeMessage, rec.Serial = serial.Derive(qr, entity.Deref(rec.Reservation), in.Text)
	if rec.Title == nil {
		rec.Title = entity.StringPtr(rec.Category.DisplayName() + " Pass")
	}
	if len(rec.DateCandidates) > 0 {
		if v, ok := datetime.Normalize(rec.DateCandidates[0], in.Text, tz); ok {
			rec.DateTime = entity.StringPtr(v)
		}
	}
	step(StateNormalized, "serial", rec.Serial, "datetime", entity.Deref(rec.DateTime))

	// optional override
	res.Enrichment = enrich.KindSkipped
	if in.Enrich && p.enricher != nil {
		out := p.enricher.Enrich(ctx, llm.MapRequest{
			RawText:    truncateRunes(in.Text, p.textBudget),
			QRPayloads: qr,
			Dates:      rec.DateCandidates,
			Numbers:    rec.NumberCandidates,
			Codes:      rec.CodeCandidates,
			Timezone:   tz,
		})
		res.Enrichment = out.Kind
		if out.Kind == enrich.KindOk {
			rec = enrich.Merge(rec, out.Fields, enrich.MergeOptions{PinnedCategory: pinned, Timezone: tz})
			step(StateOverridden, "category", string(rec.Category))
		} else {
			p.logger.Warn("pipeline.enrich.skipped", "kind", out.Kind.String(), "reason", out.Reason)
		}
	}

	// one record per ticket
	if len(qr) > 1 {
		for i, payload := range qr {
			res.Records = append(res.Records, rec.CloneWithBarcode(payload, serial.ForTicket(payload, i)))
		}
	} else {
		res.Records = []entity.ExtractionRecord{rec}
	}
	for _, r := range res.Records {
		res.Passes = append(res.Passes, p.builder.Build(r))
	}
	step(StateFinalized, "passes", len(res.Passes), "enrichment", res.Enrichment.String())
	return res, nil
}

func cleanPayloads(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
