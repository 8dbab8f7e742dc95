package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/ticket-wallet/internal/llm"
	"github.com/joseph-ayodele/ticket-wallet/internal/pacer"
)

const defaultTimeout = 60 * time.Second

// Enricher asks an LLM to fill in fields the patterns missed. It never
// returns an error: every failure is folded into the Outcome.
type Enricher struct {
	mapper  llm.FieldMapper
	pacer   *pacer.Pacer
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Enricher)

func WithPacer(p *pacer.Pacer) Option {
	return func(e *Enricher) { e.pacer = p }
}

// WithTimeout bounds a single enrichment, pacing included.
func WithTimeout(d time.Duration) Option {
	return func(e *Enricher) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func NewEnricher(mapper llm.FieldMapper, logger *slog.Logger, opts ...Option) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enricher{
		mapper:  mapper,
		timeout: defaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Enricher) Enrich(ctx context.Context, req llm.MapRequest) (out Outcome) {
	start := time.Now()
	defer func() {
		e.logger.Info("enrich.outcome",
			"kind", out.Kind.String(),
			"reason", out.Reason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}()

	if e.mapper == nil {
		return Unavailable("enrichment not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.pacer.Wait(ctx); err != nil {
		return Unavailable(fmt.Sprintf("pacer: %v", err))
	}

	fields, raw, err := e.call(ctx, req)
	switch {
	case err == nil:
		return Ok(fields, raw)
	case errors.Is(err, llm.ErrInvalidResponse):
		return Invalid(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return Unavailable("timeout")
	default:
		return Unavailable(err.Error())
	}
}

func (e *Enricher) call(ctx context.Context, req llm.MapRequest) (llm.MappedFields, []byte, error) {
	type result struct {
		f   llm.MappedFields
		raw []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("mapper panic: %v", r)}
			}
		}()
		f, raw, err := e.mapper.MapFields(ctx, req)
		ch <- result{f, raw, err}
	}()

	// A mapper that ignores ctx must not hold the pipeline past the deadline.
	select {
	case r := <-ch:
		return r.f, r.raw, r.err
	case <-ctx.Done():
		return llm.MappedFields{}, nil, ctx.Err()
	}
}
