package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/classify"
	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/enrich"
	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
	"github.com/joseph-ayodele/ticket-wallet/internal/llm"
	"github.com/joseph-ayodele/ticket-wallet/internal/passkit"
	"github.com/joseph-ayodele/ticket-wallet/internal/pipeline"
	"github.com/joseph-ayodele/ticket-wallet/internal/serial"
)

const cinemaTicket = `קולנוע פלאנט ראשלצ
אולם 7
פורמולה1
תאריך ושעה: 25/12/2024
19:30
שורה: 5
מושב: 12
הזמנה: AB12345`

type mapperFunc func(ctx context.Context, req llm.MapRequest) (llm.MappedFields, []byte, error)

func (f mapperFunc) MapFields(ctx context.Context, req llm.MapRequest) (llm.MappedFields, []byte, error) {
	return f(ctx, req)
}

func newPipeline(opts ...pipeline.Option) *pipeline.Pipeline {
	return pipeline.New(
		classify.New(classify.DefaultVocabulary(), nil),
		passkit.NewBuilder(passkit.Identity{Organization: "Org", PassTypeID: "pass.com.example.t", TeamID: "ABCDE12345"}),
		nil,
		opts...,
	)
}

func TestRun_HebrewCinemaWithoutQR(t *testing.T) {
	res, err := newPipeline().Run(context.Background(), pipeline.Input{Text: cinemaTicket, Timezone: "+02:00"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Len(t, res.Passes, 1)

	r := res.Records[0]
	assert.Equal(t, constants.EventTicket, r.Category)
	assert.Equal(t, constants.LocaleHebrew, r.Locale)
	assert.Equal(t, "AB12345", r.BarcodeMessage)
	assert.Equal(t, serial.ForTicket("AB12345", 0), r.Serial)
	require.NotNil(t, r.DateTime)
	assert.Equal(t, "2024-12-25T19:30:00+02:00", *r.DateTime)
	assert.Equal(t, enrich.KindSkipped, res.Enrichment)
	assert.Equal(t, []pipeline.State{
		pipeline.StateExtracted, pipeline.StateFieldsParsed, pipeline.StateClassified,
		pipeline.StateNormalized, pipeline.StateFinalized,
	}, res.States)

	assert.NotNil(t, res.Passes[0].EventTicket)
	assert.Equal(t, constants.LocaleHebrew, res.Passes[0].Locale)
}

func TestRun_OnePassPerQRPayload(t *testing.T) {
	qr := []string{"QR-A", "QR-B", "QR-C"}
	res, err := newPipeline().Run(context.Background(), pipeline.Input{Text: cinemaTicket, QRPayloads: qr})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	require.Len(t, res.Passes, 3)

	serials := map[string]bool{}
	for i, r := range res.Records {
		assert.Equal(t, qr[i], r.BarcodeMessage)
		assert.Equal(t, serial.ForTicket(qr[i], i), r.Serial)
		assert.Equal(t, qr[i], res.Passes[i].Barcode.Message)
		assert.Equal(t, r.Serial, res.Passes[i].SerialNumber)
		assert.Equal(t, res.Records[0].Category, r.Category)
		assert.Equal(t, entity.Deref(res.Records[0].Seat), entity.Deref(r.Seat))
		serials[r.Serial] = true
	}
	assert.Len(t, serials, 3)
}

func TestRun_SingleQRUsesPayloadAsBarcode(t *testing.T) {
	res, err := newPipeline().Run(context.Background(), pipeline.Input{Text: cinemaTicket, QRPayloads: []string{" QR-ONLY "}})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "QR-ONLY", res.Records[0].BarcodeMessage)
}

func TestRun_NothingExtracted(t *testing.T) {
	res, err := newPipeline().Run(context.Background(), pipeline.Input{Text: "  \n", QRPayloads: []string{"", " "}})
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrNothingExtracted)
	assert.ErrorIs(t, err, common.ErrNothingToExtract)
	assert.Empty(t, res.Passes)
	assert.Equal(t, []pipeline.State{pipeline.StateExtracted, pipeline.StateAborted}, res.States)
}

func TestRun_QROnlyDocument(t *testing.T) {
	res, err := newPipeline().Run(context.Background(), pipeline.Input{QRPayloads: []string{"ONLY-QR"}})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, constants.Generic, r.Category)
	assert.Equal(t, "Generic Pass", entity.Deref(r.Title))
	assert.Equal(t, "ONLY-QR", r.BarcodeMessage)
	assert.Nil(t, r.DateTime)
	assert.Equal(t, constants.LocaleEnglish, r.Locale)
}

func TestRun_ContentHashFallback(t *testing.T) {
	text := "plain words with nothing useful"
	res, err := newPipeline().Run(context.Background(), pipeline.Input{Text: text})
	require.NoError(t, err)
	assert.Equal(t, serial.ContentHash(text), res.Records[0].BarcodeMessage)
	assert.NotEmpty(t, res.Records[0].Serial)
}

func TestRun_PinnedCategory(t *testing.T) {
	res, err := newPipeline().Run(context.Background(), pipeline.Input{Text: cinemaTicket, Category: constants.Coupon})
	require.NoError(t, err)
	assert.Equal(t, constants.Coupon, res.Records[0].Category)
	assert.NotNil(t, res.Passes[0].Coupon)
}

func TestRun_EnrichmentFailuresAreNotFatal(t *testing.T) {
	baseline, err := newPipeline().Run(context.Background(), pipeline.Input{Text: cinemaTicket})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mapper mapperFunc
		want   enrich.Kind
	}{
		{"transport error", func(context.Context, llm.MapRequest) (llm.MappedFields, []byte, error) {
			return llm.MappedFields{}, nil, errors.New("dial tcp: refused")
		}, enrich.KindUnavailable},
		{"malformed reply", func(context.Context, llm.MapRequest) (llm.MappedFields, []byte, error) {
			return llm.MappedFields{}, nil, fmt.Errorf("%w: bad json", llm.ErrInvalidResponse)
		}, enrich.KindInvalid},
		{"timeout", func(ctx context.Context, _ llm.MapRequest) (llm.MappedFields, []byte, error) {
			<-ctx.Done()
			return llm.MappedFields{}, nil, ctx.Err()
		}, enrich.KindUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := enrich.NewEnricher(tc.mapper, nil, enrich.WithTimeout(20*time.Millisecond))
			res, err := newPipeline(pipeline.WithEnricher(e)).Run(context.Background(), pipeline.Input{Text: cinemaTicket, Enrich: true})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Enrichment)
			assert.Equal(t, baseline.Records, res.Records)
			assert.Equal(t, baseline.Passes, res.Passes)
			assert.NotContains(t, res.States, pipeline.StateOverridden)
		})
	}
}

func TestRun_EnrichmentOverridesAndTruncates(t *testing.T) {
	var got llm.MapRequest
	mapper := mapperFunc(func(_ context.Context, req llm.MapRequest) (llm.MappedFields, []byte, error) {
		got = req
		return llm.MappedFields{
			Title: "Formula 1",
			Type:  "eventTicket",
			Venue: strPtr("Planet Rishon"),
		}, nil, nil
	})
	e := enrich.NewEnricher(mapper, nil)
	long := cinemaTicket + "\n" + strings.Repeat("א", 100)

	res, err := newPipeline(pipeline.WithEnricher(e), pipeline.WithTextBudget(50)).
		Run(context.Background(), pipeline.Input{Text: long, QRPayloads: []string{"Q1"}, Enrich: true})
	require.NoError(t, err)

	assert.Len(t, []rune(got.RawText), 50)
	assert.Equal(t, []string{"Q1"}, got.QRPayloads)
	assert.NotEmpty(t, got.Dates)
	assert.Equal(t, enrich.KindOk, res.Enrichment)
	assert.Contains(t, res.States, pipeline.StateOverridden)
	assert.Equal(t, "Formula 1", entity.Deref(res.Records[0].Title))
	assert.Equal(t, "Planet Rishon", entity.Deref(res.Records[0].Venue))
	assert.Equal(t, "Q1", res.Records[0].BarcodeMessage)
}

func TestRun_DefaultTextBudget(t *testing.T) {
	var got llm.MapRequest
	mapper := mapperFunc(func(_ context.Context, req llm.MapRequest) (llm.MappedFields, []byte, error) {
		got = req
		return llm.MappedFields{Title: "T"}, nil, nil
	})
	long := cinemaTicket + "\n" + strings.Repeat("ש", 9000)

	_, err := newPipeline(pipeline.WithEnricher(enrich.NewEnricher(mapper, nil))).
		Run(context.Background(), pipeline.Input{Text: long, Enrich: true})
	require.NoError(t, err)
	assert.Len(t, []rune(got.RawText), pipeline.DefaultTextBudget)
	assert.Equal(t, 8000, pipeline.DefaultTextBudget)
}

func TestRun_EnrichmentBarcodeOverride(t *testing.T) {
	mapper := mapperFunc(func(context.Context, llm.MapRequest) (llm.MappedFields, []byte, error) {
		return llm.MappedFields{Title: "Hamlet", BarcodeMessage: "LLM-CODE"}, nil, nil
	})
	p := newPipeline(pipeline.WithEnricher(enrich.NewEnricher(mapper, nil)))

	res, err := p.Run(context.Background(), pipeline.Input{Text: cinemaTicket, QRPayloads: []string{"Q1"}, Enrich: true})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "LLM-CODE", res.Records[0].BarcodeMessage)
	assert.Equal(t, serial.ForTicket("LLM-CODE", 0), res.Records[0].Serial)
	assert.Equal(t, "LLM-CODE", res.Passes[0].Barcode.Message)

	// every ticket of a multi-ticket document keeps its own payload
	res, err = p.Run(context.Background(), pipeline.Input{Text: cinemaTicket, QRPayloads: []string{"Q1", "Q2"}, Enrich: true})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Q1", res.Records[0].BarcodeMessage)
	assert.Equal(t, "Q2", res.Records[1].BarcodeMessage)
	assert.Equal(t, serial.ForTicket("Q2", 1), res.Records[1].Serial)
}

func TestRun_EnrichDisabledSkipsMapper(t *testing.T) {
	called := false
	mapper := mapperFunc(func(context.Context, llm.MapRequest) (llm.MappedFields, []byte, error) {
		called = true
		return llm.MappedFields{}, nil, nil
	})
	res, err := newPipeline(pipeline.WithEnricher(enrich.NewEnricher(mapper, nil))).
		Run(context.Background(), pipeline.Input{Text: cinemaTicket})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, enrich.KindSkipped, res.Enrichment)
}

func TestRun_Deterministic(t *testing.T) {
	p := newPipeline()
	in := pipeline.Input{Text: cinemaTicket, QRPayloads: []string{"A", "B"}, Timezone: "+03:00"}
	a, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	b, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func strPtr(s string) *string { return &s }
