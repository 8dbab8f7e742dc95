package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
	"github.com/joseph-ayodele/ticket-wallet/internal/passkit"
	"github.com/joseph-ayodele/ticket-wallet/internal/pipeline"
	"github.com/joseph-ayodele/ticket-wallet/internal/render"
	"github.com/joseph-ayodele/ticket-wallet/internal/repository"
)

type Renderer interface {
	Render(ctx context.Context, path string) (render.Document, error)
}

type PageDecoder interface {
	DecodePages(ctx context.Context, pages []image.Image) []string
}

type Archiver interface {
	WriteFile(ctx context.Context, pass passkit.Pass, dir string) (string, error)
	Signed() bool
}

type ProcessOptions struct {
	// Category pins the pass style; empty lets the classifier decide.
	Category constants.PassCategory
	Timezone string
	Enrich   bool
	// OutDir overrides the processor's archive directory for this file.
	OutDir string
}

// Outcome is what one document produced.
type Outcome struct {
	SourcePath string
	SourceHash string
	Method     string
	PageCount  int
	QRPayloads []string
	Warnings   []string
	Result     pipeline.Result
	Archives   []string
	Issued     []*entity.IssuedPass
	Duration   time.Duration
}

// Processor coordinates render, QR decode, the pass pipeline, archive writing
// and the ledger for a single PDF.
type Processor struct {
	renderer Renderer
	decoder  PageDecoder
	pipeline *pipeline.Pipeline
	archiver Archiver
	passes   repository.PassRepository
	outDir   string
	logger   *slog.Logger
}

type Option func(*Processor)

// WithArchiver writes a .pkpass per pass into dir.
func WithArchiver(a Archiver, dir string) Option {
	return func(p *Processor) {
		p.archiver = a
		p.outDir = dir
	}
}

// WithLedger records every issued pass.
func WithLedger(repo repository.PassRepository) Option {
	return func(p *Processor) { p.passes = repo }
}

func NewProcessor(renderer Renderer, decoder PageDecoder, pl *pipeline.Pipeline, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{renderer: renderer, decoder: decoder, pipeline: pl, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile converts the PDF at path into passes. An error with no passes
// means the document was unusable; an error alongside passes means an edge
// step (archive or ledger) failed for some of them.
func (p *Processor) ProcessFile(ctx context.Context, path string, opts ProcessOptions) (Outcome, error) {
	start := time.Now()
	out := Outcome{SourcePath: path}

	if !constants.IsAllowedExt(filepath.Ext(path)) {
		return out, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("not a PDF: %s", filepath.Base(path)), common.ErrUnsupported)
	}
	hash, err := hashFile(path)
	if err != nil {
		return out, err
	}
	out.SourceHash = hash
	ctx = common.WithContentHash(ctx, hash)
	log := p.logger.With("path", path, "content_hash", hash)
	if id := common.RequestIDFromContext(ctx); id != "" {
		log = log.With("req_id", id)
	}

	// 1) render
	doc, err := p.renderer.Render(ctx, path)
	if err != nil {
		log.Error("processor.render.failed", "error", err)
		return out, err
	}
	out.Method, out.PageCount, out.Warnings = doc.Method, doc.PageCount, doc.Warnings
	for _, w := range doc.Warnings {
		log.Warn("processor.render.warning", "warning", w)
	}

	// 2) qr
	if p.decoder != nil && len(doc.Pages) > 0 {
		out.QRPayloads = p.decoder.DecodePages(ctx, doc.Pages)
	}

	// 3) passes
	res, err := p.pipeline.Run(ctx, pipeline.Input{
		Text:       doc.Text,
		QRPayloads: out.QRPayloads,
		Category:   opts.Category,
		Timezone:   opts.Timezone,
		Enrich:     opts.Enrich,
	})
	if err != nil {
		log.Warn("processor.nothing_extracted", "method", doc.Method, "pages", doc.PageCount)
		return out, err
	}
	out.Result = res

	// 4) archives and ledger
	dir := opts.OutDir
	if dir == "" {
		dir = p.outDir
	}
	var errs []error
	for i, pass := range res.Passes {
		status := constants.PassStatusUnsigned
		var archive *string
		if p.archiver != nil && dir != "" {
			file, err := p.archiver.WriteFile(ctx, pass, dir)
			if err != nil {
				log.Error("processor.archive.failed", "serial", pass.SerialNumber, "error", err)
				errs = append(errs, err)
				status = constants.PassStatusFailed
			} else {
				out.Archives = append(out.Archives, file)
				archive = &file
				if p.archiver.Signed() {
					status = constants.PassStatusIssued
				}
			}
		}

		if p.passes == nil {
			continue
		}
		row, err := issuedPass(res.Records[i], pass, path, hash, archive, status, res.Enrichment.String())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stored, err := p.passes.Record(ctx, row)
		if err != nil {
			log.Error("processor.ledger.failed", "serial", pass.SerialNumber, "error", err)
			errs = append(errs, err)
			continue
		}
		out.Issued = append(out.Issued, stored)
	}

	out.Duration = time.Since(start)
	log.Info("processor.done",
		"passes", len(res.Passes),
		"archives", len(out.Archives),
		"qr_payloads", len(out.QRPayloads),
		"category", categoryOf(res),
		"enrichment", res.Enrichment.String(),
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, errors.Join(errs...)
}

func issuedPass(rec entity.ExtractionRecord, pass passkit.Pass, source, hash string, archive *string, status constants.PassStatus, enrichment string) (*entity.IssuedPass, error) {
	pj, err := json.Marshal(pass)
	if err != nil {
		return nil, fmt.Errorf("marshal pass: %w", err)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	return &entity.IssuedPass{
		Serial:         pass.SerialNumber,
		BarcodeMessage: pass.Barcode.Message,
		Category:       string(pass.Category()),
		Title:          entity.Deref(rec.Title),
		EventTime:      rec.DateTime,
		SourcePath:     abs,
		SourceHash:     hash,
		ArchivePath:    archive,
		Status:         string(status),
		Enrichment:     enrichment,
		PassJSON:       pj,
	}, nil
}

func categoryOf(res pipeline.Result) string {
	if len(res.Records) == 0 {
		return ""
	}
	return string(res.Records[0].Category)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", common.NewAppError("FILE_NOT_FOUND", fmt.Sprintf("file not found: %s", path), common.ErrNotFound)
		}
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
