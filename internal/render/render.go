// Package render turns a PDF into the text and page rasters the pipeline consumes.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/utils"
)

const (
	MethodPDFText   = "pdf-text"
	MethodPdftotext = "pdftotext"
	MethodOCR       = "pdf-ocr"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "heb+eng"
	TessdataDir   string
	DPI           int // rasterization DPI, default 300
	MaxPages      int // 0 = no limit
}

func ConfigFrom(c common.RenderConfig) Config {
	return Config{
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		MaxPages:      c.MaxPages,
	}
}

// Document is one rendered PDF.
type Document struct {
	Text      string        // newline-joined across pages, page order
	Pages     []image.Image // one raster per page, page order
	PageCount int
	Method    string
	Duration  time.Duration
	Warnings  []string
}

type Extractor struct {
	cfg    Config
	runner utils.Runner
	logger *slog.Logger
}

type Option func(*Extractor)

func WithRunner(r utils.Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "heb+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: utils.NewExecRunner(logger), logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render extracts text and page rasters from the PDF at path. Text comes from
// the embedded text layer, then pdftotext, then OCR of the rasters. Only a
// missing file or a cancelled context is an error; anything else is recorded
// as a warning and the document comes back partial.
func (e *Extractor) Render(ctx context.Context, path string) (Document, error) {
	start := time.Now()
	var doc Document

	if st, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, common.NewAppError("FILE_NOT_FOUND", fmt.Sprintf("file not found: %s", path), common.ErrNotFound)
		}
		return doc, fmt.Errorf("stat %s: %w", path, err)
	} else if st.IsDir() {
		return doc, common.NewAppError("INVALID_INPUT", fmt.Sprintf("%s is a directory", path), common.ErrInvalidInput)
	}

	e.logger.Debug("render.start", "path", path)

	pages, err := pageCount(path)
	if err != nil {
		doc.Warnings = append(doc.Warnings, "pdfcpu: "+err.Error())
	}
	doc.PageCount = pages
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("document has %d pages; only the first %d are used", pages, e.cfg.MaxPages))
	}

	// text layer
	if txt, err := textLayer(path, e.cfg.MaxPages); err != nil {
		doc.Warnings = append(doc.Warnings, "text layer: "+err.Error())
	} else if txt = Normalize(txt); txt != "" {
		doc.Text, doc.Method = txt, MethodPDFText
	}
	if doc.Text == "" {
		txt, warns, err := e.pdfToText(ctx, path)
		doc.Warnings = append(doc.Warnings, warns...)
		if err == nil {
			if txt = Normalize(txt); txt != "" {
				doc.Text, doc.Method = txt, MethodPdftotext
			}
		}
	}

	// rasters
	tmpDir, err := os.MkdirTemp("", "tw-pages-*")
	if err != nil {
		return doc, fmt.Errorf("temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("render.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	files, warns, err := e.rasterize(ctx, path, tmpDir)
	doc.Warnings = append(doc.Warnings, warns...)
	if err != nil {
		doc.Warnings = append(doc.Warnings, err.Error())
	}
	for _, f := range files {
		img, err := decodePNG(f)
		if err != nil {
			doc.Warnings = append(doc.Warnings, err.Error())
			continue
		}
		doc.Pages = append(doc.Pages, img)
	}
	if doc.PageCount == 0 {
		doc.PageCount = len(files)
	}

	// OCR fallback
	if doc.Text == "" && len(files) > 0 {
		txt, warns := e.ocrPages(ctx, files)
		doc.Warnings = append(doc.Warnings, warns...)
		if txt = Normalize(txt); txt != "" {
			doc.Text, doc.Method = txt, MethodOCR
		}
	}

	if err := ctx.Err(); err != nil {
		return doc, err
	}

	doc.Duration = time.Since(start)
	e.logger.Info("render.ok",
		"path", path,
		"method", doc.Method,
		"pages", doc.PageCount,
		"rasters", len(doc.Pages),
		"text_len", len(doc.Text),
		"warnings", len(doc.Warnings),
		"duration_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}

func joinPages(pages []string) string {
	return strings.Join(pages, "\n")
}
