package qr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Reader finds QR symbols in an image. Implementations return ErrNoSymbol
// when nothing is found; any error counts as an empty result.
type Reader interface {
	DecodeMultiple(img image.Image) ([]string, error)
	Decode(img image.Image) (string, error)
}

type Decoder struct {
	reader  Reader
	workers int
	logger  *slog.Logger
}

type Option func(*Decoder)

// WithReader replaces the gozxing symbol reader.
func WithReader(r Reader) Option {
	return func(d *Decoder) {
		if r != nil {
			d.reader = r
		}
	}
}

// WithWorkers bounds how many pages are decoded at once.
func WithWorkers(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.workers = n
		}
	}
}

func NewDecoder(logger *slog.Logger, opts ...Option) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Decoder{
		reader:  NewZXingReader(),
		workers: defaultWorkers,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodePage runs every preprocessing variant of img through the reader and
// returns the trimmed, de-duplicated payloads in discovery order. It never fails;
// a variant that errors or panics is skipped.
func (d *Decoder) DecodePage(ctx context.Context, img image.Image) []string {
	if img == nil || img.Bounds().Empty() {
		return nil
	}
	gray, err := d.grayscale(img)
	if err != nil {
		d.logger.Debug("qr.page.grayscale_failed", "err", err)
		return nil
	}

	var (
		out  []string
		seen = map[string]struct{}{}
	)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, v := range variants {
		if ctx.Err() != nil {
			break
		}
		payloads, err := d.tryVariant(v, gray)
		if err != nil {
			d.logger.Debug("qr.variant.failed", "variant", v.name, "err", err)
		}
		for _, p := range payloads {
			add(p)
		}
	}

	if len(out) > 0 {
		d.logger.Info("qr.page.decoded", "count", len(out))
	} else {
		d.logger.Debug("qr.page.empty", "variants", len(variants))
	}
	return out
}

// DecodePages decodes pages concurrently. Output follows page order, then
// discovery order within a page; payloads repeated across pages are kept.
func (d *Decoder) DecodePages(ctx context.Context, pages []image.Image) []string {
	results := make([][]string, len(pages))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.workers)
	for i, page := range pages {
		eg.Go(func() error {
			results[i] = d.DecodePage(gctx, page)
			return nil
		})
	}
	_ = eg.Wait()

	var out []string
	for _, r := range results {
		out = append(out, r...)
	}
	d.logger.Info("qr.pages.decoded", "pages", len(pages), "payloads", len(out))
	return out
}

func (d *Decoder) grayscale(img image.Image) (g *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grayscale panic: %v", r)
		}
	}()
	return toGray(img), nil
}

func (d *Decoder) tryVariant(v variant, gray *image.Gray) (payloads []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	img := v.build(gray)

	multi, err := d.reader.DecodeMultiple(img)
	d.readerError(v, "multi", err)
	payloads = append(payloads, multi...)

	single, err := d.reader.Decode(img)
	d.readerError(v, "single", err)
	if single != "" {
		payloads = append(payloads, single)
	}
	return payloads, nil
}

func (d *Decoder) readerError(v variant, mode string, err error) {
	if err == nil || errors.Is(err, ErrNoSymbol) {
		return
	}
	d.logger.Debug("qr.variant.reader_error", "variant", v.name, "mode", mode, "err", err)
}
