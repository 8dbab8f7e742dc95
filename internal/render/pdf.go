package render

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sunshineplan/imgconv"
)

// pageCount reads the page tree with pdfcpu in relaxed mode.
func pageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return ctx.PageCount, nil
}

// textLayer returns the embedded text of the first maxPages pages (all when 0).
// The reader panics on some malformed content streams.
func textLayer(path string, maxPages int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	n := r.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, t)
	}
	return joinPages(pages), nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, []string, error) {
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, append(args, path, "-")...)
	if err != nil {
		return "", []string{"pdftotext: " + strings.TrimSpace(string(errb))}, err
	}
	// form feed separates pages
	return strings.ReplaceAll(string(out), "\f", "\n"), nil, nil
}

// rasterize renders pages to PNG files under dir and returns them in page order.
func (e *Extractor) rasterize(ctx context.Context, path, dir string) ([]string, []string, error) {
	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI)}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, "-png", path, prefix)...)
	if err != nil {
		return nil, []string{"pdftoppm: " + strings.TrimSpace(string(errb))}, fmt.Errorf("rasterize: %w", err)
	}

	// prefix-1.png, prefix-2.png, ... zero-padded to the widest page number
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, []string{"pdftoppm produced no images"}, nil
	}
	return matches, nil, nil
}

func decodePNG(path string) (image.Image, error) {
	img, err := imgconv.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (e *Extractor) ocrPages(ctx context.Context, files []string) (string, []string) {
	var (
		pages []string
		warns []string
	)
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		txt, err := e.tesseractOCR(ctx, f)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		pages = append(pages, txt)
	}
	return joinPages(pages), warns
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(errb)))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
