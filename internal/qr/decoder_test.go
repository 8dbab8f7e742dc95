package qr_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-wallet/internal/qr"
)

// widthReader answers by image width, so every same-size variant of a page
// yields the same payloads.
type widthReader struct {
	multi  map[int][]string
	single map[int]string
	panics bool
}

func (r widthReader) DecodeMultiple(img image.Image) ([]string, error) {
	if r.panics {
		panic("boom")
	}
	if p, ok := r.multi[img.Bounds().Dx()]; ok {
		return p, nil
	}
	return nil, qr.ErrNoSymbol
}

func (r widthReader) Decode(img image.Image) (string, error) {
	if s, ok := r.single[img.Bounds().Dx()]; ok {
		return s, nil
	}
	return "", qr.ErrNoSymbol
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func TestDecodePages_OrderAndPerPageDedupe(t *testing.T) {
	reader := widthReader{
		multi: map[int][]string{
			10: {"A", " B ", "A"},
			13: {"A"},
		},
		single: map[int]string{13: "C"},
	}
	d := qr.NewDecoder(nil, qr.WithReader(reader), qr.WithWorkers(2))

	got := d.DecodePages(context.Background(), []image.Image{blank(10, 10), blank(13, 13)})
	assert.Equal(t, []string{"A", "B", "A", "C"}, got)
}

func TestDecodePage_RecoversFromPanickingReader(t *testing.T) {
	reader := widthReader{panics: true, single: map[int]string{10: "X"}}
	d := qr.NewDecoder(nil, qr.WithReader(reader))

	assert.Empty(t, d.DecodePage(context.Background(), blank(10, 10)))
}

func TestDecodePage_NilAndEmpty(t *testing.T) {
	d := qr.NewDecoder(nil, qr.WithReader(widthReader{}))
	assert.Nil(t, d.DecodePage(context.Background(), nil))
	assert.Nil(t, d.DecodePage(context.Background(), image.NewGray(image.Rect(0, 0, 0, 0))))
	assert.Empty(t, d.DecodePages(context.Background(), nil))
}

func TestDecodePage_IgnoresBlankPayloads(t *testing.T) {
	reader := widthReader{multi: map[int][]string{10: {"", "   "}}}
	d := qr.NewDecoder(nil, qr.WithReader(reader))
	assert.Empty(t, d.DecodePage(context.Background(), blank(10, 10)))
}

func TestDecodePage_RealSymbol(t *testing.T) {
	matrix, err := qrcode.NewQRCodeWriter().Encode("EVT-2024-000123", gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	require.NoError(t, err)

	page := image.NewRGBA(image.Rect(0, 0, 400, 400))
	draw.Draw(page, page.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(page, image.Rect(80, 80, 320, 320), matrix, image.Point{}, draw.Src)

	d := qr.NewDecoder(nil)
	assert.Equal(t, []string{"EVT-2024-000123"}, d.DecodePage(context.Background(), page))
}

type failingReader struct{ err error }

func (r failingReader) DecodeMultiple(image.Image) ([]string, error) { return nil, r.err }
func (r failingReader) Decode(image.Image) (string, error) { return "", qr.ErrNoSymbol }

func TestDecodePage_LogsReaderErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := qr.NewDecoder(logger, qr.WithReader(failingReader{err: errors.New("checksum mismatch")}))
	assert.Empty(t, d.DecodePage(context.Background(), blank(10, 10)))

	out := buf.String()
	assert.Contains(t, out, "qr.variant.reader_error")
	assert.Contains(t, out, "checksum mismatch")
	assert.Contains(t, out, "mode=multi")
	assert.NotContains(t, out, "mode=single")
}

func TestDecodePage_NoSymbolIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := qr.NewDecoder(logger, qr.WithReader(failingReader{err: qr.ErrNoSymbol}))
	assert.Empty(t, d.DecodePage(context.Background(), blank(10, 10)))
	assert.False(t, strings.Contains(buf.String(), "qr.variant.reader_error"))
}

func TestZXingReader_BlankPageIsNoSymbol(t *testing.T) {
	r := qr.NewZXingReader()

	_, err := r.DecodeMultiple(blank(64, 64))
	assert.ErrorIs(t, err, qr.ErrNoSymbol)
	_, err = r.Decode(blank(64, 64))
	assert.ErrorIs(t, err, qr.ErrNoSymbol)
}
