package render_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/render"
)

type call struct {
	name string
	args []string
}

// fakeTools stands in for poppler and tesseract.
type fakeTools struct {
	t         *testing.T
	text      string
	pages     int
	ppmErr    error
	ocr       map[string]string
	calls     []call
	ocrCalled int
}

func (f *fakeTools) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	switch name {
	case "pdftotext":
		return []byte(f.text), nil, nil
	case "pdftoppm":
		if f.ppmErr != nil {
			return nil, []byte("Syntax Error"), f.ppmErr
		}
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			writePNG(f.t, prefix+"-"+string(rune('0'+i))+".png", 20+i)
		}
		return nil, nil, nil
	case "tesseract":
		f.ocrCalled++
		return []byte(f.ocr[filepath.Base(args[0])]), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func (f *fakeTools) argsOf(name string) []string {
	for _, c := range f.calls {
		if c.name == name {
			return c.args
		}
	}
	return nil
}

func writePNG(t *testing.T, path string, width int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, 10))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(1, 1, color.Gray{Y: 0})
	fh, err := os.Create(path)
	require.NoError(t, err)
	defer fh.Close()
	require.NoError(t, png.Encode(fh, img))
}

// notAPDF has no text layer and no page tree, so every in-process reader fails.
func notAPDF(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ticket.pdf")
	require.NoError(t, os.WriteFile(p, []byte("scanned bytes"), 0o644))
	return p
}

func TestRender_MissingFile(t *testing.T) {
	ex := render.NewExtractor(render.Config{}, nil, render.WithRunner(&fakeTools{t: t}))
	_, err := ex.Render(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "FILE_NOT_FOUND", common.CodeOf(err))
}

func TestRender_PdftotextFallback(t *testing.T) {
	tools := &fakeTools{t: t, text: "Cinema\t\tCity\r\nHall 7  \n\n\n\nSeat: 12\f", pages: 2}
	ex := render.NewExtractor(render.Config{}, nil, render.WithRunner(tools))

	doc, err := ex.Render(context.Background(), notAPDF(t))
	require.NoError(t, err)

	assert.Equal(t, render.MethodPdftotext, doc.Method)
	assert.Equal(t, "Cinema City\nHall 7\n\nSeat: 12", doc.Text)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 21, doc.Pages[0].Bounds().Dx())
	assert.Equal(t, 22, doc.Pages[1].Bounds().Dx())
	assert.Equal(t, 2, doc.PageCount)
	assert.Zero(t, tools.ocrCalled)
	assert.NotEmpty(t, doc.Warnings)
	assert.Equal(t, []string{"-r", "300", "-png"}, tools.argsOf("pdftoppm")[:3])
}

func TestRender_OCRWhenNoText(t *testing.T) {
	tools := &fakeTools{t: t, pages: 2, ocr: map[string]string{
		"page-1.png": "ROW 5\n-----\n",
		"page-2.png": "SEAT 12",
	}}
	ex := render.NewExtractor(render.Config{TesseractLang: "eng", TessdataDir: "/td"}, nil, render.WithRunner(tools))

	doc, err := ex.Render(context.Background(), notAPDF(t))
	require.NoError(t, err)
	assert.Equal(t, render.MethodOCR, doc.Method)
	assert.Equal(t, "ROW 5\n\nSEAT 12", doc.Text)
	assert.Equal(t, 2, tools.ocrCalled)

	args := tools.argsOf("tesseract")
	assert.Equal(t, []string{"stdout", "-l", "eng", "--tessdata-dir", "/td"}, args[1:])
}

func TestRender_RasterFailureIsAWarning(t *testing.T) {
	tools := &fakeTools{t: t, text: "Boarding pass", ppmErr: errors.New("exit status 1")}
	ex := render.NewExtractor(render.Config{}, nil, render.WithRunner(tools))

	doc, err := ex.Render(context.Background(), notAPDF(t))
	require.NoError(t, err)
	assert.Equal(t, "Boarding pass", doc.Text)
	assert.Empty(t, doc.Pages)
	assert.True(t, containsPrefix(doc.Warnings, "pdftoppm: Syntax Error"))
}

func TestRender_MaxPagesLimitsTools(t *testing.T) {
	tools := &fakeTools{t: t, text: "x", pages: 3}
	ex := render.NewExtractor(render.Config{MaxPages: 2, DPI: 150}, nil, render.WithRunner(tools))

	doc, err := ex.Render(context.Background(), notAPDF(t))
	require.NoError(t, err)
	assert.Len(t, doc.Pages, 2)
	assert.Equal(t, []string{"-r", "150", "-f", "1", "-l", "2"}, tools.argsOf("pdftoppm")[:6])
	assert.Contains(t, strings.Join(tools.argsOf("pdftotext"), " "), "-f 1 -l 2")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", render.Normalize(""))
	assert.Equal(t, "a b\n\nc", render.Normalize("  a \t b\r\n\r\n\r\n\r\nc  \n"))
	assert.Equal(t, "code 05", render.Normalize("code 05"))
}

func containsPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
