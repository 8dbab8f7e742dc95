package qr

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = uint8((i % w) * 255 / (w - 1))
	}
	return g
}

func TestVariantsKeepOrderAndBounds(t *testing.T) {
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, v.name)
	}
	assert.Equal(t, []string{
		"original", "blur_3x3", "blur_5x5", "adaptive_gaussian", "adaptive_mean", "otsu",
		"equalize", "close_3x3", "bilateral", "scale_0.5", "scale_1.5", "scale_2.0",
	}, names)

	g := gradient(20, 10)
	for _, v := range variants[:9] {
		out := v.build(g)
		require.NotNil(t, out, v.name)
		assert.Equal(t, g.Bounds().Size(), out.Bounds().Size(), v.name)
	}
	assert.Equal(t, 40, variants[11].build(g).Bounds().Dx())
}

func TestThresholdsAreBinary(t *testing.T) {
	g := gradient(32, 8)
	for _, out := range []*image.Gray{otsu(g), adaptiveMean(g, 11, 2), adaptiveGaussian(g, 11, 2)} {
		for _, v := range out.Pix {
			assert.True(t, v == 0 || v == 255)
		}
	}
	o := otsu(g)
	assert.Equal(t, uint8(0), o.Pix[0])
	assert.Equal(t, uint8(255), o.Pix[31])
}

func TestEqualizeStretchesRange(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(g.Pix, []uint8{100, 110, 120, 130})
	out := equalize(g)
	assert.Equal(t, uint8(0), out.Pix[0])
	assert.Equal(t, uint8(255), out.Pix[3])
}

func TestClosingFillsSinglePixelHole(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	g.Pix[2*5+2] = 0
	out := closing(g)
	assert.Equal(t, uint8(255), out.Pix[2*5+2])
}

func TestClosingKeepsSolidModules(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 11, 11))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	for y := 3; y < 8; y++ {
		for x := 3; x < 8; x++ {
			g.Pix[y*11+x] = 0
		}
	}
	out := closing(g)
	assert.Equal(t, g.Bounds(), out.Bounds())
	assert.Equal(t, uint8(0), out.Pix[5*out.Stride+5])
	assert.Equal(t, uint8(255), out.Pix[0])
}

func TestToGrayAnchorsAtOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 15, 10))
	g := toGray(src)
	assert.Equal(t, image.Rect(0, 0, 10, 5), g.Bounds())
}
