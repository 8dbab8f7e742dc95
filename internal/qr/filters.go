package qr

import (
	"image"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/sunshineplan/imgconv"
)

// variant is one preprocessed rendition of a page fed to the symbol reader.
type variant struct {
	name  string
	build func(*image.Gray) image.Image
}

// variants is the fixed preprocessing battery, tried in order.
var variants = []variant{
	{"original", func(g *image.Gray) image.Image { return g }},
	{"blur_3x3", func(g *image.Gray) image.Image { return imaging.Blur(g, 0.8) }},
	{"blur_5x5", func(g *image.Gray) image.Image { return imaging.Blur(g, 1.1) }},
	{"adaptive_gaussian", func(g *image.Gray) image.Image { return adaptiveGaussian(g, 11, 2) }},
	{"adaptive_mean", func(g *image.Gray) image.Image { return adaptiveMean(g, 11, 2) }},
	{"otsu", func(g *image.Gray) image.Image { return otsu(g) }},
	{"equalize", func(g *image.Gray) image.Image { return equalize(g) }},
	{"close_3x3", func(g *image.Gray) image.Image { return closing(g) }},
	{"bilateral", func(g *image.Gray) image.Image { return bilateral(g, 9, 75, 75) }},
	{"scale_0.5", func(g *image.Gray) image.Image { return scale(g, 0.5) }},
	{"scale_1.5", func(g *image.Gray) image.Image { return scale(g, 1.5) }},
	{"scale_2.0", func(g *image.Gray) image.Image { return scale(g, 2.0) }},
}

// toGray returns an 8-bit grayscale copy of img anchored at the origin.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) && g.Stride == g.Bounds().Dx() {
		return g
	}
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), nrgba, b.Min, draw.Src)
	return g
}

func scale(g *image.Gray, f float64) image.Image {
	b := g.Bounds()
	w, h := int(float64(b.Dx())*f), int(float64(b.Dy())*f)
	if w < 1 || h < 1 {
		return g
	}
	return imgconv.Resize(g, &imgconv.ResizeOption{Width: w, Height: h})
}

func binarize(src, ref *image.Gray, c int) *image.Gray {
	out := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if int(v) > int(ref.Pix[i])-c {
			out.Pix[i] = 255
		}
	}
	return out
}

// adaptiveMean thresholds every pixel against the mean of its block minus c.
func adaptiveMean(g *image.Gray, block, c int) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	integral := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			row += int(g.Pix[y*g.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + row
		}
	}

	half := block / 2
	mean := image.NewGray(g.Bounds())
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h, y+half+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w, x+half+1)
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] - integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean.Pix[y*mean.Stride+x] = uint8(sum / ((x1 - x0) * (y1 - y0)))
		}
	}
	return binarize(g, mean, c)
}

// adaptiveGaussian thresholds against a Gaussian-weighted block mean. The
// sigma is derived from the block size the same way OpenCV does.
func adaptiveGaussian(g *image.Gray, block, c int) *image.Gray {
	sigma := 0.3*(float64(block-1)*0.5-1) + 0.8
	return binarize(g, toGray(imaging.Blur(g, sigma)), c)
}

func otsu(g *image.Gray) *image.Gray {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	total := len(g.Pix)
	sumAll := 0
	for i, n := range hist {
		sumAll += i * n
	}

	var (
		sumB, wB  int
		best      float64
		threshold int
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += t * hist[t]
		mB := float64(sumB) / float64(wB)
		mF := float64(sumAll-sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best, threshold = between, t
		}
	}

	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		if int(v) > threshold {
			out.Pix[i] = 255
		}
	}
	return out
}

func equalize(g *image.Gray) *image.Gray {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	var cdf [256]int
	run, cdfMin := 0, 0
	for i, n := range hist {
		run += n
		cdf[i] = run
		if cdfMin == 0 && run > 0 {
			cdfMin = run
		}
	}
	out := image.NewGray(g.Bounds())
	total := len(g.Pix)
	if total == cdfMin {
		copy(out.Pix, g.Pix)
		return out
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(math.Round(float64(cdf[i]-cdfMin) * 255 / float64(total-cdfMin)))
	}
	for i, v := range g.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// closing is a radius-1 dilation followed by an erosion; it fills
// single-pixel gaps inside light regions.
func closing(g *image.Gray) *image.Gray {
	return toGray(effect.Erode(effect.Dilate(g, 1), 1))
}

// bilateral smooths within a d-pixel disc, weighting neighbours by both
// distance and intensity difference.
func bilateral(g *image.Gray, d int, sigmaColor, sigmaSpace float64) *image.Gray {
	radius := d / 2
	var colorW [256]float64
	for i := range colorW {
		colorW[i] = math.Exp(-float64(i*i) / (2 * sigmaColor * sigmaColor))
	}

	type tap struct {
		dx, dy int
		w      float64
	}
	var taps []tap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if math.Sqrt(r2) > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(-r2 / (2 * sigmaSpace * sigmaSpace))})
		}
	}

	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(g.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := int(g.Pix[y*g.Stride+x])
			var sum, norm float64
			for _, t := range taps {
				ny, nx := y+t.dy, x+t.dx
				if ny < 0 || ny >= h || nx < 0 || nx >= w {
					continue
				}
				v := int(g.Pix[ny*g.Stride+nx])
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				wt := t.w * colorW[diff]
				sum += wt * float64(v)
				norm += wt
			}
			out.Pix[y*out.Stride+x] = uint8(math.Round(sum / norm))
		}
	}
	return out
}
