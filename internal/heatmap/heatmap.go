package heatmap

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"surface-tracker/internal/markers"
)

const (
	// GridWidth is the horizontal resolution of within-surface histograms.
	GridWidth = 300
	// Alpha is the opacity of rendered heatmaps.
	Alpha = 125
)

// Jet maps v in [0, 1] onto the jet colour map, blue to red.
func Jet(v float64) color.NRGBA {
	v = math.Max(0, math.Min(1, v))
	channel := func(offset float64) uint8 {
		c := 1.5 - math.Abs(4*v-offset)
		return uint8(math.Round(math.Max(0, math.Min(1, c)) * 255))
	}
	return color.NRGBA{R: channel(3), G: channel(2), B: channel(1), A: Alpha}
}

// Placeholder is shown while a heatmap is being recomputed.
func Placeholder() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 128, G: 128, B: 128, A: 64})
	return img
}

func gridSize(aspect float64) (w, h int) {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	return GridWidth, max(1, int(math.Round(GridWidth*aspect)))
}

// Within renders the distribution of on-surface gaze points. Points are
// in normalised surface coordinates with the origin at the bottom left.
// aspect is height over width. smoothness in (0, 1] scales the blur.
func Within(points []markers.Point, aspect, smoothness float64) image.Image {
	w, h := gridSize(aspect)
	hist := make([]float64, w*h)
	peak := 0.0
	for _, p := range points {
		if p.X() < 0 || p.X() > 1 || p.Y() < 0 || p.Y() > 1 {
			continue
		}
		col := min(w-1, int(p.X()*float64(w)))
		row := min(h-1, int((1-p.Y())*float64(h)))
		hist[row*w+col]++
		peak = math.Max(peak, hist[row*w+col])
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	if peak > 0 {
		for i, v := range hist {
			gray.Pix[i] = uint8(math.Round(v / peak * 255))
		}
	}

	blurred := imaging.Blur(gray, smoothness*0.05*float64(w))

	var top uint8
	for i := 0; i < len(blurred.Pix); i += 4 {
		top = max(top, blurred.Pix[i])
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 0.0
			if top > 0 {
				v = float64(blurred.Pix[y*blurred.Stride+x*4]) / float64(top)
			}
			out.SetNRGBA(x, y, Jet(v))
		}
	}
	return out
}

// Across renders one single-pixel heatmap per surface from its share of
// on-surface gaze. Counts are normalised to the largest one.
func Across(counts []int) []image.Image {
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}

	out := make([]image.Image, len(counts))
	for i, c := range counts {
		v := 0.0
		if peak > 0 {
			// Quantised like an 8-bit lookup.
			v = math.Floor(float64(c)*255/float64(peak)) / 255
		}
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, Jet(v))
		out[i] = img
	}
	return out
}

// Upscale resizes img for display or export.
func Upscale(img image.Image, width, height int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// SavePNG writes img to path as PNG.
func SavePNG(path string, img image.Image) error {
	return imaging.Save(img, path)
}
