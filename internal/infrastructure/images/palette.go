package images

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// PaletteOptions are the clustering thresholds.
type PaletteOptions struct {
	// MaxColors caps the palette length.
	MaxColors int
	// Distance is the Lab distance under which a pixel joins a cluster.
	Distance float64
	// MinSaturation and the lightness band drop greys, blacks and whites.
	MinSaturation float64
	MinLightness  float64
	MaxLightness  float64
	// MinShare drops clusters covering less than this fraction of kept pixels.
	MinShare float64
	// SampleSize is the edge length the image is shrunk to before clustering.
	SampleSize int
}

func (o PaletteOptions) withDefaults() PaletteOptions {
	if o.MaxColors <= 0 {
		o.MaxColors = 10
	}
	if o.Distance <= 0 {
		o.Distance = 0.12
	}
	if o.MinSaturation <= 0 {
		o.MinSaturation = 0.15
	}
	if o.MinLightness <= 0 {
		o.MinLightness = 0.08
	}
	if o.MaxLightness <= 0 {
		o.MaxLightness = 0.95
	}
	if o.MinShare <= 0 {
		o.MinShare = 0.01
	}
	if o.SampleSize <= 0 {
		o.SampleSize = 64
	}
	return o
}

type cluster struct {
	center  colorful.Color
	r, g, b float64
	count   int
}

func (c *cluster) add(col colorful.Color) {
	c.r += col.R
	c.g += col.G
	c.b += col.B
	c.count++
	n := float64(c.count)
	c.center = colorful.Color{R: c.r / n, G: c.g / n, B: c.b / n}
}

// Palette clusters the image's colors greedily in Lab space and returns hex
// colors ordered by pixel count. A near-monochrome image yields an empty slice.
func Palette(img image.Image, opts PaletteOptions) []string {
	opts = opts.withDefaults()
	small := imaging.Fit(img, opts.SampleSize, opts.SampleSize, imaging.Box)
	bounds := small.Bounds()

	var clusters []*cluster
	kept := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			col, ok := colorful.MakeColor(small.At(x, y))
			if !ok {
				continue
			}
			_, s, l := col.Hsl()
			if s < opts.MinSaturation || l < opts.MinLightness || l > opts.MaxLightness {
				continue
			}
			kept++

			var best *cluster
			bestDist := opts.Distance
			for _, c := range clusters {
				if d := col.DistanceLab(c.center); d < bestDist {
					best, bestDist = c, d
				}
			}
			if best == nil {
				best = &cluster{}
				clusters = append(clusters, best)
			}
			best.add(col)
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].count > clusters[j].count })

	out := make([]string, 0, opts.MaxColors)
	for _, c := range clusters {
		if len(out) == opts.MaxColors {
			break
		}
		if float64(c.count) < opts.MinShare*float64(kept) {
			break
		}
		out = append(out, c.center.Clamped().Hex())
	}
	return out
}
