package generator

import (
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"math/rand"
)

// SyntheticGenerator renders solid-color frames with a drifting bar. Colors
// derive from the prompt and seed, so identical requests match pixel for
// pixel. No model is involved; it backs dry runs and smoke tests.
type SyntheticGenerator struct {
	Width, Height int
}

func NewSyntheticGenerator(width, height int) *SyntheticGenerator {
	return &SyntheticGenerator{Width: width, Height: height}
}

func (g *SyntheticGenerator) Generate(ctx context.Context, req Request) ([]image.Image, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(req.Prompt))
	r := rand.New(rand.NewSource(int64(h.Sum64()) ^ req.Seed))

	bg := color.RGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255}
	fg := color.RGBA{R: 255 - bg.R, G: 255 - bg.G, B: 255 - bg.B, A: 255}
	barW := g.Width / 8
	if barW < 1 {
		barW = 1
	}

	frames := make([]image.Image, req.NumFrames)
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
		x0 := 0
		if req.NumFrames > 1 {
			x0 = i * (g.Width - barW) / (req.NumFrames - 1)
		}
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				if x >= x0 && x < x0+barW {
					img.SetRGBA(x, y, fg)
				} else {
					img.SetRGBA(x, y, bg)
				}
			}
		}
		frames[i] = img
	}
	return frames, nil
}
