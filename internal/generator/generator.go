package generator

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ivlev/text2video/internal/config"
)

// Request describes the frames wanted for one scene.
type Request struct {
	Prompt    string
	Seed      int64
	NumFrames int
	Steps     int
}

// FrameGenerator renders one scene into an ordered frame sequence.
// Identical requests must produce identical frames.
type FrameGenerator interface {
	Generate(ctx context.Context, req Request) ([]image.Image, error)
}

var ErrFrameCount = errors.New("unexpected frame count")

func Validate(req Request) error {
	if req.Prompt == "" {
		return fmt.Errorf("empty scene prompt")
	}
	if req.Seed < 0 {
		return fmt.Errorf("seed must not be negative, got %d", req.Seed)
	}
	if req.NumFrames <= 0 {
		return fmt.Errorf("num_frames must be positive, got %d", req.NumFrames)
	}
	if req.Steps <= 0 {
		return fmt.Errorf("inference steps must be positive, got %d", req.Steps)
	}
	return nil
}

// New builds the generator selected by cfg.Backend.
func New(cfg *config.Config) (FrameGenerator, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		return NewHTTPGenerator(cfg), nil
	case config.BackendSynthetic:
		w, h := cfg.Width, cfg.Height
		if w == 0 || h == 0 {
			w, h = 256, 256
		}
		return NewSyntheticGenerator(w, h), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}
