package engine

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"time"

	"github.com/ivlev/text2video/internal/config"
	"github.com/ivlev/text2video/internal/generator"
	"github.com/ivlev/text2video/internal/video"
)

// Candidate is one fully assembled video.
type Candidate struct {
	Index      int
	Seed       int64
	FrameCount int
	Video      []byte
}

// Orchestrator renders every scene once per candidate with a seed shared by
// the candidate's scenes, then encodes the concatenated frames. Work is
// strictly sequential and the first failure aborts the whole batch.
type Orchestrator struct {
	Generator generator.FrameGenerator
	Encoder   video.Encoder
	FPS       int
	Steps     int
	// Seed draws a candidate seed in [0, config.MaxSeed].
	Seed func() int64

	Stats *Stats
}

func NewOrchestrator(cfg *config.Config, gen generator.FrameGenerator, enc video.Encoder) *Orchestrator {
	return &Orchestrator{
		Generator: gen,
		Encoder:   enc,
		FPS:       cfg.FPS,
		Steps:     cfg.InferenceSteps,
		Seed:      RandomSeed(rand.New(rand.NewSource(time.Now().UnixNano()))),
	}
}

// RandomSeed returns a seed source drawing uniformly from [0, config.MaxSeed].
func RandomSeed(r *rand.Rand) func() int64 {
	return func() int64 {
		return r.Int63n(config.MaxSeed + 1)
	}
}

func (o *Orchestrator) Run(ctx context.Context, scenes []string, numFrames, numCandidates int) ([]Candidate, error) {
	if numCandidates < 0 {
		return nil, fmt.Errorf("num_candidates must not be negative, got %d", numCandidates)
	}
	if numCandidates > 0 && len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes to render")
	}

	candidates := make([]Candidate, 0, numCandidates)
	for i := 0; i < numCandidates; i++ {
		seed := o.Seed()
		fmt.Printf("[*] Candidate %d/%d | seed %d\n", i+1, numCandidates, seed)

		c, err := o.renderCandidate(ctx, i, seed, scenes, numFrames)
		if err != nil {
			return nil, fmt.Errorf("candidate %d (seed %d): %w", i, seed, err)
		}
		candidates = append(candidates, c)
		fmt.Printf("[>] Ready: %d/%d (%d frames, %d bytes)\n", i+1, numCandidates, c.FrameCount, len(c.Video))
	}
	return candidates, nil
}

func (o *Orchestrator) renderCandidate(ctx context.Context, index int, seed int64, scenes []string, numFrames int) (Candidate, error) {
	var allFrames []image.Image

	for j, scene := range scenes {
		start := time.Now()
		frames, err := o.Generator.Generate(ctx, generator.Request{
			Prompt:    scene,
			Seed:      seed,
			NumFrames: numFrames,
			Steps:     o.Steps,
		})
		o.Stats.addGenerate(time.Since(start))
		if err != nil {
			return Candidate{}, fmt.Errorf("scene %d %q: %w", j, scene, err)
		}
		allFrames = append(allFrames, frames...)
	}

	start := time.Now()
	data, err := o.Encoder.Encode(ctx, allFrames, o.FPS)
	o.Stats.addEncode(time.Since(start))
	if err != nil {
		return Candidate{}, fmt.Errorf("encode: %w", err)
	}

	return Candidate{
		Index:      index,
		Seed:       seed,
		FrameCount: len(allFrames),
		Video:      data,
	}, nil
}
