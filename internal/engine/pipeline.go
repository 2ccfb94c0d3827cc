package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ivlev/text2video/internal/planner"
)

// DefaultNumFrames is used when a request leaves NumFrames unset.
const DefaultNumFrames = 24

// Request mirrors the remote entry point: planning instruction, user query,
// frames per scene and number of candidate videos. Zero candidates is a
// valid request that yields no videos. When Plan is set the planner is
// skipped.
type Request struct {
	Prompt        string
	Query         string
	NumFrames     int
	NumCandidates int
	Plan          *planner.Plan
}

type Result struct {
	Plan       *planner.Plan
	Candidates []Candidate
}

type Pipeline struct {
	Planner      *planner.Planner
	Orchestrator *Orchestrator
	ShowStats    bool
}

func NewPipeline(p *planner.Planner, o *Orchestrator) *Pipeline {
	return &Pipeline{Planner: p, Orchestrator: o}
}

func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.NumFrames == 0 {
		req.NumFrames = DefaultNumFrames
	}

	stats := &Stats{Start: time.Now()}
	p.Orchestrator.Stats = stats
	defer func() { p.Orchestrator.Stats = nil }()

	plan := req.Plan
	if plan == nil {
		if p.Planner == nil {
			return nil, fmt.Errorf("no planner configured and no plan given")
		}
		planStart := time.Now()
		var err error
		plan, err = p.Planner.Plan(ctx, req.Prompt, req.Query)
		stats.Plan = time.Since(planStart)
		if err != nil {
			return nil, err
		}
	}

	fmt.Printf("[*] Going to generate %d candidate videos for the following steps:\n%s\n",
		req.NumCandidates, strings.Join(plan.Scenes, "\n"))

	candidates, err := p.Orchestrator.Run(ctx, plan.Scenes, req.NumFrames, req.NumCandidates)
	if err != nil {
		return nil, err
	}

	stats.Scenes = len(plan.Scenes)
	stats.Candidates = len(candidates)
	for _, c := range candidates {
		stats.Frames += c.FrameCount
	}
	if p.ShowStats {
		fmt.Print(stats.Report())
	}

	return &Result{Plan: plan, Candidates: candidates}, nil
}
