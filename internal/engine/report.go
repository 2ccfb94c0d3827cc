package engine

import (
	"fmt"
	"time"

	"github.com/ivlev/text2video/internal/system"
)

// Stats collects phase timings of one pipeline run. A nil *Stats ignores
// all updates.
type Stats struct {
	Start      time.Time
	Plan       time.Duration
	Generate   time.Duration
	Encode     time.Duration
	Scenes     int
	Candidates int
	Frames     int
	Calls      int
}

func (s *Stats) addGenerate(d time.Duration) {
	if s == nil {
		return
	}
	s.Generate += d
	s.Calls++
}

func (s *Stats) addEncode(d time.Duration) {
	if s == nil {
		return
	}
	s.Encode += d
}

func (s *Stats) Report() string {
	total := time.Since(s.Start)
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Total Time: %.2fs\n"+
			"Planning (chat): %.2fs\n"+
			"Generation (diffusion): %.2fs over %d calls\n"+
			"Encoding: %.2fs\n"+
			"Scenes: %d | Candidates: %d | Frames: %d\n"+
			"%s\n"+
			"----------------------------\n",
		total.Seconds(), s.Plan.Seconds(), s.Generate.Seconds(), s.Calls,
		s.Encode.Seconds(), s.Scenes, s.Candidates, s.Frames,
		system.MemoryReport(),
	)
}
