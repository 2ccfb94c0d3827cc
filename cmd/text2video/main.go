package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ivlev/text2video/internal/config"
	"github.com/ivlev/text2video/internal/engine"
	"github.com/ivlev/text2video/internal/generator"
	"github.com/ivlev/text2video/internal/output"
	"github.com/ivlev/text2video/internal/planner"
	"github.com/ivlev/text2video/internal/system"
	"github.com/ivlev/text2video/internal/video"
)

var buildVersion = "dev"

// entryNumFrames is the frame count per scene the command asks for.
const entryNumFrames = 32

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[*] No .env file found")
	}

	cfg := config.Default()
	cfg.NumFrames = entryNumFrames
	cfg.BuildVersion = buildVersion

	configPath := configPathFromArgs(os.Args[1:])
	if configPath != "" {
		if err := config.LoadFile(configPath, cfg); err != nil {
			log.Fatalf("[-] Config error: %v", err)
		}
	}
	config.ApplyEnv(cfg)

	flag.String("config", configPath, "Path to a YAML config file")
	promptPtr := flag.String("prompt", planner.DefaultInstruction, "Planning instruction sent to the chat model")
	queryPtr := flag.String("query", planner.DefaultQuery, "User request to turn into scenes")
	planPtr := flag.String("plan", "", "Path to a saved plan.yaml; skips the chat model")
	flag.IntVar(&cfg.NumFrames, "num-frames", cfg.NumFrames, "Frames generated per scene")
	flag.IntVar(&cfg.NumCandidates, "num-candidates", cfg.NumCandidates, "Number of candidate videos")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "Frame rate of the encoded videos")
	flag.IntVar(&cfg.InferenceSteps, "steps", cfg.InferenceSteps, "Diffusion inference steps")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "Frame generator: http, synthetic")
	flag.StringVar(&cfg.DiffusionURL, "diffusion-url", cfg.DiffusionURL, "Base URL of the diffusion server")
	flag.StringVar(&cfg.DiffusionModel, "model", cfg.DiffusionModel, "Diffusion model id")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "Frame width (0 = model default)")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "Frame height (0 = model default)")
	flag.StringVar(&cfg.ChatModel, "chat-model", cfg.ChatModel, "Chat completion model")
	flag.StringVar(&cfg.SystemRole, "system-role", cfg.SystemRole, "System message framing the assistant")
	flag.IntVar(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, "Completion token limit (0 = service default)")
	flag.StringVar(&cfg.PlanFormat, "plan-format", cfg.PlanFormat, "Planner output format: lines, json")
	flag.BoolVar(&cfg.StripNumbering, "strip-numbering", cfg.StripNumbering, "Strip list markers from planned scenes")
	flag.StringVar(&cfg.VideoEncoder, "encoder", cfg.VideoEncoder, "H.264 encoder (empty = best available)")
	flag.IntVar(&cfg.Quality, "quality", cfg.Quality, "Quality (0 = auto, x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Directory for output_{i}.mp4 files")
	flag.StringVar(&cfg.TmpDir, "tmp-dir", cfg.TmpDir, "Directory for intermediate files (empty = system temp)")
	flag.BoolVar(&cfg.ShowStats, "stats", cfg.ShowStats, "Print a performance report")
	flag.Parse()

	if err := run(cfg, *promptPtr, *queryPtr, *planPtr); err != nil {
		log.Fatalf("[-] %v", err)
	}
}

func run(cfg *config.Config, prompt, query, planPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := system.CheckTools(); err != nil {
		return err
	}

	if cfg.TmpDir == "" {
		tmp, err := os.MkdirTemp("", "text2video_")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		cfg.TmpDir = tmp
	}

	gen, err := generator.New(cfg)
	if err != nil {
		return err
	}
	enc := video.NewFFmpegEncoder(cfg)
	if enc.EncoderName != "libx264" {
		fmt.Printf("[*] Hardware acceleration detected: %s\n", enc.EncoderName)
	}

	req := engine.Request{
		Prompt:        prompt,
		Query:         query,
		NumFrames:     cfg.NumFrames,
		NumCandidates: cfg.NumCandidates,
	}

	var plnr *planner.Planner
	if planPath != "" {
		plan, err := planner.ReadPlan(planPath)
		if err != nil {
			return fmt.Errorf("plan read error: %w", err)
		}
		req.Plan = plan
		fmt.Printf("[*] Using plan: %s\n", planPath)
	} else {
		chat, err := planner.NewOpenAIChat(cfg.APIKey, cfg.ChatBaseURL)
		if err != nil {
			return err
		}
		plnr = planner.NewPlanner(chat, cfg)
	}

	fmt.Println("--- [TEXT2VIDEO] ---")
	fmt.Printf("[*] Build: %s | Query: %s\n", cfg.BuildVersion, query)
	fmt.Printf("[*] Backend: %s | Model: %s | Steps: %d\n", cfg.Backend, cfg.DiffusionModel, cfg.InferenceSteps)
	fmt.Printf("[*] Candidates: %d | Frames/scene: %d @ %d FPS\n", cfg.NumCandidates, cfg.NumFrames, cfg.FPS)
	fmt.Println("--------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline := engine.NewPipeline(plnr, engine.NewOrchestrator(cfg, gen, enc))
	pipeline.ShowStats = cfg.ShowStats

	res, err := pipeline.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	w := output.NewWriter(cfg.OutputDir)
	paths, err := w.WriteCandidates(res.Candidates)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("[>] Wrote video: %s\n", p)
	}
	if _, err := w.WritePlan(res.Plan); err != nil {
		log.Printf("[!] Could not save plan: %v", err)
	}
	if _, err := w.WriteManifest(w.BuildManifest(res.Plan, res.Candidates, cfg.FPS, cfg.NumFrames)); err != nil {
		log.Printf("[!] Could not save manifest: %v", err)
	}

	fmt.Printf("[+++] Success! %d videos in %s (run %s)\n", len(paths), cfg.OutputDir, w.RunID)
	return nil
}

// configPathFromArgs finds -config before flag parsing so file values can
// act as flag defaults.
func configPathFromArgs(args []string) string {
	for i, a := range args {
		name := strings.TrimLeft(a, "-")
		if a == name {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
