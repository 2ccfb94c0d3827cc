package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	BackendHTTP      = "http"
	BackendSynthetic = "synthetic"

	PlanFormatLines = "lines"
	PlanFormatJSON  = "json"

	// MaxSeed is the inclusive upper bound of candidate seeds.
	MaxSeed = 1_000_000
)

type Config struct {
	// Chat completion
	ChatModel      string  `yaml:"chat_model"`
	ChatBaseURL    string  `yaml:"chat_base_url"`
	APIKey         string  `yaml:"-"`
	SystemRole     string  `yaml:"system_role"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	PlanFormat     string  `yaml:"plan_format"`
	StripNumbering bool    `yaml:"strip_numbering"`

	// Diffusion
	Backend        string `yaml:"backend"`
	DiffusionURL   string `yaml:"diffusion_url"`
	DiffusionModel string `yaml:"diffusion_model"`
	InferenceSteps int    `yaml:"inference_steps"`
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	DType          string `yaml:"dtype"`
	CPUOffload     bool   `yaml:"cpu_offload"`
	VAESlicing     bool   `yaml:"vae_slicing"`

	// Candidates
	FPS           int `yaml:"fps"`
	NumFrames     int `yaml:"num_frames"`
	NumCandidates int `yaml:"num_candidates"`

	// Encoding
	VideoEncoder string `yaml:"video_encoder"`
	Quality      int    `yaml:"quality"`

	OutputDir    string `yaml:"output_dir"`
	TmpDir       string `yaml:"tmp_dir"`
	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`
}

// Default returns the settings of the reference text-to-video recipe.
func Default() *Config {
	return &Config{
		ChatModel:      "gpt-3.5-turbo",
		SystemRole:     "you are an expert barista",
		Temperature:    0,
		PlanFormat:     PlanFormatLines,
		Backend:        BackendHTTP,
		DiffusionURL:   "http://localhost:8000",
		DiffusionModel: "damo-vilab/text-to-video-ms-1.7b",
		InferenceSteps: 64,
		DType:          "float16",
		CPUOffload:     true,
		VAESlicing:     true,
		FPS:            8,
		NumFrames:      24,
		NumCandidates:  3,
		OutputDir:      "output",
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys missing from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv reads credentials and endpoints from the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.ChatBaseURL = v
	}
	if v := os.Getenv("DIFFUSION_URL"); v != "" {
		cfg.DiffusionURL = v
	}
	if v := os.Getenv("DIFFUSION_MODEL"); v != "" {
		cfg.DiffusionModel = v
	}
}

func (c *Config) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.NumFrames <= 0 {
		return fmt.Errorf("num_frames must be positive, got %d", c.NumFrames)
	}
	if c.NumCandidates < 0 {
		return fmt.Errorf("num_candidates must not be negative, got %d", c.NumCandidates)
	}
	if c.InferenceSteps <= 0 {
		return fmt.Errorf("inference_steps must be positive, got %d", c.InferenceSteps)
	}
	if c.Width < 0 || c.Height < 0 || (c.Width == 0) != (c.Height == 0) {
		return fmt.Errorf("width and height must both be set or both be zero, got %dx%d", c.Width, c.Height)
	}
	switch c.Backend {
	case BackendHTTP:
		if c.DiffusionURL == "" {
			return fmt.Errorf("diffusion_url is required for the %s backend", BackendHTTP)
		}
	case BackendSynthetic:
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	switch c.PlanFormat {
	case PlanFormatLines, PlanFormatJSON:
	default:
		return fmt.Errorf("unknown plan format: %s", c.PlanFormat)
	}
	return nil
}
