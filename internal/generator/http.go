package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"

	_ "golang.org/x/image/webp"

	"github.com/ivlev/text2video/internal/config"
)

// HTTPGenerator talks to a diffusion inference server. The model is loaded
// with one /load call per process and reused by every later /generate call.
type HTTPGenerator struct {
	BaseURL    string
	Model      string
	Width      int
	Height     int
	DType      string
	CPUOffload bool
	VAESlicing bool
	Client     *http.Client

	mu     sync.Mutex
	loaded bool
}

func NewHTTPGenerator(cfg *config.Config) *HTTPGenerator {
	return &HTTPGenerator{
		BaseURL:    strings.TrimSuffix(cfg.DiffusionURL, "/"),
		Model:      cfg.DiffusionModel,
		Width:      cfg.Width,
		Height:     cfg.Height,
		DType:      cfg.DType,
		CPUOffload: cfg.CPUOffload,
		VAESlicing: cfg.VAESlicing,
		Client:     http.DefaultClient,
	}
}

type loadRequest struct {
	Model      string `json:"model"`
	DType      string `json:"dtype,omitempty"`
	CPUOffload bool   `json:"cpu_offload,omitempty"`
	VAESlicing bool   `json:"vae_slicing,omitempty"`
}

type generateRequest struct {
	Model             string `json:"model"`
	Prompt            string `json:"prompt"`
	NumInferenceSteps int    `json:"num_inference_steps"`
	NumFrames         int    `json:"num_frames"`
	Seed              int64  `json:"seed"`
	Width             int    `json:"width,omitempty"`
	Height            int    `json:"height,omitempty"`
}

type generateResponse struct {
	// Frames are base64-encoded PNG, JPEG or WebP images.
	Frames []string `json:"frames"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) ([]image.Image, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if err := g.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	var resp generateResponse
	err := g.post(ctx, "/generate", generateRequest{
		Model:             g.Model,
		Prompt:            req.Prompt,
		NumInferenceSteps: req.Steps,
		NumFrames:         req.NumFrames,
		Seed:              req.Seed,
		Width:             g.Width,
		Height:            g.Height,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("generate %q: %w", req.Prompt, err)
	}

	if len(resp.Frames) != req.NumFrames {
		return nil, fmt.Errorf("generate %q: %w: want %d, got %d", req.Prompt, ErrFrameCount, req.NumFrames, len(resp.Frames))
	}

	frames := make([]image.Image, len(resp.Frames))
	for i, enc := range resp.Frames {
		img, err := decodeFrame(enc)
		if err != nil {
			return nil, fmt.Errorf("decode frame %d of %q: %w", i, req.Prompt, err)
		}
		frames[i] = img
	}
	return frames, nil
}

func (g *HTTPGenerator) ensureLoaded(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loaded {
		return nil
	}

	err := g.post(ctx, "/load", loadRequest{
		Model:      g.Model,
		DType:      g.DType,
		CPUOffload: g.CPUOffload,
		VAESlicing: g.VAESlicing,
	}, nil)
	if err != nil {
		return fmt.Errorf("load model %s: %w", g.Model, err)
	}
	g.loaded = true
	return nil
}

func (g *HTTPGenerator) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("diffusion server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeFrame(enc string) (image.Image, error) {
	// tolerate data URLs
	if i := strings.Index(enc, ";base64,"); i >= 0 {
		enc = enc[i+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	return img, err
}
