package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivlev/text2video/internal/config"
)

func encodePNG(t *testing.T, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type diffusionServer struct {
	loads     int
	generates []generateRequest
	frames    []string
	status    int
}

func (s *diffusionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.status != 0 {
		http.Error(w, "CUDA out of memory", s.status)
		return
	}
	switch r.URL.Path {
	case "/load":
		s.loads++
	case "/generate":
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.generates = append(s.generates, req)
		json.NewEncoder(w).Encode(generateResponse{Frames: s.frames})
	default:
		http.NotFound(w, r)
	}
}

func newTestHTTPGenerator(url string) *HTTPGenerator {
	cfg := config.Default()
	cfg.DiffusionURL = url + "/"
	return NewHTTPGenerator(cfg)
}

func TestHTTPGeneratorGenerate(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	ds := &diffusionServer{frames: []string{encodePNG(t, red), "data:image/png;base64," + encodePNG(t, blue)}}
	srv := httptest.NewServer(ds)
	defer srv.Close()

	g := newTestHTTPGenerator(srv.URL)
	req := Request{Prompt: "A red cup", Seed: 42, NumFrames: 2, Steps: 64}

	for i := 0; i < 3; i++ {
		frames, err := g.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(frames) != 2 {
			t.Fatalf("Expected 2 frames, got %d", len(frames))
		}
		if got := color.RGBAModel.Convert(frames[0].At(0, 0)).(color.RGBA); got != red {
			t.Errorf("Frame 0: expected red, got %v", got)
		}
		if got := color.RGBAModel.Convert(frames[1].At(0, 0)).(color.RGBA); got != blue {
			t.Errorf("Frame 1: expected blue, got %v", got)
		}
	}

	if ds.loads != 1 {
		t.Errorf("Model should be loaded once, got %d loads", ds.loads)
	}
	if len(ds.generates) != 3 {
		t.Fatalf("Expected 3 generate calls, got %d", len(ds.generates))
	}
	sent := ds.generates[0]
	if sent.Prompt != "A red cup" || sent.Seed != 42 || sent.NumFrames != 2 || sent.NumInferenceSteps != 64 {
		t.Errorf("Unexpected request payload: %+v", sent)
	}
	if sent.Model != "damo-vilab/text-to-video-ms-1.7b" {
		t.Errorf("Unexpected model %q", sent.Model)
	}
}

func TestHTTPGeneratorFrameCountMismatch(t *testing.T) {
	ds := &diffusionServer{frames: []string{encodePNG(t, color.RGBA{A: 255})}}
	srv := httptest.NewServer(ds)
	defer srv.Close()

	g := newTestHTTPGenerator(srv.URL)
	_, err := g.Generate(context.Background(), Request{Prompt: "x", NumFrames: 3, Steps: 1})
	if !errors.Is(err, ErrFrameCount) {
		t.Fatalf("Expected ErrFrameCount, got %v", err)
	}
}

func TestHTTPGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(&diffusionServer{status: http.StatusServiceUnavailable})
	defer srv.Close()

	g := newTestHTTPGenerator(srv.URL)
	if _, err := g.Generate(context.Background(), Request{Prompt: "x", NumFrames: 1, Steps: 1}); err == nil {
		t.Fatal("Expected error from failing server")
	}
	if g.loaded {
		t.Error("Failed load must not be cached")
	}
}

func TestSyntheticGeneratorDeterministic(t *testing.T) {
	g := NewSyntheticGenerator(32, 16)
	req := Request{Prompt: "Boil water", Seed: 123456, NumFrames: 4, Steps: 64}

	a, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(a) != 4 || len(b) != 4 {
		t.Fatalf("Expected 4 frames, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if !bytes.Equal(a[i].(*image.RGBA).Pix, b[i].(*image.RGBA).Pix) {
			t.Errorf("Frame %d differs between identical requests", i)
		}
		if a[i].Bounds().Dx() != 32 || a[i].Bounds().Dy() != 16 {
			t.Errorf("Unexpected frame size %v", a[i].Bounds())
		}
	}

	other, err := g.Generate(context.Background(), Request{Prompt: "Boil water", Seed: 7, NumFrames: 4, Steps: 64})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a[0].(*image.RGBA).Pix, other[0].(*image.RGBA).Pix) {
		t.Error("Different seeds should give different frames")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"ok", Request{Prompt: "a", Seed: 0, NumFrames: 1, Steps: 1}, false},
		{"empty prompt", Request{NumFrames: 1, Steps: 1}, true},
		{"negative seed", Request{Prompt: "a", Seed: -1, NumFrames: 1, Steps: 1}, true},
		{"zero frames", Request{Prompt: "a", Steps: 1}, true},
		{"zero steps", Request{Prompt: "a", NumFrames: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.req, err, tt.wantErr)
			}
		})
	}
}

func TestNewBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendSynthetic
	g, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := g.(*SyntheticGenerator); !ok {
		t.Errorf("Expected synthetic generator, got %T", g)
	}

	cfg.Backend = "modal"
	if _, err := New(cfg); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
