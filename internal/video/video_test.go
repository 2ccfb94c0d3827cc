package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/ivlev/text2video/internal/system"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if err := system.CheckTools(); err != nil {
		t.Skipf("ffmpeg tools unavailable: %v", err)
	}
	if !system.HasEncoder("libx264") {
		t.Skip("ffmpeg build has no libx264")
	}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d > -24 && d < 24
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	requireFFmpeg(t)

	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
	}
	var frames []image.Image
	for _, c := range colors {
		frames = append(frames, solidFrame(64, 64, c))
	}

	enc := &FFmpegEncoder{EncoderName: "libx264", Quality: 18, TmpDir: t.TempDir()}
	data, err := enc.Encode(context.Background(), frames, 8)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Encode returned no bytes")
	}

	info, err := Probe(context.Background(), data, t.TempDir())
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Frames != 3 {
		t.Errorf("Expected 3 frames, got %d", info.Frames)
	}
	if info.FPS != 8 {
		t.Errorf("Expected 8 fps, got %f", info.FPS)
	}

	decoded, err := Decode(context.Background(), data, t.TempDir())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("Expected 3 decoded frames, got %d", len(decoded))
	}
	for i, img := range decoded {
		if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
			t.Errorf("Frame %d: unexpected size %v", i, img.Bounds())
		}
		got := img.RGBAAt(32, 32)
		want := colors[i]
		if !near(got.R, want.R) || !near(got.G, want.G) || !near(got.B, want.B) {
			t.Errorf("Frame %d: expected ~%v, got %v", i, want, got)
		}
	}
}

func TestEncodeScalesToTargetSize(t *testing.T) {
	requireFFmpeg(t)

	frames := []image.Image{
		solidFrame(64, 64, color.RGBA{R: 200, A: 255}),
		solidFrame(96, 48, color.RGBA{R: 200, A: 255}),
	}
	enc := &FFmpegEncoder{EncoderName: "libx264", Quality: 23, Width: 32, Height: 32, TmpDir: t.TempDir()}
	data, err := enc.Encode(context.Background(), frames, 8)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	info, err := Probe(context.Background(), data, t.TempDir())
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Width != 32 || info.Height != 32 || info.Frames != 2 {
		t.Errorf("Unexpected output %+v", info)
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	enc := &FFmpegEncoder{EncoderName: "libx264", Quality: 23}
	ctx := context.Background()

	if _, err := enc.Encode(ctx, nil, 8); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Expected ErrNoFrames, got %v", err)
	}
	if _, err := enc.Encode(ctx, []image.Image{solidFrame(4, 4, color.RGBA{})}, 0); err == nil {
		t.Error("Expected error for zero fps")
	}

	mixed := []image.Image{solidFrame(64, 64, color.RGBA{}), solidFrame(32, 32, color.RGBA{})}
	if _, err := enc.Encode(ctx, mixed, 8); !errors.Is(err, ErrFrameSize) {
		t.Errorf("Expected ErrFrameSize for mixed sizes, got %v", err)
	}

	odd := []image.Image{solidFrame(63, 64, color.RGBA{})}
	if _, err := enc.Encode(ctx, odd, 8); !errors.Is(err, ErrFrameSize) {
		t.Errorf("Expected ErrFrameSize for odd width, got %v", err)
	}
}

func TestBuildFFmpegArgs(t *testing.T) {
	enc := &FFmpegEncoder{EncoderName: "libx264", Quality: 23}
	args := strings.Join(enc.buildFFmpegArgs(image.Rect(0, 0, 256, 128), 8, "/tmp/out.mp4"), " ")

	for _, want := range []string{
		"-f rawvideo",
		"-pixel_format rgba",
		"-video_size 256x128",
		"-framerate 8",
		"-i -",
		"-pix_fmt yuv420p",
		"-c:v libx264",
		"-crf 23",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("Args should contain %q: %s", want, args)
		}
	}
	if !strings.HasSuffix(args, "/tmp/out.mp4") {
		t.Errorf("Output path should come last: %s", args)
	}
}

func TestWriteRawRGBA(t *testing.T) {
	buf := image.NewRGBA(image.Rect(0, 0, 4, 4))

	// exact RGBA goes through untouched
	src := solidFrame(4, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	var out bytes.Buffer
	if err := writeRawRGBA(&out, src, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), src.Pix) {
		t.Error("Matching RGBA frame should be written verbatim")
	}

	// non-RGBA source of the same size is converted
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	out.Reset()
	if err := writeRawRGBA(&out, gray, buf); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 4*4*4 {
		t.Errorf("Expected %d bytes, got %d", 4*4*4, out.Len())
	}

	// larger source is scaled down
	big := solidFrame(16, 16, color.RGBA{G: 255, A: 255})
	out.Reset()
	if err := writeRawRGBA(&out, big, buf); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 4*4*4 {
		t.Errorf("Expected %d bytes after scaling, got %d", 4*4*4, out.Len())
	}
	if g := out.Bytes()[1]; g < 250 {
		t.Errorf("Scaled pixel should stay green, got G=%d", g)
	}
}
