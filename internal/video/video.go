package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/text2video/internal/config"
	"github.com/ivlev/text2video/internal/system"
)

var (
	ErrNoFrames  = errors.New("no frames to encode")
	ErrFrameSize = errors.New("unsupported frame size")
)

// Encoder turns an ordered frame sequence into an encoded video.
type Encoder interface {
	Encode(ctx context.Context, frames []image.Image, fps int) ([]byte, error)
}

// FFmpegEncoder pipes raw RGBA frames into ffmpeg and returns the MP4 bytes.
// When Width and Height are set, every frame is scaled to that size first;
// otherwise all frames must match the first one.
type FFmpegEncoder struct {
	EncoderName string
	Quality     int
	Width       int
	Height      int
	TmpDir      string
}

func NewFFmpegEncoder(cfg *config.Config) *FFmpegEncoder {
	name := cfg.VideoEncoder
	if name == "" {
		name = system.GetBestH264Encoder()
	}
	quality := cfg.Quality
	if quality == 0 {
		quality = system.DefaultQuality(name)
	}
	return &FFmpegEncoder{
		EncoderName: name,
		Quality:     quality,
		Width:       cfg.Width,
		Height:      cfg.Height,
		TmpDir:      cfg.TmpDir,
	}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, frames []image.Image, fps int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if fps <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %d", fps)
	}

	size, err := e.frameSize(frames)
	if err != nil {
		return nil, err
	}

	out, err := os.CreateTemp(e.TmpDir, "candidate_*.mp4")
	if err != nil {
		return nil, err
	}
	videoPath := out.Name()
	out.Close()
	defer os.Remove(videoPath)

	args := e.buildFFmpegArgs(size, fps, videoPath)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		if err := writeFrames(stdin, frames, size); err != nil {
			return fmt.Errorf("write raw error: %w", err)
		}
		return nil
	})
	// ошибка ffmpeg важнее EPIPE от записи
	waitErr := cmd.Wait()
	writeErr := g.Wait()
	if waitErr != nil {
		return nil, fmt.Errorf("ffmpeg encode error: %v, output: %s", waitErr, stderr.String())
	}
	if writeErr != nil {
		return nil, writeErr
	}

	return os.ReadFile(videoPath)
}

func (e *FFmpegEncoder) frameSize(frames []image.Image) (image.Rectangle, error) {
	size := image.Rect(0, 0, frames[0].Bounds().Dx(), frames[0].Bounds().Dy())
	if e.Width > 0 && e.Height > 0 {
		size = image.Rect(0, 0, e.Width, e.Height)
	} else {
		for i, f := range frames {
			if f.Bounds().Dx() != size.Dx() || f.Bounds().Dy() != size.Dy() {
				return image.Rectangle{}, fmt.Errorf("%w: frame %d is %dx%d, expected %dx%d",
					ErrFrameSize, i, f.Bounds().Dx(), f.Bounds().Dy(), size.Dx(), size.Dy())
			}
		}
	}
	// yuv420p требует чётных размеров
	if size.Dx() <= 0 || size.Dy() <= 0 || size.Dx()%2 != 0 || size.Dy()%2 != 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d, dimensions must be positive and even", ErrFrameSize, size.Dx(), size.Dy())
	}
	return size, nil
}

func (e *FFmpegEncoder) buildFFmpegArgs(size image.Rectangle, fps int, videoPath string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", size.Dx(), size.Dy()),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", e.EncoderName,
	}
	args = append(args, system.QualityArgs(e.EncoderName, e.Quality)...)
	args = append(args, "-movflags", "+faststart", videoPath)
	return args
}

func writeFrames(w io.Writer, frames []image.Image, size image.Rectangle) error {
	buf := system.GetImage(size)
	defer system.PutImage(buf)

	for i, f := range frames {
		if err := writeRawRGBA(w, f, buf); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}
