package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Info describes the first video stream of an encoded file.
type Info struct {
	Width  int
	Height int
	FPS    float64
	Frames int
}

// Probe inspects an encoded video with ffprobe, counting decoded frames.
func Probe(ctx context.Context, data []byte, tmpDir string) (Info, error) {
	path, cleanup, err := spill(data, tmpDir)
	if err != nil {
		return Info{}, err
	}
	defer cleanup()
	return probeFile(ctx, path)
}

// Decode returns every frame of an encoded video as RGBA, in presentation order.
func Decode(ctx context.Context, data []byte, tmpDir string) ([]*image.RGBA, error) {
	path, cleanup, err := spill(data, tmpDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	info, err := probeFile(ctx, path)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error",
		"-i", path, "-vsync", "passthrough", "-f", "rawvideo", "-pix_fmt", "rgba", "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode error: %v, output: %s", err, stderr.String())
	}

	frameLen := info.Width * info.Height * 4
	raw := stdout.Bytes()
	if frameLen == 0 || len(raw)%frameLen != 0 {
		return nil, fmt.Errorf("decoded %d bytes, not a multiple of %dx%d RGBA frames", len(raw), info.Width, info.Height)
	}

	frames := make([]*image.RGBA, 0, len(raw)/frameLen)
	for off := 0; off < len(raw); off += frameLen {
		img := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
		copy(img.Pix, raw[off:off+frameLen])
		frames = append(frames, img)
	}
	return frames, nil
}

type ffprobeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		NbReadFrames string `json:"nb_read_frames"`
	} `json:"streams"`
}

func probeFile(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error",
		"-select_streams", "v:0", "-count_frames",
		"-show_entries", "stream=width,height,r_frame_rate,nb_read_frames",
		"-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe error: %w", err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return Info{}, fmt.Errorf("no video stream in %s", path)
	}

	s := probe.Streams[0]
	info := Info{Width: s.Width, Height: s.Height}
	info.Frames, _ = strconv.Atoi(s.NbReadFrames)
	if num, den, ok := strings.Cut(s.RFrameRate, "/"); ok {
		n, _ := strconv.ParseFloat(num, 64)
		d, _ := strconv.ParseFloat(den, 64)
		if d != 0 {
			info.FPS = n / d
		}
	}
	return info, nil
}

func spill(data []byte, tmpDir string) (string, func(), error) {
	f, err := os.CreateTemp(tmpDir, "probe_*.mp4")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	f.Close()
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
