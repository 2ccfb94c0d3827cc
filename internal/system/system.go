package system

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
)

// CheckTools verifies the external binaries the encoder shells out to.
func CheckTools() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found in PATH: %w", tool, err)
		}
	}
	return nil
}

func listEncoders() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return ""
	}
	return string(out)
}

// HasEncoder reports whether the local ffmpeg build ships encoderName.
func HasEncoder(encoderName string) bool {
	return strings.Contains(listEncoders(), " "+encoderName+" ")
}

func GetBestH264Encoder() string {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	encoders := listEncoders()
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(encoders, " "+name+" ") {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality returns the encoder-specific quality knob used when none is
// configured.
func DefaultQuality(encoderName string) int {
	switch encoderName {
	case "h264_videotoolbox":
		return 75 // битрейт = Q*100 кбит/с
	case "h264_nvenc":
		return 28 // эквивалент CRF для NVENC
	default:
		return 23 // стандартный CRF для x264
	}
}

// QualityArgs maps a quality value onto the encoder's ffmpeg flags.
func QualityArgs(encoderName string, quality int) []string {
	switch encoderName {
	case "h264_videotoolbox":
		// VideoToolbox не везде поддерживает -q:v, используем битрейт
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

// MemoryReport returns a one-line summary of host memory usage.
func MemoryReport() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Sprintf("memory: unavailable (%v)", err)
	}
	return fmt.Sprintf("memory: %.1f%% used, %d MiB available of %d MiB",
		vm.UsedPercent, vm.Available>>20, vm.Total>>20)
}
