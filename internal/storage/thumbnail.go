package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var ErrToolUnavailable = errors.New("media tool not available")

const (
	ThumbnailWidth  = 320
	ThumbnailHeight = 180
)

// Thumbnailer renders a still frame of a video to destPath.
type Thumbnailer interface {
	GenerateThumbnail(ctx context.Context, videoPath, destPath string) error
}

// DurationProber reports the running time of a video.
type DurationProber interface {
	ProbeDuration(ctx context.Context, videoPath string) (time.Duration, error)
}

// FFmpeg shells out to ffmpeg/ffprobe with an explicit argument vector.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// NewFFmpeg resolves the binaries on PATH; a missing binary makes the matching
// method return ErrToolUnavailable instead of failing construction.
func NewFFmpeg(ffmpegBin, ffprobeBin string, timeout time.Duration) *FFmpeg {
	f := &FFmpeg{timeout: timeout}
	if p, err := exec.LookPath(ffmpegBin); err == nil {
		f.ffmpegPath = p
	}
	if p, err := exec.LookPath(ffprobeBin); err == nil {
		f.ffprobePath = p
	}
	return f
}

func (f *FFmpeg) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (f *FFmpeg) GenerateThumbnail(ctx context.Context, videoPath, destPath string) error {
	if f.ffmpegPath == "" {
		return ErrToolUnavailable
	}
	_, err := f.run(ctx, f.ffmpegPath,
		"-y", "-v", "error",
		"-ss", "00:00:01.000",
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", ThumbnailWidth, ThumbnailHeight),
		destPath,
	)
	if err != nil {
		return err
	}
	if _, err := os.Stat(destPath); err != nil {
		return fmt.Errorf("ffmpeg produced no thumbnail: %w", err)
	}
	return nil
}

func (f *FFmpeg) ProbeDuration(ctx context.Context, videoPath string) (time.Duration, error) {
	if f.ffprobePath == "" {
		return 0, ErrToolUnavailable
	}
	out, err := f.run(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, err
	}
	return parseProbeDuration(string(out))
}

func parseProbeDuration(out string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("unexpected ffprobe duration %q", strings.TrimSpace(out))
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// WritePlaceholderThumbnail writes a dark frame with a light play triangle.
func WritePlaceholderThumbnail(destPath string) error {
	img := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight))
	bg := color.RGBA{R: 45, G: 45, B: 45, A: 255}
	fg := color.RGBA{R: 200, G: 200, B: 200, A: 255}

	cx, cy, h := ThumbnailWidth/2, ThumbnailHeight/2, 30
	for y := 0; y < ThumbnailHeight; y++ {
		for x := 0; x < ThumbnailWidth; x++ {
			img.SetRGBA(x, y, bg)
			// Right-pointing triangle: the half-height shrinks linearly across its width.
			dx, dy := x-(cx-h/2), y-cy
			if dx >= 0 && dx <= h && 2*abs(dy) <= h-dx {
				img.SetRGBA(x, y, fg)
			}
		}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 80}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
