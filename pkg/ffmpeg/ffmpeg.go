package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MediaTool wraps the external encode/probe binaries. All methods shell out
// and block until the tool exits; callers dispatch on their own goroutines.
type MediaTool interface {
	Duration(ctx context.Context, path string) (float64, error)
	Cut(ctx context.Context, srcPath, dstPath string, startOffset, duration float64) error
	Thumbnail(ctx context.Context, srcPath, dstPath string, offsetSeconds float64) error
	Available(ctx context.Context) (bool, string)
}

type tool struct{}

func New() MediaTool {
	return tool{}
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (tool) Duration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probed probeFormat
	if err := json.Unmarshal(out, &probed); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(probed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", probed.Format.Duration, err)
	}
	return seconds, nil
}

func (tool) Cut(ctx context.Context, srcPath, dstPath string, startOffset, duration float64) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", CutArgs(srcPath, dstPath, startOffset, duration)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg cut %s: %w: %s", srcPath, err, tail(out))
	}
	return nil
}

func (tool) Thumbnail(ctx context.Context, srcPath, dstPath string, offsetSeconds float64) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", ThumbnailArgs(srcPath, dstPath, offsetSeconds)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail %s: %w: %s", srcPath, err, tail(out))
	}
	return nil
}

// Available reports whether the ffmpeg binary can be invoked, plus its
// version banner for the health endpoint.
func (tool) Available(ctx context.Context) (bool, string) {
	out, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return false, ""
	}
	version, _, _ := strings.Cut(string(out), "\n")
	return true, version
}

func CutArgs(srcPath, dstPath string, startOffset, duration float64) []string {
	return []string{
		"-y", "-i", srcPath,
		"-ss", formatSeconds(startOffset),
		"-t", formatSeconds(duration),
		"-c:v", "libx264", "-c:a", "aac",
		"-preset", "fast", "-crf", "23",
		dstPath,
	}
}

func ThumbnailArgs(srcPath, dstPath string, offsetSeconds float64) []string {
	return []string{
		"-y", "-i", srcPath,
		"-ss", formatSeconds(offsetSeconds),
		"-vframes", "1",
		"-vf", "scale=320:-1",
		dstPath,
	}
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

func tail(out []byte) string {
	const max = 512
	if len(out) <= max {
		return string(out)
	}
	return string(out[len(out)-max:])
}
