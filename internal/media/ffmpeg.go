package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MimeLyc/media-subtitle-translator/pkg/log"
)

const (
	audioSampleRate = "16000"
	audioChannels   = "1"
	audioCodec      = "pcm_s16le"
)

type ffmpeg struct {
	binDir     string
	ffmpegCmd  string
	ffprobeCmd string
}

func NewFfmpeg(
	binDir string,
) ffmpeg {
	return ffmpeg{
		binDir:     binDir,
		ffmpegCmd:  "ffmpeg",
		ffprobeCmd: "ffprobe",
	}
}

func (ff ffmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmdPath, err := ff.lookPath(ff.ffprobeCmd)
	if err != nil {
		return 0, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cmdPath, ff.probeDurationArgs(path)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	raw := strings.TrimSpace(stdout.String())
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unexpected duration output %q: %w", path, raw, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("ffprobe %s: negative duration %v", path, duration)
	}
	return duration, nil
}

func (ff ffmpeg) ExtractAudio(ctx context.Context, src string, dest string) error {
	cmdPath, err := ff.lookPath(ff.ffmpegCmd)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, cmdPath, ff.extractAudioArgs(src, dest)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn("Failed to remove partial audio %s: %v", dest, rmErr)
		}
		return fmt.Errorf("ffmpeg extract %s: %w: %s", src, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (ff ffmpeg) lookPath(name string) (string, error) {
	if ff.binDir != "" {
		name = filepath.Join(ff.binDir, name)
	}
	cmdPath, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", name, err)
	}
	return cmdPath, nil
}

func (ffmpeg) probeDurationArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

func (ffmpeg) extractAudioArgs(src string, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-ac", audioChannels,
		"-ar", audioSampleRate,
		"-c:a", audioCodec,
		dest,
	}
}
