package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrFFmpegNotFound marks a normalization attempt that could not run
// because the ffmpeg binary is not installed. Callers treat this as a
// soft failure.
var ErrFFmpegNotFound = errors.New("ffmpeg binary not found")

// Converter normalizes audio into a format the speech service accepts.
type Converter interface {
	NormalizeToWAV(ctx context.Context, filename string, data []byte) ([]byte, error)
}

// FFmpegConverter shells out to ffmpeg to resample audio to 16 kHz
// signed 16-bit PCM WAV.
type FFmpegConverter struct {
	binary string
}

// NewFFmpegConverter returns a converter using the ffmpeg binary from
// PATH.
func NewFFmpegConverter() *FFmpegConverter {
	return &FFmpegConverter{binary: "ffmpeg"}
}

// NormalizeToWAV writes the audio to a scratch directory, converts it
// and reads the result back.
func (c *FFmpegConverter) NormalizeToWAV(ctx context.Context, filename string, data []byte) ([]byte, error) {
	if _, err := exec.LookPath(c.binary); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}

	tmpDir, err := os.MkdirTemp("", "smartnlp-convert-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, filepath.Base(filename))
	if err := os.WriteFile(inputPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write scratch audio file: %w", err)
	}
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".wav"

	cmd := exec.CommandContext(ctx, c.binary,
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		outputPath, "-y",
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg conversion failed: %v: %s", err, string(output))
	}

	converted, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted audio: %w", err)
	}
	return converted, nil
}
