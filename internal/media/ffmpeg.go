// Package media shells out to ffmpeg and ffprobe for probing, per-segment
// clip rendering, the outro card, and the final stream-copy concatenation.
package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Outro logo placement, top-left corner.
const (
	logoSize   = 150
	logoMargin = 20
)

// EncodeOptions are the shared encoder settings applied to every rendered
// clip. Clips must be encoded identically or the stream-copy concat breaks.
type EncodeOptions struct {
	Width      int
	Height     int
	FPS        int
	VideoCodec string
	AudioCodec string
	Preset     string
	Threads    int
}

type Service struct {
	tempDir string
}

func New(tempDir string) (*Service, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &Service{tempDir: tempDir}, nil
}

// TempFile returns a path for a scratch file in the service's temp directory.
func (s *Service) TempFile(filename string) string {
	return filepath.Join(s.tempDir, filename)
}

// Duration returns the container duration of a media file in seconds.
func (s *Service) Duration(ctx context.Context, mediaPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return durationSec, nil
}

// Dimensions returns the pixel size of the first video stream.
func (s *Service) Dimensions(ctx context.Context, mediaPath string) (int, int, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		mediaPath,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe dimensions failed: %w", err)
	}

	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("failed to parse dimensions: %w", err)
	}
	return w, h, nil
}

// RenderColorSegment renders one narration segment over a flat color canvas.
// textFilter is the prebuilt drawtext chain for the caption block.
func (s *Service) RenderColorSegment(ctx context.Context, color, textFilter, audioPath string, durationSec float64, opts EncodeOptions, outputPath string) error {
	log.Printf("[ffmpeg] color segment (%.2fs) -> %s", durationSec, outputPath)

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", color, opts.Width, opts.Height, opts.FPS),
		"-i", audioPath,
	}
	if textFilter != "" {
		args = append(args, "-vf", textFilter)
	}
	args = append(args,
		"-map", "0:v", "-map", "1:a",
		"-t", formatSeconds(durationSec),
	)
	args = append(args, encodeArgs(opts)...)
	args = append(args, "-y", outputPath)

	return s.run(ctx, "render color segment", args)
}

// RenderImageSegment renders one segment over a still image. fitFilter maps
// the image onto the canvas; the caption chain is appended after it.
func (s *Service) RenderImageSegment(ctx context.Context, imagePath, fitFilter, textFilter, audioPath string, durationSec float64, opts EncodeOptions, outputPath string) error {
	log.Printf("[ffmpeg] image segment (%.2fs) -> %s", durationSec, outputPath)

	vf := fitFilter
	if textFilter != "" {
		vf += "," + textFilter
	}

	args := []string{
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-vf", vf,
		"-map", "0:v", "-map", "1:a",
		"-t", formatSeconds(durationSec),
	}
	args = append(args, encodeArgs(opts)...)
	args = append(args, "-y", outputPath)

	return s.run(ctx, "render image segment", args)
}

// RenderVideoSegment renders one segment over a looping background video.
// offsetSec is the seek position within the clip so consecutive segments
// continue the footage instead of restarting it, and loops extra playthroughs
// cover segments longer than the clip. videoFilter carries the cover crop,
// the dim layer, and the caption chain.
func (s *Service) RenderVideoSegment(ctx context.Context, videoPath string, offsetSec float64, loops int, videoFilter, audioPath string, durationSec float64, opts EncodeOptions, outputPath string) error {
	log.Printf("[ffmpeg] video segment (%.2fs at offset %.2fs) -> %s", durationSec, offsetSec, outputPath)

	args := []string{
		"-stream_loop", strconv.Itoa(loops),
		"-ss", formatSeconds(offsetSec),
		"-i", videoPath,
		"-i", audioPath,
		"-vf", videoFilter,
		"-map", "0:v", "-map", "1:a",
		"-t", formatSeconds(durationSec),
	}
	args = append(args, encodeArgs(opts)...)
	args = append(args, "-y", outputPath)

	return s.run(ctx, "render video segment", args)
}

// RenderOutro renders the closing promo card: a flat color canvas, an
// optional logo in the top-left corner, the headline drawtext chain, and a
// silent audio track so the clip concatenates cleanly with voiced segments.
func (s *Service) RenderOutro(ctx context.Context, color, logoPath, textFilter string, durationSec float64, opts EncodeOptions, outputPath string) error {
	log.Printf("[ffmpeg] outro card (%.2fs) -> %s", durationSec, outputPath)

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", color, opts.Width, opts.Height, opts.FPS),
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
	}

	var filter string
	if logoPath != "" {
		args = append(args, "-i", logoPath)
		filter = fmt.Sprintf("[2:v]scale=%d:%d[logo];[0:v][logo]overlay=%d:%d", logoSize, logoSize, logoMargin, logoMargin)
		if textFilter != "" {
			filter += "," + textFilter
		}
		filter += "[v]"
	} else {
		if textFilter == "" {
			textFilter = "null"
		}
		filter = "[0:v]" + textFilter + "[v]"
	}

	args = append(args,
		"-filter_complex", filter,
		"-map", "[v]", "-map", "1:a",
		"-t", formatSeconds(durationSec),
	)
	args = append(args, encodeArgs(opts)...)
	args = append(args, "-y", outputPath)

	return s.run(ctx, "render outro", args)
}

// Concatenate joins the rendered clips in order with the concat demuxer.
// Streams are copied, not re-encoded, so this is fast and lossless.
func (s *Service) Concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := filepath.Join(s.tempDir, "concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	for _, clip := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", strings.ReplaceAll(clip, "'", `'\''`))
	}
	f.Close()
	defer os.Remove(listPath)

	log.Printf("[ffmpeg] concatenating %d clips -> %s", len(clipPaths), outputPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outputPath,
	}

	return s.run(ctx, "concatenate", args)
}

func (s *Service) run(ctx context.Context, what string, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w", what, err)
	}
	return nil
}

func encodeArgs(opts EncodeOptions) []string {
	return []string{
		"-c:v", opts.VideoCodec,
		"-preset", opts.Preset,
		"-threads", strconv.Itoa(opts.Threads),
		"-r", strconv.Itoa(opts.FPS),
		"-pix_fmt", "yuv420p",
		"-c:a", opts.AudioCodec,
		"-b:a", "192k",
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
