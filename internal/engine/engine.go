// Package engine runs the full assembly pipeline: narration segmentation,
// speech synthesis, background resolution, per-segment clip rendering, the
// outro card, and the final concatenation into one mp4.
package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shortforge/shortforge/internal/background"
	"github.com/shortforge/shortforge/internal/caption"
	"github.com/shortforge/shortforge/internal/config"
	"github.com/shortforge/shortforge/internal/media"
	"github.com/shortforge/shortforge/internal/models"
	"github.com/shortforge/shortforge/internal/segment"
	"github.com/shortforge/shortforge/internal/tempres"
	"github.com/shortforge/shortforge/internal/timeline"
)

// The outro card is a fixed promo: red canvas, logo top-left, headline text.
const outroColor = "red"

// Vertical gap between the outro headline block and the subline block.
const outroSublineGap = 20.0

// Synthesizer voices narration segments. Implemented by tts.Dispatcher.
type Synthesizer interface {
	SynthesizeAll(ctx context.Context, segs []segment.Segment, voiceID string, gender models.VoiceGender) ([][]byte, error)
}

// BackgroundResolver localizes and probes background sources and assets.
type BackgroundResolver interface {
	Resolve(ctx context.Context, spec models.BackgroundSpec, canvasColor string, reg *tempres.Manager) background.Layer
	FetchAsset(ctx context.Context, source, label string, reg *tempres.Manager) (string, error)
}

// Encoder is the rendering backend. Implemented by media.Service.
type Encoder interface {
	TempFile(name string) string
	Duration(ctx context.Context, mediaPath string) (float64, error)
	RenderColorSegment(ctx context.Context, color, textFilter, audioPath string, durationSec float64, opts media.EncodeOptions, outputPath string) error
	RenderImageSegment(ctx context.Context, imagePath, fitFilter, textFilter, audioPath string, durationSec float64, opts media.EncodeOptions, outputPath string) error
	RenderVideoSegment(ctx context.Context, videoPath string, offsetSec float64, loops int, videoFilter, audioPath string, durationSec float64, opts media.EncodeOptions, outputPath string) error
	RenderOutro(ctx context.Context, color, logoPath, textFilter string, durationSec float64, opts media.EncodeOptions, outputPath string) error
	Concatenate(ctx context.Context, clipPaths []string, outputPath string) error
}

type Engine struct {
	cfg         *config.Config
	synth       Synthesizer
	backgrounds BackgroundResolver
	enc         Encoder
	captions    *caption.Renderer
}

func New(cfg *config.Config, synth Synthesizer, backgrounds BackgroundResolver, enc Encoder, captions *caption.Renderer) *Engine {
	return &Engine{
		cfg:         cfg,
		synth:       synth,
		backgrounds: backgrounds,
		enc:         enc,
		captions:    captions,
	}
}

// Run executes one job end to end. It never panics out and never returns an
// error value; every outcome is folded into the RunResult so queue workers
// and the CLI share one reporting path.
func (e *Engine) Run(ctx context.Context, job models.JobDescriptor) (result models.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[engine] panic during render: %v", r)
			result = models.RunResult{Success: false, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	outputPath, totalSec, segments, err := e.assemble(ctx, job)
	if err != nil {
		log.Printf("[engine] render failed: %v", err)
		return models.RunResult{Success: false, Message: err.Error()}
	}

	log.Printf("[engine] render complete: %s (%.2fs, %d segments)", outputPath, totalSec, segments)
	return models.RunResult{
		Success:     true,
		Message:     "render complete",
		OutputPath:  outputPath,
		DurationSec: totalSec,
		Segments:    segments,
	}
}

func (e *Engine) assemble(ctx context.Context, job models.JobDescriptor) (string, float64, int, error) {
	applyDefaults(&job, &e.cfg.Engine)

	if err := job.Validate(); err != nil {
		return "", 0, 0, stageErr("validate", err)
	}

	reg := tempres.NewManager()
	defer reg.ReleaseAll()

	runID := uuid.NewString()[:8]

	segs, err := segment.Split(job.Narration, e.cfg.Engine.SegmentThresholdChars)
	if err != nil {
		return "", 0, 0, stageErr("segment", err)
	}
	log.Printf("[engine] narration split into %d segments", len(segs))

	gender, _ := models.VoiceGenderFor(job.VoiceID)
	audio, err := e.synth.SynthesizeAll(ctx, segs, job.VoiceID, gender)
	if err != nil {
		return "", 0, 0, stageErr("synthesize", err)
	}

	audioPaths, durations, err := e.writeSegmentAudio(ctx, runID, audio, reg)
	if err != nil {
		return "", 0, 0, err
	}

	layer := e.backgrounds.Resolve(ctx, job.Background, job.BackgroundColor, reg)

	tl, err := e.renderClips(ctx, job, runID, segs, audioPaths, durations, layer, reg)
	if err != nil {
		return "", 0, 0, err
	}

	if err := tl.Validate(); err != nil {
		return "", 0, 0, stageErr("timeline", err)
	}

	clips := make([]string, len(tl.Entries))
	for i, entry := range tl.Entries {
		clips[i] = entry.ClipPath
	}
	finalPath := e.enc.TempFile(runID + "_final.mp4")
	reg.RegisterFile(finalPath)
	if err := e.enc.Concatenate(ctx, clips, finalPath); err != nil {
		return "", 0, 0, stageErr("concatenate", err)
	}

	if err := moveFile(finalPath, job.OutputPath); err != nil {
		return "", 0, 0, stageErr("publish", err)
	}

	return job.OutputPath, tl.TotalDuration(), len(segs), nil
}

// writeSegmentAudio persists the synthesized audio to temp files and probes
// each one, returning per-segment paths and durations.
func (e *Engine) writeSegmentAudio(ctx context.Context, runID string, audio [][]byte, reg *tempres.Manager) ([]string, []float64, error) {
	paths := make([]string, len(audio))
	durations := make([]float64, len(audio))

	for i, data := range audio {
		path := e.enc.TempFile(fmt.Sprintf("%s_seg_%03d.mp3", runID, i))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, nil, stageErr("audio", fmt.Errorf("write segment %d audio: %w", i, err))
		}
		reg.RegisterFile(path)

		dur, err := e.enc.Duration(ctx, path)
		if err != nil {
			return nil, nil, stageErr("audio", fmt.Errorf("probe segment %d: %w", i, err))
		}
		if dur <= 0 {
			return nil, nil, stageErr("audio", fmt.Errorf("segment %d has non-positive duration %.3f", i, dur))
		}
		paths[i] = path
		durations[i] = dur
	}
	return paths, durations, nil
}

// renderClips renders one clip per segment plus the outro, accumulating the
// frame-accurate timeline as it goes.
func (e *Engine) renderClips(ctx context.Context, job models.JobDescriptor, runID string, segs []segment.Segment, audioPaths []string, durations []float64, layer background.Layer, reg *tempres.Manager) (timeline.Timeline, error) {
	ec := &e.cfg.Engine
	opts := media.EncodeOptions{
		Width:      ec.VideoCanvasWidth,
		Height:     ec.VideoCanvasHeight,
		FPS:        ec.FPS,
		VideoCodec: ec.VideoCodec,
		AudioCodec: ec.AudioCodec,
		Preset:     ec.Preset,
		Threads:    ec.Threads,
	}

	// The caption canvas sits vertically centered inside the video canvas.
	captionYOffset := float64(ec.VideoCanvasHeight-ec.CaptionCanvasHeight) / 2

	builder := timeline.NewBuilder()
	for i, seg := range segs {
		if err := ctx.Err(); err != nil {
			return timeline.Timeline{}, stageErr("render", err)
		}

		layout := e.captions.Layout(seg.Text, ec.CaptionCanvasWidth, ec.CaptionCanvasHeight, job.FontSize)
		textFilter := e.captions.DrawtextFilter(layout, job.TextColor, captionYOffset)

		clipPath := e.enc.TempFile(fmt.Sprintf("%s_clip_%03d.mp4", runID, i))
		reg.RegisterFile(clipPath)

		dur := durations[i]
		var err error
		switch layer.Variant {
		case models.BackgroundImage:
			fit := background.ImageFilter(ec.VideoCanvasWidth, ec.VideoCanvasHeight, layer.Stretch, layer.Color)
			err = e.enc.RenderImageSegment(ctx, layer.ImagePath, fit, textFilter, audioPaths[i], dur, opts, clipPath)

		case models.BackgroundVideo:
			// Consecutive segments continue the footage from where the
			// previous one left off, wrapping at the clip's end.
			offset := math.Mod(builder.Cursor(), layer.VideoDurationSec)
			loops := int((offset+dur)/layer.VideoDurationSec) + 1
			filter := background.CoverFilter(layer.SrcW, layer.SrcH, ec.VideoCanvasWidth, ec.VideoCanvasHeight)
			filter += fmt.Sprintf(",drawbox=c=black@%.2f:t=fill", ec.DimOpacity)
			if textFilter != "" {
				filter += "," + textFilter
			}
			err = e.enc.RenderVideoSegment(ctx, layer.VideoPath, offset, loops, filter, audioPaths[i], dur, opts, clipPath)

		default:
			err = e.enc.RenderColorSegment(ctx, layer.Color, textFilter, audioPaths[i], dur, opts, clipPath)
		}
		if err != nil {
			return timeline.Timeline{}, stageErr("render", fmt.Errorf("segment %d: %w", i, err))
		}

		builder.Add(seg.Index, dur, seg.Text, audioPaths[i], clipPath)
	}

	outroPath, err := e.renderOutro(ctx, runID, opts, reg)
	if err != nil {
		return timeline.Timeline{}, err
	}
	builder.Add(timeline.OutroIndex, ec.OutroDurationSec, ec.OutroHeadline, "", outroPath)

	return builder.Build(), nil
}

func (e *Engine) renderOutro(ctx context.Context, runID string, opts media.EncodeOptions, reg *tempres.Manager) (string, error) {
	ec := &e.cfg.Engine

	logoPath := ""
	if ec.OutroLogoURL != "" {
		local, err := e.backgrounds.FetchAsset(ctx, ec.OutroLogoURL, runID+"_logo", reg)
		if err != nil {
			log.Printf("[engine] outro logo unavailable (%v), rendering without it", err)
		} else {
			logoPath = local
		}
	}

	headline := e.captions.Layout(ec.OutroHeadline, ec.VideoCanvasWidth, ec.VideoCanvasHeight, ec.OutroFontSize)
	textFilter := e.captions.DrawtextFilter(headline, "white", 0)
	if ec.OutroSubline != "" {
		subline := e.captions.Layout(ec.OutroSubline, ec.VideoCanvasWidth, ec.VideoCanvasHeight, ec.OutroFontSize/2)
		offset := headline.StartY + headline.BlockHeight() + outroSublineGap - subline.StartY
		if sub := e.captions.DrawtextFilter(subline, "white", offset); sub != "" {
			textFilter += "," + sub
		}
	}

	outroPath := e.enc.TempFile(runID + "_outro.mp4")
	reg.RegisterFile(outroPath)
	if err := e.enc.RenderOutro(ctx, outroColor, logoPath, textFilter, ec.OutroDurationSec, opts, outroPath); err != nil {
		return "", stageErr("outro", err)
	}
	return outroPath, nil
}

func applyDefaults(job *models.JobDescriptor, ec *config.EngineConfig) {
	if job.FontSize == 0 {
		job.FontSize = ec.DefaultFontSize
	}
	if job.TextColor == "" {
		job.TextColor = "white"
	}
	if job.BackgroundColor == "" {
		job.BackgroundColor = "black"
	}
	if job.Background.Variant == "" {
		job.Background.Variant = models.BackgroundColor
	}
}

// moveFile renames the finished render into place, copying when the temp dir
// and the output dir live on different filesystems.
func moveFile(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open rendered file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy rendered file: %w", err)
	}
	return out.Close()
}
