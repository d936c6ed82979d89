package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shortforge/shortforge/internal/background"
	"github.com/shortforge/shortforge/internal/caption"
	"github.com/shortforge/shortforge/internal/config"
	"github.com/shortforge/shortforge/internal/media"
	"github.com/shortforge/shortforge/internal/models"
	"github.com/shortforge/shortforge/internal/segment"
	"github.com/shortforge/shortforge/internal/tempres"
	"github.com/shortforge/shortforge/internal/timeline"
)

func testConfig(tempDir string) *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			SegmentThresholdChars: 400,
			CaptionCanvasWidth:    1080,
			CaptionCanvasHeight:   1350,
			VideoCanvasWidth:      1080,
			VideoCanvasHeight:     1920,
			TextMargin:            50,
			DefaultFontSize:       40,
			DispatchMode:          "sequential",
			OutroDurationSec:      5,
			OutroHeadline:         "¡SUSCRÍBETE!",
			OutroSubline:          "Dale like",
			OutroFontSize:         60,
			DimOpacity:            0.5,
			FPS:                   30,
			VideoCodec:            "libx264",
			AudioCodec:            "aac",
			Preset:                "fast",
			Threads:               4,
		},
		Paths: config.PathsConfig{TempDir: tempDir, OutputDir: tempDir},
	}
}

type fakeSynth struct {
	err   error
	calls int
}

func (f *fakeSynth) SynthesizeAll(ctx context.Context, segs []segment.Segment, voiceID string, gender models.VoiceGender) ([][]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]byte, len(segs))
	for i, s := range segs {
		out[i] = []byte("mp3:" + s.Text)
	}
	return out, nil
}

type fakeResolver struct {
	layer    background.Layer
	assetErr error
}

func (f *fakeResolver) Resolve(ctx context.Context, spec models.BackgroundSpec, canvasColor string, reg *tempres.Manager) background.Layer {
	if f.layer.Variant == "" {
		return background.Layer{Variant: models.BackgroundColor, Color: canvasColor}
	}
	return f.layer
}

func (f *fakeResolver) FetchAsset(ctx context.Context, source, label string, reg *tempres.Manager) (string, error) {
	if f.assetErr != nil {
		return "", f.assetErr
	}
	return "/tmp/logo.png", nil
}

type renderedClip struct {
	kind      string
	offset    float64
	duration  float64
	filter    string
	audioPath string
}

type fakeEncoder struct {
	dir string

	durations []float64 // successive Duration() results
	durCall   int

	renderErr error // injected into every segment render
	outroErr  error
	concatErr error

	clips       []renderedClip
	outroFilter string
	outroLogo   string
	concatInput []string
}

func (f *fakeEncoder) TempFile(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *fakeEncoder) Duration(ctx context.Context, mediaPath string) (float64, error) {
	d := f.durations[f.durCall%len(f.durations)]
	f.durCall++
	return d, nil
}

func (f *fakeEncoder) write(path string) error {
	return os.WriteFile(path, []byte("clip"), 0o644)
}

func (f *fakeEncoder) RenderColorSegment(ctx context.Context, color, textFilter, audioPath string, durationSec float64, opts media.EncodeOptions, outputPath string) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	f.clips = append(f.clips, renderedClip{kind: "color", duration: durationSec, filter: textFilter, audioPath: audioPath})
	return f.write(outputPath)
}

func (f *fakeEncoder) RenderImageSegment(ctx context.Context, imagePath, fitFilter, textFilter, audioPath string, durationSec float64, opts media.EncodeOptions, outputPath string) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	f.clips = append(f.clips, renderedClip{kind: "image", duration: durationSec, filter: fitFilter + "|" + textFilter, audioPath: audioPath})
	return f.write(outputPath)
}

func (f *fakeEncoder) RenderVideoSegment(ctx context.Context, videoPath string, offsetSec float64, loops int, videoFilter, audioPath string, durationSec float64, opts media.EncodeOptions, outputPath string) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	f.clips = append(f.clips, renderedClip{kind: "video", offset: offsetSec, duration: durationSec, filter: videoFilter, audioPath: audioPath})
	return f.write(outputPath)
}

func (f *fakeEncoder) RenderOutro(ctx context.Context, color, logoPath, textFilter string, durationSec float64, opts media.EncodeOptions, outputPath string) error {
	if f.outroErr != nil {
		return f.outroErr
	}
	f.outroFilter = textFilter
	f.outroLogo = logoPath
	return f.write(outputPath)
}

func (f *fakeEncoder) Concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	if f.concatErr != nil {
		return f.concatErr
	}
	f.concatInput = append([]string{}, clipPaths...)
	return f.write(outputPath)
}

func newTestEngine(t *testing.T, enc *fakeEncoder, synth *fakeSynth, resolver *fakeResolver) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	enc.dir = dir
	if enc.durations == nil {
		enc.durations = []float64{2.5}
	}
	cfg := testConfig(dir)
	captions := caption.NewRenderer(caption.HeuristicMeasurer{}, "", cfg.Engine.TextMargin)
	return New(cfg, synth, resolver, enc, captions), dir
}

func testJob(dir string) models.JobDescriptor {
	return models.JobDescriptor{
		Narration:  "El faro llevaba diez años apagado. Nadie subía ya la escalera de caracol.",
		VoiceID:    "es-ES-Standard-A",
		OutputPath: filepath.Join(dir, "out", "final.mp4"),
	}
}

func TestRunAssemblesFullVideo(t *testing.T) {
	enc := &fakeEncoder{durations: []float64{3.25}}
	eng, dir := newTestEngine(t, enc, &fakeSynth{}, &fakeResolver{})

	res := eng.Run(context.Background(), testJob(dir))

	if !res.Success {
		t.Fatalf("run failed: %s", res.Message)
	}
	if res.Segments != 1 {
		t.Errorf("expected 1 narration segment, got %d", res.Segments)
	}
	// One narration entry plus the 5s outro.
	if want := 3.25 + 5; math.Abs(res.DurationSec-want) > timeline.Epsilon {
		t.Errorf("total duration = %v, want %v", res.DurationSec, want)
	}
	if _, err := os.Stat(res.OutputPath); err != nil {
		t.Errorf("final video missing: %v", err)
	}
	if len(enc.concatInput) != 2 {
		t.Errorf("expected 2 clips in concat (segment + outro), got %d", len(enc.concatInput))
	}
}

func TestRunCleansTempFilesOnSuccess(t *testing.T) {
	enc := &fakeEncoder{}
	eng, dir := newTestEngine(t, enc, &fakeSynth{}, &fakeResolver{})

	res := eng.Run(context.Background(), testJob(dir))
	if !res.Success {
		t.Fatalf("run failed: %s", res.Message)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "out" {
			t.Errorf("temp file survived the run: %s", e.Name())
		}
	}
}

func TestRunCleansTempFilesOnFailure(t *testing.T) {
	enc := &fakeEncoder{concatErr: errors.New("muxer exploded")}
	eng, dir := newTestEngine(t, enc, &fakeSynth{}, &fakeResolver{})

	res := eng.Run(context.Background(), testJob(dir))
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "concatenate") {
		t.Errorf("failure message should name the stage: %q", res.Message)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("temp file survived the failed run: %s", e.Name())
	}
}

func TestRunRejectsUnknownVoice(t *testing.T) {
	enc := &fakeEncoder{}
	synth := &fakeSynth{}
	eng, dir := newTestEngine(t, enc, synth, &fakeResolver{})

	job := testJob(dir)
	job.VoiceID = "en-US-Wavenet-Z"

	res := eng.Run(context.Background(), job)
	if res.Success {
		t.Fatal("expected validation failure")
	}
	if synth.calls != 0 {
		t.Errorf("synthesis must not run for an invalid job")
	}
}

func TestRunReportsSynthesisFailure(t *testing.T) {
	enc := &fakeEncoder{}
	eng, dir := newTestEngine(t, enc, &fakeSynth{err: errors.New("quota exhausted")}, &fakeResolver{})

	res := eng.Run(context.Background(), dirJobWithLongText(dir))
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "synthesize") || !strings.Contains(res.Message, "quota exhausted") {
		t.Errorf("message should carry stage and cause: %q", res.Message)
	}
}

func dirJobWithLongText(dir string) models.JobDescriptor {
	j := testJob(dir)
	j.Narration = "Una frase. Otra frase. Y una más."
	return j
}

func TestVideoBackgroundOffsetsContinueAcrossSegments(t *testing.T) {
	enc := &fakeEncoder{durations: []float64{3, 4}}
	resolver := &fakeResolver{layer: background.Layer{
		Variant:          models.BackgroundVideo,
		Color:            "black",
		VideoPath:        "/tmp/bg.mp4",
		VideoDurationSec: 5,
		SrcW:             1920,
		SrcH:             1080,
	}}
	eng, dir := newTestEngine(t, enc, &fakeSynth{}, resolver)

	job := testJob(dir)
	// Two segments: the threshold is big, so force two sentences past it.
	job.Narration = strings.Repeat("palabra ", 60) + "final. Segunda parte corta."

	res := eng.Run(context.Background(), job)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Message)
	}
	if len(enc.clips) != 2 {
		t.Fatalf("expected 2 video clips, got %d", len(enc.clips))
	}
	if enc.clips[0].offset != 0 {
		t.Errorf("first segment should start the footage at 0, got %v", enc.clips[0].offset)
	}
	// Second segment starts at 3s into a 5s loop.
	if math.Abs(enc.clips[1].offset-3) > timeline.Epsilon {
		t.Errorf("second segment offset = %v, want 3", enc.clips[1].offset)
	}
	for _, c := range enc.clips {
		if c.kind != "video" {
			t.Errorf("expected video render, got %s", c.kind)
		}
		if !strings.Contains(c.filter, "drawbox=c=black@0.50:t=fill") {
			t.Errorf("video segment missing dim layer: %q", c.filter)
		}
		if !strings.Contains(c.filter, "crop=1080:1920:") {
			t.Errorf("video segment missing cover crop: %q", c.filter)
		}
	}
}

func TestImageBackgroundUsesFitFilter(t *testing.T) {
	enc := &fakeEncoder{}
	resolver := &fakeResolver{layer: background.Layer{
		Variant:   models.BackgroundImage,
		Color:     "navy",
		ImagePath: "/tmp/photo.jpg",
	}}
	eng, dir := newTestEngine(t, enc, &fakeSynth{}, resolver)

	res := eng.Run(context.Background(), testJob(dir))
	if !res.Success {
		t.Fatalf("run failed: %s", res.Message)
	}
	if len(enc.clips) != 1 || enc.clips[0].kind != "image" {
		t.Fatalf("expected one image clip, got %+v", enc.clips)
	}
	if !strings.Contains(enc.clips[0].filter, "force_original_aspect_ratio=decrease") {
		t.Errorf("image fit filter missing: %q", enc.clips[0].filter)
	}
}

func TestOutroRendersWithoutLogoWhenFetchFails(t *testing.T) {
	enc := &fakeEncoder{}
	resolver := &fakeResolver{assetErr: errors.New("cdn down")}
	eng, dir := newTestEngine(t, enc, &fakeSynth{}, resolver)

	cfgEngine := &eng.cfg.Engine
	cfgEngine.OutroLogoURL = "https://example.com/logo.png"

	res := eng.Run(context.Background(), testJob(dir))
	if !res.Success {
		t.Fatalf("logo failure must not fail the run: %s", res.Message)
	}
	if enc.outroLogo != "" {
		t.Errorf("expected no logo, got %q", enc.outroLogo)
	}
	if !strings.Contains(enc.outroFilter, "SUSCRÍBETE") {
		t.Errorf("outro headline missing from filter: %q", enc.outroFilter)
	}
}

func TestDefaultsAppliedToSparseJob(t *testing.T) {
	enc := &fakeEncoder{}
	eng, dir := newTestEngine(t, enc, &fakeSynth{}, &fakeResolver{})

	job := testJob(dir) // no font size, colors, or background set
	res := eng.Run(context.Background(), job)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Message)
	}
	if len(enc.clips) != 1 {
		t.Fatalf("expected one clip, got %d", len(enc.clips))
	}
	if !strings.Contains(enc.clips[0].filter, "fontsize=40") {
		t.Errorf("default font size not applied: %q", enc.clips[0].filter)
	}
	if !strings.Contains(enc.clips[0].filter, "fontcolor=white") {
		t.Errorf("default text color not applied: %q", enc.clips[0].filter)
	}
}
