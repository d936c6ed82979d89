package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithEnvKey(t *testing.T) {
	t.Setenv("GOOGLE_TTS_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.SegmentThresholdChars != 400 {
		t.Errorf("threshold: got %d", cfg.Engine.SegmentThresholdChars)
	}
	if cfg.Engine.VideoCanvasWidth != 1080 || cfg.Engine.VideoCanvasHeight != 1920 {
		t.Errorf("video canvas: %dx%d", cfg.Engine.VideoCanvasWidth, cfg.Engine.VideoCanvasHeight)
	}
	if cfg.Engine.FPS != 30 || cfg.Engine.VideoCodec != "libx264" || cfg.Engine.Preset != "fast" {
		t.Errorf("encode defaults: %+v", cfg.Engine)
	}
	if cfg.Engine.DispatchMode != "fanout" {
		t.Errorf("dispatch mode: %s", cfg.Engine.DispatchMode)
	}
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
engine:
  segment_threshold_chars: 300
  dispatch_mode: sequential
  fps: 24
tts:
  google_api_key: from-yaml
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SEGMENT_THRESHOLD_CHARS", "350")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.SegmentThresholdChars != 350 {
		t.Errorf("env should override yaml: got %d", cfg.Engine.SegmentThresholdChars)
	}
	if cfg.Engine.DispatchMode != "sequential" || cfg.Engine.FPS != 24 {
		t.Errorf("yaml values not applied: %+v", cfg.Engine)
	}
	if cfg.TTS.GoogleAPIKey != "from-yaml" {
		t.Errorf("yaml tts key not applied")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no tts provider", map[string]string{}, "required for speech synthesis"},
		{"bad dispatch mode", map[string]string{
			"GOOGLE_TTS_API_KEY": "k",
			"DISPATCH_MODE":      "parallel-ish",
		}, "dispatch_mode"},
		{"bad fps", map[string]string{
			"GOOGLE_TTS_API_KEY": "k",
			"VIDEO_FPS":          "-1",
		}, "fps"},
		{"bad threshold", map[string]string{
			"GOOGLE_TTS_API_KEY":      "k",
			"SEGMENT_THRESHOLD_CHARS": "0",
		}, "segment_threshold_chars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("GOOGLE_TTS_API_KEY")
			os.Unsetenv("OPENAI_API_KEY")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
