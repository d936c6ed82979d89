package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries every knob the engine and server read. It is loaded once at
// startup from an optional YAML file, then overridden from the environment,
// and validated before anything runs.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	TTS    TTSConfig    `yaml:"tts"`
	Paths  PathsConfig  `yaml:"paths"`
}

type ServerConfig struct {
	Port               string `yaml:"port"`
	BackendAPIKey      string `yaml:"backend_api_key"`
	CorsAllowedOrigins string `yaml:"cors_allowed_origins"`
	RedisURL           string `yaml:"redis_url"`
	WorkerEnabled      bool   `yaml:"worker_enabled"`
}

type EngineConfig struct {
	SegmentThresholdChars int `yaml:"segment_threshold_chars"`

	// Canvas geometry. Captions are laid out on the caption canvas and
	// composited onto the full video canvas; the outro uses the video canvas.
	CaptionCanvasWidth  int `yaml:"caption_canvas_width"`
	CaptionCanvasHeight int `yaml:"caption_canvas_height"`
	VideoCanvasWidth    int `yaml:"video_canvas_width"`
	VideoCanvasHeight   int `yaml:"video_canvas_height"`
	TextMargin          int `yaml:"text_margin"`
	DefaultFontSize     int `yaml:"default_font_size"`

	DispatchMode string `yaml:"dispatch_mode"` // sequential | fanout

	OutroDurationSec float64 `yaml:"outro_duration_sec"`
	OutroLogoURL     string  `yaml:"outro_logo_url"`
	OutroHeadline    string  `yaml:"outro_headline"`
	OutroSubline     string  `yaml:"outro_subline"`
	OutroFontSize    int     `yaml:"outro_font_size"`

	DimOpacity float64 `yaml:"dim_opacity"` // dark overlay over video backgrounds

	FPS        int    `yaml:"fps"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
	Preset     string `yaml:"preset"`
	Threads    int    `yaml:"threads"`
}

type TTSConfig struct {
	GoogleAPIKey   string  `yaml:"google_api_key"`
	OpenAIAPIKey   string  `yaml:"openai_api_key"`
	LanguageCode   string  `yaml:"language_code"`
	MaxRetries     int     `yaml:"max_retries"`
	BackoffBaseSec float64 `yaml:"backoff_base_sec"`
}

type PathsConfig struct {
	TempDir   string `yaml:"temp_dir"`
	OutputDir string `yaml:"output_dir"`
	FontPath  string `yaml:"font_path"`
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	// .env is a convenience for local dev; ignore errors in production.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			RedisURL:      "redis://localhost:6379",
			WorkerEnabled: true,
		},
		Engine: EngineConfig{
			SegmentThresholdChars: 400,
			CaptionCanvasWidth:    1080,
			CaptionCanvasHeight:   1350,
			VideoCanvasWidth:      1080,
			VideoCanvasHeight:     1920,
			TextMargin:            50,
			DefaultFontSize:       40,
			DispatchMode:          "fanout",
			OutroDurationSec:      5,
			OutroHeadline:         "¡SUSCRÍBETE A LECTOR DE SOMBRAS!",
			OutroSubline:          "Dale like y activa la campana",
			OutroFontSize:         60,
			DimOpacity:            0.5,
			FPS:                   30,
			VideoCodec:            "libx264",
			AudioCodec:            "aac",
			Preset:                "fast",
			Threads:               4,
		},
		TTS: TTSConfig{
			LanguageCode:   "es-ES",
			MaxRetries:     3,
			BackoffBaseSec: 1,
		},
		Paths: PathsConfig{
			TempDir:   "/tmp/shortforge",
			OutputDir: "output",
			FontPath:  "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("API_PORT", cfg.Server.Port)
	cfg.Server.BackendAPIKey = getEnv("BACKEND_API_KEY", cfg.Server.BackendAPIKey)
	cfg.Server.CorsAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.Server.CorsAllowedOrigins)
	cfg.Server.RedisURL = getEnv("REDIS_URL", cfg.Server.RedisURL)
	cfg.Server.WorkerEnabled = getEnvBool("WORKER_ENABLED", cfg.Server.WorkerEnabled)

	cfg.Engine.SegmentThresholdChars = getEnvInt("SEGMENT_THRESHOLD_CHARS", cfg.Engine.SegmentThresholdChars)
	cfg.Engine.DispatchMode = getEnv("DISPATCH_MODE", cfg.Engine.DispatchMode)
	cfg.Engine.OutroLogoURL = getEnv("OUTRO_LOGO_URL", cfg.Engine.OutroLogoURL)
	cfg.Engine.FPS = getEnvInt("VIDEO_FPS", cfg.Engine.FPS)
	cfg.Engine.Preset = getEnv("VIDEO_PRESET", cfg.Engine.Preset)
	cfg.Engine.Threads = getEnvInt("VIDEO_THREADS", cfg.Engine.Threads)

	cfg.TTS.GoogleAPIKey = getEnv("GOOGLE_TTS_API_KEY", cfg.TTS.GoogleAPIKey)
	cfg.TTS.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.TTS.OpenAIAPIKey)
	cfg.TTS.LanguageCode = getEnv("TTS_LANGUAGE_CODE", cfg.TTS.LanguageCode)

	cfg.Paths.TempDir = getEnv("TEMP_DIR", cfg.Paths.TempDir)
	cfg.Paths.OutputDir = getEnv("OUTPUT_DIR", cfg.Paths.OutputDir)
	cfg.Paths.FontPath = getEnv("FONT_PATH", cfg.Paths.FontPath)
}

func (c *Config) validate() error {
	if c.Engine.SegmentThresholdChars <= 0 {
		return fmt.Errorf("segment_threshold_chars must be positive")
	}
	switch c.Engine.DispatchMode {
	case "sequential", "fanout":
	default:
		return fmt.Errorf("dispatch_mode must be sequential or fanout, got %q", c.Engine.DispatchMode)
	}
	if c.Engine.FPS <= 0 {
		return fmt.Errorf("fps must be positive")
	}
	if c.Engine.Threads <= 0 {
		return fmt.Errorf("threads must be positive")
	}
	if c.Engine.OutroDurationSec <= 0 {
		return fmt.Errorf("outro_duration_sec must be positive")
	}
	if c.Engine.DimOpacity < 0 || c.Engine.DimOpacity > 1 {
		return fmt.Errorf("dim_opacity must be within [0,1]")
	}
	if c.TTS.GoogleAPIKey == "" && c.TTS.OpenAIAPIKey == "" {
		return fmt.Errorf("either GOOGLE_TTS_API_KEY or OPENAI_API_KEY is required for speech synthesis")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
