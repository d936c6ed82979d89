// shortforge renders a narrated vertical video from the command line:
// narration text in, one muxed mp4 out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shortforge/shortforge/internal/background"
	"github.com/shortforge/shortforge/internal/caption"
	"github.com/shortforge/shortforge/internal/config"
	"github.com/shortforge/shortforge/internal/engine"
	"github.com/shortforge/shortforge/internal/media"
	"github.com/shortforge/shortforge/internal/models"
	"github.com/shortforge/shortforge/internal/tts"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	text := flag.String("text", "", "narration text")
	textFile := flag.String("text-file", "", "read narration text from a file")
	voice := flag.String("voice", "es-ES-Standard-A", "voice id (see -list-voices)")
	listVoices := flag.Bool("list-voices", false, "print the available voices and exit")
	fontSize := flag.Int("font-size", 0, "caption font size (0 = config default)")
	textColor := flag.String("text-color", "white", "caption text color")
	bgColor := flag.String("bg-color", "black", "canvas color and image letterbox color")
	bgType := flag.String("background", "color", "background variant: none, color, image or video")
	bgSource := flag.String("source", "", "background image/video path or URL")
	stretch := flag.Bool("stretch", false, "stretch a background image instead of letterboxing it")
	out := flag.String("out", "", "output mp4 path (default: <output_dir>/<timestamp>.mp4)")
	flag.Parse()

	if *listVoices {
		for _, id := range models.VoiceIDs() {
			gender, _ := models.VoiceGenderFor(id)
			fmt.Printf("%-22s %s\n", id, gender)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	narration := *text
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			log.Fatalf("Failed to read narration file: %v", err)
		}
		narration = string(data)
	}
	if strings.TrimSpace(narration) == "" {
		log.Fatal("Narration is required: pass -text or -text-file")
	}

	outputPath := *out
	if outputPath == "" {
		outputPath = filepath.Join(cfg.Paths.OutputDir, time.Now().Format("20060102_150405")+".mp4")
	}

	job := models.JobDescriptor{
		Narration:       narration,
		VoiceID:         *voice,
		FontSize:        *fontSize,
		TextColor:       *textColor,
		BackgroundColor: *bgColor,
		Background: models.BackgroundSpec{
			Variant: models.BackgroundVariant(*bgType),
			Source:  *bgSource,
			Stretch: *stretch,
		},
		OutputPath: outputPath,
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to build render engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := eng.Run(ctx, job)
	if !result.Success {
		log.Fatalf("Render failed: %s", result.Message)
	}

	fmt.Printf("Rendered %s (%.2fs, %d segments)\n", result.OutputPath, result.DurationSec, result.Segments)
}

func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	mediaSvc, err := media.New(cfg.Paths.TempDir)
	if err != nil {
		return nil, err
	}

	var provider tts.Provider
	if cfg.TTS.GoogleAPIKey != "" {
		provider = tts.NewGoogleProvider(cfg.TTS.GoogleAPIKey, cfg.TTS.LanguageCode)
	} else {
		provider = tts.NewOpenAIProvider(cfg.TTS.OpenAIAPIKey)
	}

	dispatcher := tts.NewDispatcher(
		provider,
		models.DispatchMode(cfg.Engine.DispatchMode),
		cfg.TTS.MaxRetries,
		time.Duration(cfg.TTS.BackoffBaseSec*float64(time.Second)),
	)

	resolver := background.NewResolver(mediaSvc, mediaSvc)
	captions := caption.NewRenderer(caption.HeuristicMeasurer{}, cfg.Paths.FontPath, cfg.Engine.TextMargin)

	return engine.New(cfg, dispatcher, resolver, mediaSvc, captions), nil
}
