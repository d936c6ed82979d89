package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shortforge/shortforge/internal/api"
	"github.com/shortforge/shortforge/internal/background"
	"github.com/shortforge/shortforge/internal/caption"
	"github.com/shortforge/shortforge/internal/config"
	"github.com/shortforge/shortforge/internal/engine"
	"github.com/shortforge/shortforge/internal/media"
	"github.com/shortforge/shortforge/internal/models"
	"github.com/shortforge/shortforge/internal/queue"
	"github.com/shortforge/shortforge/internal/tts"
	"github.com/shortforge/shortforge/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	log.Println("Starting shortforge API...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	q, err := queue.New(cfg.Server.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	handler := api.NewHandler(q, cfg)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.Server.BackendAPIKey,
		CorsAllowedOrigins: cfg.Server.CorsAllowedOrigins,
	})

	if cfg.Server.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	var workerCancel context.CancelFunc
	if cfg.Server.WorkerEnabled {
		log.Println("Worker enabled, starting render processing...")

		eng, err := buildEngine(cfg)
		if err != nil {
			log.Fatalf("Failed to build render engine: %v", err)
		}

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go worker.New(q, eng).Start(workerCtx)
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if workerCancel != nil {
		workerCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	mediaSvc, err := media.New(cfg.Paths.TempDir)
	if err != nil {
		return nil, err
	}

	var provider tts.Provider
	if cfg.TTS.GoogleAPIKey != "" {
		provider = tts.NewGoogleProvider(cfg.TTS.GoogleAPIKey, cfg.TTS.LanguageCode)
		log.Println("TTS provider: Google Cloud Text-to-Speech")
	} else {
		provider = tts.NewOpenAIProvider(cfg.TTS.OpenAIAPIKey)
		log.Println("TTS provider: OpenAI (fallback)")
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
