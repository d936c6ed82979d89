package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shortforge/shortforge/internal/models"
)

// OpenAIProvider is the fallback synthesis provider, used when no Google TTS
// key is configured. Catalog voice ids have no OpenAI equivalent, so the
// voice is chosen from the catalog gender.
type OpenAIProvider struct {
	client *openai.Client
}

var _ Provider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey)}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Synthesize(ctx context.Context, text, voiceID string, gender models.VoiceGender) ([]byte, error) {
	voice := openai.VoiceNova
	if gender == models.GenderMale {
		voice = openai.VoiceOnyx
	}

	log.Printf("[tts] OpenAI synthesize (voice=%s for %s/%s, textLen=%d)", voice, voiceID, gender, len(text))

	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("openai tts returned 429: %w", ErrRateLimited)
		}
		return nil, fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai tts returned empty audio")
	}
	return audio, nil
}
