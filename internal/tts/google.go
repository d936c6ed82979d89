package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shortforge/shortforge/internal/models"
)

const googleTTSEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleProvider synthesizes speech through the Cloud Text-to-Speech REST
// API using an API key. This is the preferred provider.
type GoogleProvider struct {
	apiKey       string
	languageCode string
	client       *http.Client
}

var _ Provider = (*GoogleProvider)(nil)

func NewGoogleProvider(apiKey, languageCode string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:       apiKey,
		languageCode: languageCode,
		client:       &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

type googleSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
		SsmlGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type googleSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize requests MP3 audio for the text. A 429 response maps to
// ErrRateLimited so the dispatcher can back off and retry.
func (p *GoogleProvider) Synthesize(ctx context.Context, text, voiceID string, gender models.VoiceGender) ([]byte, error) {
	var reqBody googleSynthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = p.languageCode
	reqBody.Voice.Name = voiceID
	reqBody.Voice.SsmlGender = string(gender)
	reqBody.AudioConfig.AudioEncoding = "MP3"

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesize request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", googleTTSEndpoint, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[tts] Google synthesize (voice=%s, gender=%s, textLen=%d)", voiceID, gender, len(text))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("google tts returned 429: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google tts returned status %d: %s", resp.StatusCode, string(body))
	}

	var result googleSynthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse synthesize response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("google tts returned empty audio")
	}
	return audio, nil
}
