package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BackgroundVariant selects how the visual layer behind the captions is built.
type BackgroundVariant string

const (
	BackgroundNone  BackgroundVariant = "none"
	BackgroundColor BackgroundVariant = "color"
	BackgroundImage BackgroundVariant = "image"
	BackgroundVideo BackgroundVariant = "video"
)

// BackgroundSpec describes the requested background source.
// Source is a local path or a remote URL for the image/video variants.
type BackgroundSpec struct {
	Variant BackgroundVariant `json:"variant"`
	Source  string            `json:"source,omitempty"`
	Stretch bool              `json:"stretch,omitempty"`
}

// JobDescriptor is the single immutable value a render run operates on.
// It is owned by the caller; the engine never reads ambient state.
type JobDescriptor struct {
	Narration       string         `json:"narration"`
	VoiceID         string         `json:"voice_id"`
	FontSize        int            `json:"font_size"`
	TextColor       string         `json:"text_color"`
	BackgroundColor string         `json:"background_color"`
	Background      BackgroundSpec `json:"background"`
	OutputPath      string         `json:"output_path"`
}

// Validate checks the descriptor once, at job start. Narration content is
// deliberately not checked here — sentence detection belongs to the segmenter.
func (j *JobDescriptor) Validate() error {
	if _, ok := VoiceGenderFor(j.VoiceID); !ok {
		return fmt.Errorf("unknown voice id %q", j.VoiceID)
	}
	if j.FontSize < 10 || j.FontSize > 100 {
		return fmt.Errorf("font size %d out of range [10,100]", j.FontSize)
	}
	switch j.Background.Variant {
	case BackgroundNone, BackgroundColor:
	case BackgroundImage, BackgroundVideo:
		if strings.TrimSpace(j.Background.Source) == "" {
			return fmt.Errorf("background variant %q requires a source", j.Background.Variant)
		}
	default:
		return fmt.Errorf("unknown background variant %q", j.Background.Variant)
	}
	if j.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

// RunResult is what the caller gets back from a run. On failure Message
// carries the causal error description for user display.
type RunResult struct {
	Success     bool    `json:"success"`
	Message     string  `json:"message"`
	OutputPath  string  `json:"output_path,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Segments    int     `json:"segments,omitempty"`
}

// DispatchMode selects how per-segment synthesis calls are scheduled.
type DispatchMode string

const (
	DispatchSequential DispatchMode = "sequential"
	DispatchFanOut     DispatchMode = "fanout"
)

// ---------------------------------------------------------------------------
// Queue / API payloads
// ---------------------------------------------------------------------------

// JobStatus tracks a queued render job through its lifecycle.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// RenderJob is the payload carried on the render queue.
type RenderJob struct {
	ID         uuid.UUID     `json:"id"`
	Descriptor JobDescriptor `json:"descriptor"`
	CreatedAt  time.Time     `json:"created_at"`
}

// JobRecord is the transient status record kept while a job is in flight
// and for a short window afterwards.
type JobRecord struct {
	ID          uuid.UUID `json:"id"`
	Status      JobStatus `json:"status"`
	Message     string    `json:"message,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	DurationSec float64   `json:"duration_sec,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateJobRequest is the body of POST /v1/jobs.
type CreateJobRequest struct {
	Narration         string `json:"narration"`
	VoiceID           string `json:"voice_id"`
	FontSize          *int   `json:"font_size,omitempty"`
	TextColor         string `json:"text_color,omitempty"`
	BackgroundColor   string `json:"background_color,omitempty"`
	BackgroundType    string `json:"background_type,omitempty"`
	BackgroundSource  string `json:"background_source,omitempty"`
	StretchBackground bool   `json:"stretch_background,omitempty"`
	OutputName        string `json:"output_name,omitempty"`
}

// CreateJobResponse is returned from POST /v1/jobs.
type CreateJobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
}
