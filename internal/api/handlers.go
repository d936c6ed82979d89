package api

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shortforge/shortforge/internal/config"
	"github.com/shortforge/shortforge/internal/models"
	"github.com/shortforge/shortforge/internal/queue"
)

type Handler struct {
	queue *queue.Queue
	cfg   *config.Config
}

func NewHandler(q *queue.Queue, cfg *config.Config) *Handler {
	return &Handler{queue: q, cfg: cfg}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateJob handles POST /v1/jobs. The request is validated, recorded as
// queued, and pushed onto the render queue for the worker.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Narration) == "" {
		respondError(w, http.StatusBadRequest, "Narration is required")
		return
	}

	jobID := uuid.New()

	outputName := req.OutputName
	if outputName == "" {
		outputName = jobID.String()
	}
	// The output name is a bare file stem; reject anything path-like.
	if outputName != filepath.Base(outputName) || strings.ContainsAny(outputName, "/\\") {
		respondError(w, http.StatusBadRequest, "Invalid output name")
		return
	}

	descriptor := models.JobDescriptor{
		Narration:       req.Narration,
		VoiceID:         req.VoiceID,
		TextColor:       req.TextColor,
		BackgroundColor: req.BackgroundColor,
		Background: models.BackgroundSpec{
			Variant: models.BackgroundVariant(req.BackgroundType),
			Source:  req.BackgroundSource,
			Stretch: req.StretchBackground,
		},
		OutputPath: filepath.Join(h.cfg.Paths.OutputDir, outputName+".mp4"),
	}
	if req.FontSize != nil {
		descriptor.FontSize = *req.FontSize
	} else {
		descriptor.FontSize = h.cfg.Engine.DefaultFontSize
	}
	if descriptor.VoiceID == "" {
		descriptor.VoiceID = "es-ES-Standard-A"
	}
	if descriptor.Background.Variant == "" {
		descriptor.Background.Variant = models.BackgroundColor
	}

	if err := descriptor.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	record := &models.JobRecord{
		ID:        jobID,
		Status:    models.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	if err := h.queue.SetStatus(r.Context(), record); err != nil {
		log.Printf("[api] failed to record job %s: %v", jobID, err)
		respondError(w, http.StatusInternalServerError, "Failed to record job")
		return
	}

	job := &models.RenderJob{ID: jobID, Descriptor: descriptor}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		log.Printf("[api] failed to enqueue job %s: %v", jobID, err)
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateJobResponse{
		JobID:  jobID,
		Status: models.JobStatusQueued,
	})
}

// GetJob handles GET /v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job id")
		return
	}

	record, err := h.queue.GetStatus(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// DownloadJob handles GET /v1/jobs/{id}/download, serving the finished mp4.
func (h *Handler) DownloadJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job id")
		return
	}

	record, err := h.queue.GetStatus(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	if record.Status != models.JobStatusCompleted || record.OutputPath == "" {
		respondError(w, http.StatusConflict, "Job is not completed")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(record.OutputPath)+"\"")
	http.ServeFile(w, r, record.OutputPath)
}

// ListVoices handles GET /v1/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	type voice struct {
		ID     string             `json:"id"`
		Gender models.VoiceGender `json:"gender"`
	}

	ids := models.VoiceIDs()
	voices := make([]voice, 0, len(ids))
	for _, id := range ids {
		gender, _ := models.VoiceGenderFor(id)
		voices = append(voices, voice{ID: id, Gender: gender})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[api] failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
