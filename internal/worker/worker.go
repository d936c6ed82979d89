// Package worker drains the render queue and drives the assembly engine,
// keeping each job's status record current as it moves through its lifecycle.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/shortforge/shortforge/internal/models"
	"github.com/shortforge/shortforge/internal/queue"
)

// Runner is the render entrypoint the worker drives. Implemented by
// engine.Engine.
type Runner interface {
	Run(ctx context.Context, job models.JobDescriptor) models.RunResult
}

type Worker struct {
	queue  *queue.Queue
	engine Runner
}

func New(q *queue.Queue, engine Runner) *Worker {
	return &Worker{queue: q, engine: engine}
}

// Start processes render jobs until the context is cancelled. Renders are
// ffmpeg-bound and already parallelize internally, so jobs run one at a time.
func (w *Worker) Start(ctx context.Context) {
	log.Println("Worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("Worker shutting down...")
			return
		default:
			job, err := w.queue.Dequeue(ctx, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("Error dequeuing render job: %v", err)
				continue
			}
			if job == nil {
				continue
			}

			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job *models.RenderJob) {
	log.Printf("Processing render job %s", job.ID)

	w.setStatus(ctx, job, models.JobStatusRunning, "", models.RunResult{})

	result := w.engine.Run(ctx, job.Descriptor)
	if result.Success {
		log.Printf("Job %s completed: %s", job.ID, result.OutputPath)
		w.setStatus(ctx, job, models.JobStatusCompleted, result.Message, result)
	} else {
		log.Printf("Job %s failed: %s", job.ID, result.Message)
		w.setStatus(ctx, job, models.JobStatusFailed, result.Message, result)
	}
}

func (w *Worker) setStatus(ctx context.Context, job *models.RenderJob, status models.JobStatus, message string, result models.RunResult) {
	record := &models.JobRecord{
		ID:          job.ID,
		Status:      status,
		Message:     message,
		OutputPath:  result.OutputPath,
		DurationSec: result.DurationSec,
		CreatedAt:   job.CreatedAt,
	}
	if err := w.queue.SetStatus(ctx, record); err != nil {
		log.Printf("Failed to update status for job %s: %v", job.ID, err)
	}
}
