package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/shortforge/shortforge/internal/models"
)

const QueueRenderVideo = "queue:render_video"

// statusTTL bounds how long a finished job's record stays queryable.
const statusTTL = 24 * time.Hour

type Queue struct {
	client *redis.Client
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Enqueue pushes a render job onto the work queue.
func (q *Queue) Enqueue(ctx context.Context, job *models.RenderJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, QueueRenderVideo, data).Err()
}

// Dequeue blocks up to timeout for the next render job. A nil job with a nil
// error means the wait timed out with nothing queued.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*models.RenderJob, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueRenderVideo).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job models.RenderJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueRenderVideo).Result()
}

func statusKey(id uuid.UUID) string {
	return "job:" + id.String()
}

// SetStatus writes the job's status record with a bounded TTL.
func (q *Queue) SetStatus(ctx context.Context, record *models.JobRecord) error {
	record.UpdatedAt = time.Now()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal job record: %w", err)
	}

	return q.client.Set(ctx, statusKey(record.ID), data, statusTTL).Err()
}

// GetStatus loads a job's status record. A nil record with a nil error means
// the job is unknown or its record has expired.
func (q *Queue) GetStatus(ctx context.Context, id uuid.UUID) (*models.JobRecord, error) {
	data, err := q.client.Get(ctx, statusKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job record: %w", err)
	}

	var record models.JobRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job record: %w", err)
	}

	return &record, nil
}
