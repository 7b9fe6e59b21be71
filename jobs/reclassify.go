package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/paperledger/paperledger/internal/batch"
	"github.com/paperledger/paperledger/internal/documents"
)

const (
	// TaskBatchReclassify applies a status transition across a document batch.
	TaskBatchReclassify = "batch:reclassify"
)

// BatchReclassifyPayload carries the scope of one batch reclassification run.
type BatchReclassifyPayload struct {
	DocumentIDs  []string `json:"document_ids"`
	TargetStatus string   `json:"target_status"`
	Actor        string   `json:"actor"`
}

// NewBatchReclassifyTask creates an Asynq task for a batch reclassification.
func NewBatchReclassifyTask(payload BatchReclassifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchReclassify, body, asynq.Queue(QueueDefault)), nil
}

// BatchReclassifyJob executes queued batch reclassifications.
type BatchReclassifyJob struct {
	Service *batch.Service
	Logger  *slog.Logger
	Metrics *Metrics
}

func NewBatchReclassifyJob(service *batch.Service, logger *slog.Logger, metrics *Metrics) *BatchReclassifyJob {
	return &BatchReclassifyJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle processes one TaskBatchReclassify task. Malformed payloads skip
// retry; partial completion counts as success.
func (j *BatchReclassifyJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("batch reclassify: service not configured")
	}
	var payload BatchReclassifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ids := make([]uuid.UUID, 0, len(payload.DocumentIDs))
	for _, raw := range payload.DocumentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return asynq.SkipRetry
		}
		ids = append(ids, id)
	}

	tracker := j.Metrics.Track(TaskBatchReclassify)
	result, err := j.Service.Reclassify(ctx, ids, documents.Status(payload.TargetStatus), payload.Actor)
	if err = tracker.End(err); err != nil {
		j.log().Error("batch reclassify", slog.Any("error", err))
		return err
	}
	j.log().Info("batch reclassify done",
		slog.Int("requested", result.Requested),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed))
	return nil
}

func (j *BatchReclassifyJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBatchReclassify))
	}
	return slog.Default().With(slog.String("job", TaskBatchReclassify))
}

// EnqueueReclassify submits a batch reclassification to the queue and returns
// the task id. It satisfies batch.Enqueuer.
func (c *Client) EnqueueReclassify(ctx context.Context, ids []uuid.UUID, target documents.Status, actor string) (string, error) {
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	task, err := NewBatchReclassifyTask(BatchReclassifyPayload{
		DocumentIDs:  raw,
		TargetStatus: string(target),
		Actor:        actor,
	})
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}
