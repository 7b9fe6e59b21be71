package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/paperledger/paperledger/internal/reports"
)

const (
	// TaskReportRefresh recomputes cached report snapshots.
	TaskReportRefresh = "report:refresh"
)

// ReportRefreshPayload scopes a refresh run. An empty ReportID means every
// COMPLETED report.
type ReportRefreshPayload struct {
	ReportID string `json:"report_id,omitempty"`
}

// NewReportRefreshTask creates an Asynq task for refreshing report snapshots.
func NewReportRefreshTask(reportID string) (*asynq.Task, error) {
	body, err := json.Marshal(ReportRefreshPayload{ReportID: reportID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportRefresh, body, asynq.Queue(QueueDefault)), nil
}

// ReportRefreshJob recomputes report snapshots in the background, keeping
// read latency flat for frequently viewed periods.
type ReportRefreshJob struct {
	Service *reports.Service
	Logger  *slog.Logger
	Metrics *Metrics
}

func NewReportRefreshJob(service *reports.Service, logger *slog.Logger, metrics *Metrics) *ReportRefreshJob {
	return &ReportRefreshJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle processes one TaskReportRefresh task.
func (j *ReportRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("report refresh: service not configured")
	}
	var payload ReportRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskReportRefresh)
	start := time.Now()
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if payload.ReportID != "" {
		id, err := uuid.Parse(payload.ReportID)
		if err != nil {
			return asynq.SkipRetry
		}
		if _, resultErr = j.Service.Refresh(ctx, id); resultErr != nil {
			j.log().Error("refresh report", slog.String("report_id", payload.ReportID), slog.Any("error", resultErr))
			return resultErr
		}
		j.log().Info("refreshed report", slog.String("report_id", payload.ReportID), slog.Duration("duration", time.Since(start)))
		return nil
	}

	refreshed, err := j.Service.RefreshCompleted(ctx)
	if err != nil {
		resultErr = err
		j.log().Error("refresh completed reports", slog.Any("error", err))
		return resultErr
	}
	j.log().Info("refreshed completed reports", slog.Int("reports", refreshed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReportRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportRefresh))
	}
	return slog.Default().With(slog.String("job", TaskReportRefresh))
}
