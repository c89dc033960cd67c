package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/natserract/splist/uploader/schema/postgres"
	"go.uber.org/zap"
)

const (
	jobStatusRunning            = "running"
	jobStatusCompleted          = "completed"
	jobStatusCompletedWithError = "completed_with_errors"

	itemStatusSucceeded = "succeeded"
	itemStatusFailed    = "failed"

	maxErrorLength = 1000
)

// JobInfo describes an upload run
type JobInfo struct {
	Source     string
	ListTitle  string
	TotalItems int
}

// ItemOutcome is the result of sending one record
type ItemOutcome struct {
	RowIndex int
	Title    string
	RemoteID int
	Err      error
}

// Journal records upload runs. Failures to record never change an upload's result.
type Journal interface {
	StartJob(ctx context.Context, job JobInfo) (uuid.UUID, error)
	RecordItem(ctx context.Context, jobID uuid.UUID, outcome ItemOutcome) error
	CompleteJob(ctx context.Context, jobID uuid.UUID, metrics *UploadMetrics, duration time.Duration) error
}

// NopJournal discards everything
type NopJournal struct{}

func (NopJournal) StartJob(context.Context, JobInfo) (uuid.UUID, error) { return uuid.Nil, nil }
func (NopJournal) RecordItem(context.Context, uuid.UUID, ItemOutcome) error {
	return nil
}
func (NopJournal) CompleteJob(context.Context, uuid.UUID, *UploadMetrics, time.Duration) error {
	return nil
}

// PostgresJournal stores upload jobs and per-row outcomes in Postgres
type PostgresJournal struct {
	db     *postgres.DB
	logger *zap.Logger
}

// NewPostgresJournal creates a journal backed by db
func NewPostgresJournal(db *postgres.DB, logger *zap.Logger) *PostgresJournal {
	return &PostgresJournal{db: db, logger: logger}
}

// StartJob inserts a running job and returns its ID
func (j *PostgresJournal) StartJob(ctx context.Context, job JobInfo) (uuid.UUID, error) {
	id := uuid.New()
	metadata, _ := json.Marshal(map[string]interface{}{
		"source":     job.Source,
		"list_title": job.ListTitle,
		"operation":  "sharepoint_list_upload",
	})

	_, err := j.db.Pool().Exec(ctx,
		`INSERT INTO upload_jobs (id, source, list_title, status, total_items, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, job.Source, job.ListTitle, jobStatusRunning, int32(job.TotalItems), metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create upload job: %w", err)
	}

	j.logger.Info("Created upload job",
		zap.String("job_id", id.String()),
		zap.String("source", job.Source),
		zap.Int("total_items", job.TotalItems))

	return id, nil
}

// RecordItem stores the outcome of one record
func (j *PostgresJournal) RecordItem(ctx context.Context, jobID uuid.UUID, outcome ItemOutcome) error {
	status := itemStatusSucceeded
	errText := pgtype.Text{Valid: false}
	if outcome.Err != nil {
		status = itemStatusFailed
		errText = pgtype.Text{String: truncateError(outcome.Err), Valid: true}
	}
	title := pgtype.Text{String: outcome.Title, Valid: outcome.Title != ""}
	remoteID := pgtype.Int4{Int32: int32(outcome.RemoteID), Valid: outcome.Err == nil && outcome.RemoteID != 0}

	_, err := j.db.Pool().Exec(ctx,
		`INSERT INTO upload_items (job_id, row_index, title, remote_id, status, error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		jobID, int32(outcome.RowIndex), title, remoteID, status, errText)
	if err != nil {
		return fmt.Errorf("failed to record upload item %d: %w", outcome.RowIndex, err)
	}
	return nil
}

// CompleteJob stores final counts and marks the job finished
func (j *PostgresJournal) CompleteJob(ctx context.Context, jobID uuid.UUID, metrics *UploadMetrics, duration time.Duration) error {
	succeeded, failed := metrics.Snapshot()

	_, err := j.db.Pool().Exec(ctx,
		`UPDATE upload_jobs
		    SET status = $2, succeeded_items = $3, failed_items = $4,
		        completed_at = now(), duration_ms = $5
		  WHERE id = $1`,
		jobID, jobStatus(failed), int32(succeeded), int32(failed), pgtype.Int4{Int32: int32(duration.Milliseconds()), Valid: true})
	if err != nil {
		return fmt.Errorf("failed to complete upload job %s: %w", jobID, err)
	}

	j.logger.Info("Completed upload job",
		zap.String("job_id", jobID.String()),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))
	return nil
}

func jobStatus(failed int) string {
	if failed > 0 {
		return jobStatusCompletedWithError
	}
	return jobStatusCompleted
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) <= maxErrorLength {
		return msg
	}
	// Cut on a rune boundary; Postgres rejects invalid UTF-8
	n := maxErrorLength
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}
