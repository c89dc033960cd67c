package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/natserract/splist/pkg/record"
	"github.com/natserract/splist/pkg/sharepoint"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// TokenSource hands out bearer tokens for SharePoint
type TokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// Uploader writes records into one SharePoint list, one remote call per record.
// Re-sending a record creates a duplicate item.
type Uploader struct {
	tokens     TokenSource
	connector  sharepoint.Connector
	listTitle  string
	dateFields []string
	journal    Journal
	logger     *zap.Logger

	continueOnError bool
}

// NewUploaderWithLogger creates an uploader. tokens may be nil when the
// connector authenticates on its own (user credentials).
func NewUploaderWithLogger(tokens TokenSource, connector sharepoint.Connector, listTitle string, dateFields []string, logger *zap.Logger) *Uploader {
	return &Uploader{
		tokens:     tokens,
		connector:  connector,
		listTitle:  listTitle,
		dateFields: dateFields,
		journal:    NopJournal{},
		logger:     logger,
	}
}

// WithJournal records every run in j
func (u *Uploader) WithJournal(j Journal) *Uploader {
	if j == nil {
		j = NopJournal{}
	}
	u.journal = j
	return u
}

// WithContinueOnError makes SendAll count a failed row and move on instead of
// stopping there.
func (u *Uploader) WithContinueOnError(enabled bool) *Uploader {
	u.continueOnError = enabled
	return u
}

// Send uploads rec and reports whether the remote item was created. Errors
// are logged, never returned.
func (u *Uploader) Send(ctx context.Context, rec record.Record) bool {
	_, err := u.Upload(ctx, rec)
	return err == nil
}

// Upload uploads rec and returns the created item or the error.
func (u *Uploader) Upload(ctx context.Context, rec record.Record) (item *sharepoint.Item, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		item, err = u.upload(ctx, rec)
	})
	if r := pc.Recovered(); r != nil {
		u.logger.Error("Upload panicked",
			zap.String("list", u.listTitle),
			zap.Any("panic", r.Value),
			zap.String("stack", string(r.Stack)))
		return nil, fmt.Errorf("upload panicked: %w", r.AsError())
	}
	return item, err
}

func (u *Uploader) upload(ctx context.Context, rec record.Record) (*sharepoint.Item, error) {
	var token string
	if u.tokens != nil {
		var err error
		token, err = u.tokens.GetAccessToken(ctx)
		if err != nil {
			u.logger.Error("Failed to get access token", zap.Error(err))
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}
	}

	list := u.connector.Connect(token).List(u.listTitle)

	fields, err := record.Format(rec, u.dateFields)
	if err != nil {
		u.logger.Warn("Failed to format record, sending it unchanged",
			zap.String("list", u.listTitle),
			zap.Error(err))
	}

	item, err := list.AddItem(ctx, fields)
	if err != nil {
		u.logger.Error("Failed to send record to SharePoint",
			zap.String("list", u.listTitle),
			zap.String("title", fields[record.TitleField]),
			zap.Error(err))
		return nil, err
	}

	u.logger.Info("Record sent to SharePoint",
		zap.String("list", u.listTitle),
		zap.Int("item_id", item.ID))

	return item, nil
}

// SendAll uploads records in order. It stops at the first failed row unless
// WithContinueOnError is set. source names where the records came from, for
// logs and the journal.
func (u *Uploader) SendAll(ctx context.Context, source string, records []record.Record) *UploadMetrics {
	metrics := &UploadMetrics{}
	startTime := time.Now()

	jobID, err := u.journal.StartJob(ctx, JobInfo{
		Source:     source,
		ListTitle:  u.listTitle,
		TotalItems: len(records),
	})
	if err != nil {
		u.logger.Warn("Failed to create upload job", zap.String("source", source), zap.Error(err))
		jobID = uuid.Nil
	}

	for i, rec := range records {
		if ctx.Err() != nil {
			u.logger.Warn("Upload interrupted",
				zap.Int("remaining", len(records)-i),
				zap.Error(ctx.Err()))
			break
		}

		row := i + 1
		item, err := u.Upload(ctx, rec)
		outcome := ItemOutcome{RowIndex: row, Title: titleOf(rec), Err: err}
		if err != nil {
			metrics.AddFailure()
			u.logger.Error("Failed to add row to SharePoint list",
				zap.Int("row", row),
				zap.Error(err))
		} else {
			metrics.AddSuccess()
			outcome.RemoteID = item.ID
			u.logger.Info("Row added to SharePoint list",
				zap.Int("row", row),
				zap.Int("item_id", item.ID))
		}

		if jobID != uuid.Nil {
			if err := u.journal.RecordItem(ctx, jobID, outcome); err != nil {
				u.logger.Warn("Failed to record upload item",
					zap.String("job_id", jobID.String()),
					zap.Int("row", row),
					zap.Error(err))
			}
		}

		if err != nil && !u.continueOnError {
			u.logger.Error("Upload stopped at failed row",
				zap.Int("row", row),
				zap.Int("skipped", len(records)-row))
			break
		}
	}

	succeeded, failed := metrics.Snapshot()
	fields := []zap.Field{
		zap.String("source", source),
		zap.String("list", u.listTitle),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("skipped", len(records)-succeeded-failed),
		zap.Duration("duration", time.Since(startTime)),
	}
	if succeeded == len(records) {
		u.logger.Info("Upload completed", fields...)
	} else {
		u.logger.Error("Upload did not complete", fields...)
	}

	if jobID != uuid.Nil {
		// An interrupted run still closes its job
		if err := u.journal.CompleteJob(context.WithoutCancel(ctx), jobID, metrics, time.Since(startTime)); err != nil {
			u.logger.Warn("Failed to complete upload job",
				zap.String("job_id", jobID.String()),
				zap.Error(err))
		}
	}

	return metrics
}

func titleOf(rec record.Record) string {
	if title, ok := rec[record.TitleField]; ok {
		return title
	}
	return rec[record.ProcessField]
}
