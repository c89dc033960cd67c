package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopJournal(t *testing.T) {
	var j Journal = NopJournal{}

	id, err := j.StartJob(context.Background(), JobInfo{Source: "x"})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)
	assert.NoError(t, j.RecordItem(context.Background(), id, ItemOutcome{}))
	assert.NoError(t, j.CompleteJob(context.Background(), id, &UploadMetrics{}, time.Second))
}

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "short", truncateError(errors.New("short")))

	long := strings.Repeat("x", maxErrorLength+50)
	assert.Len(t, truncateError(errors.New(long)), maxErrorLength)
}

func TestTruncateError_KeepsValidUTF8(t *testing.T) {
	// "ç" is two bytes; the leading "x" puts byte maxErrorLength inside one.
	msg := "x" + strings.Repeat("ç", maxErrorLength)

	got := truncateError(errors.New(msg))

	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxErrorLength-1)
	assert.True(t, strings.HasPrefix(msg, got))
}

func TestJobStatus(t *testing.T) {
	assert.Equal(t, jobStatusCompleted, jobStatus(0))
	assert.Equal(t, jobStatusCompletedWithError, jobStatus(2))
}

func TestWithJournalNil(t *testing.T) {
	u := NewUploaderWithLogger(nil, nil, "l", nil, nil).WithJournal(nil)
	assert.Equal(t, NopJournal{}, u.journal)
}
