package consolidate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/querysage/querysage/internal/feedback"
	"github.com/querysage/querysage/internal/knowledge"
	"github.com/querysage/querysage/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportStore_WriteRead(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	report := &models.Report{
		ID:          "20240301T120000Z",
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Items: []models.ActionItem{{
			Category:    models.GapMissingTable,
			Description: "missing table for creator revenue",
			Priority:    10,
			Supporting:  []string{"r1", "r2"},
		}},
	}
	require.NoError(t, store.Write(report))

	got, err := store.Read(report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.GeneratedAt, got.GeneratedAt)
	require.Len(t, got.Items, 1)
	assert.Equal(t, models.GapMissingTable, got.Items[0].Category)
}

func TestReportStore_WriteOnce(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	report := &models.Report{ID: "20240301T120000Z"}
	require.NoError(t, store.Write(report))
	assert.ErrorIs(t, store.Write(report), ErrReportExists)
}

func TestReportStore_ReadMissing(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("20990101T000000Z")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportStore_ListNewestFirst(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"20240301T120000Z", "20240302T080000Z", "20240229T230000Z"} {
		require.NoError(t, store.Write(&models.Report{ID: id}))
	}

	ids, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240302T080000Z", "20240301T120000Z", "20240229T230000Z"}, ids)
}

func TestService_Run(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	fb, err := feedback.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	docs, err := knowledge.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	reports, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	_, err = fb.Append(models.FeedbackRecord{Source: models.SourceUser, Body: "missing table for creator revenue"})
	require.NoError(t, err)
	_, err = fb.Append(models.FeedbackRecord{Source: models.SourceAgent, Body: "the creator revenue table is missing"})
	require.NoError(t, err)

	svc := NewService(fb, docs, reports, logger)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.SkippedRecords)
	require.Len(t, report.Items, 1)
	assert.Len(t, report.Items[0].Supporting, 2)

	// The report is persisted and listable.
	ids, err := svc.Reports()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	stored, err := svc.Report(ids[0])
	require.NoError(t, err)
	assert.Equal(t, report.ID, stored.ID)
}

func TestService_RunTwiceSameInstant(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	fb, err := feedback.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	docs, err := knowledge.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	reports, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	// Freeze the clock so both runs would claim the same report ID.
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = orig })

	svc := NewService(fb, docs, reports, logger)
	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	second, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	ids, err := svc.Reports()
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestService_RunEmpty(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	fb, err := feedback.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	docs, err := knowledge.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	reports, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	report, err := NewService(fb, docs, reports, logger).Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report.Items)
	assert.Empty(t, report.Items)
}
