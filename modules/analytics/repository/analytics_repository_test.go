package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appModel "github.com/andreypavlenko/jobber/modules/applications/model"
)

func rowsColumns() []string {
	return []string{"status", "applied_at", "resume_id", "source", "communications", "interviews", "timeline"}
}

func marshalOrFail(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestAnalyticsRepository_GetOverview(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalyticsRepositoryWithPool(mock)
	userID := "user-123"

	t.Run("splits active vs terminal and computes response rate", func(t *testing.T) {
		applied := time.Now().Add(-10 * 24 * time.Hour)
		rows := pgxmock.NewRows(rowsColumns()).
			AddRow(string(appModel.StatusApplied), applied, "", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{})).
			AddRow(string(appModel.StatusUnderReview), applied, "", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{{Direction: "inbound"}}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{})).
			AddRow(string(appModel.StatusRejected), applied, "", "Indeed",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{}))

		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		result, err := repo.GetOverview(context.Background(), userID)

		require.NoError(t, err)
		assert.Equal(t, 3, result.TotalApplications)
		assert.Equal(t, 1, result.ClosedApplications)
		assert.Equal(t, 2, result.ActiveApplications)
		assert.InDelta(t, 66.67, result.ResponseRate, 0.1)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns zero values for empty data", func(t *testing.T) {
		rows := pgxmock.NewRows(rowsColumns())
		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		result, err := repo.GetOverview(context.Background(), userID)

		require.NoError(t, err)
		assert.Equal(t, 0, result.TotalApplications)
		assert.Equal(t, 0.0, result.ResponseRate)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAnalyticsRepository_GetFunnel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalyticsRepositoryWithPool(mock)
	userID := "user-123"

	t.Run("counts applications that reached each funnel step", func(t *testing.T) {
		rows := pgxmock.NewRows(rowsColumns()).
			AddRow(string(appModel.StatusOfferAccepted), time.Now(), "", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{})).
			AddRow(string(appModel.StatusInterviewScheduled), time.Now(), "", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{})).
			AddRow(string(appModel.StatusApplied), time.Now(), "", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{}))

		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		result, err := repo.GetFunnel(context.Background(), userID)

		require.NoError(t, err)
		require.Len(t, result.Stages, len(funnelOrder))

		assert.Equal(t, 3, result.Stages[0].Count) // applied: all three reached it
		assert.Equal(t, 2, result.Stages[2].Count) // interview_scheduled: two reached it
		assert.Equal(t, 1, result.Stages[5].Count) // offer_accepted: one reached it

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty counts for user without data", func(t *testing.T) {
		rows := pgxmock.NewRows(rowsColumns())
		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		result, err := repo.GetFunnel(context.Background(), userID)

		require.NoError(t, err)
		require.Len(t, result.Stages, len(funnelOrder))
		for _, s := range result.Stages {
			assert.Equal(t, 0, s.Count)
		}

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAnalyticsRepository_GetStageTime(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalyticsRepositoryWithPool(mock)
	userID := "user-123"

	t.Run("derives duration from consecutive status_change events", func(t *testing.T) {
		t0 := time.Now().Add(-10 * 24 * time.Hour)
		t1 := t0.Add(3 * 24 * time.Hour)
		timeline := []appModel.TimelineEvent{
			{Type: "status_change", Metadata: map[string]any{"new_status": string(appModel.StatusApplied)}, CreatedAt: t0},
			{Type: "status_change", Metadata: map[string]any{"new_status": string(appModel.StatusUnderReview)}, CreatedAt: t1},
		}
		rows := pgxmock.NewRows(rowsColumns()).
			AddRow(string(appModel.StatusUnderReview), t0, "", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, timeline))

		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		result, err := repo.GetStageTime(context.Background(), userID)

		require.NoError(t, err)
		require.Len(t, result.Stages, 1)
		assert.Equal(t, humanize(string(appModel.StatusApplied)), result.Stages[0].StageName)
		assert.InDelta(t, 3.0, result.Stages[0].AvgDays, 0.01)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty for no timeline events", func(t *testing.T) {
		rows := pgxmock.NewRows(rowsColumns())
		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		result, err := repo.GetStageTime(context.Background(), userID)

		require.NoError(t, err)
		assert.Empty(t, result.Stages)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAnalyticsRepository_GetResumeEffectiveness(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalyticsRepositoryWithPool(mock)
	userID := "user-123"

	t.Run("aggregates per resume and joins titles", func(t *testing.T) {
		rows := pgxmock.NewRows(rowsColumns()).
			AddRow(string(appModel.StatusUnderReview), time.Now(), "resume-1", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{{Direction: "inbound"}}), marshalOrFail(t, []appModel.Interview{{ID: "i1"}}), marshalOrFail(t, []appModel.TimelineEvent{})).
			AddRow(string(appModel.StatusApplied), time.Now(), "resume-1", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{}))
		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		titleRows := pgxmock.NewRows([]string{"id", "title"}).AddRow("resume-1", "Software Engineer Resume")
		mock.ExpectQuery("FROM resumes").WithArgs(userID).WillReturnRows(titleRows)

		result, err := repo.GetResumeEffectiveness(context.Background(), userID)

		require.NoError(t, err)
		require.Len(t, result.Resumes, 1)
		assert.Equal(t, "resume-1", result.Resumes[0].ResumeID)
		assert.Equal(t, "Software Engineer Resume", result.Resumes[0].ResumeTitle)
		assert.Equal(t, 2, result.Resumes[0].ApplicationsCount)
		assert.Equal(t, 1, result.Resumes[0].ResponsesCount)
		assert.Equal(t, 1, result.Resumes[0].InterviewsCount)
		assert.Equal(t, 50.0, result.Resumes[0].ResponseRate)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty for no resumes", func(t *testing.T) {
		rows := pgxmock.NewRows(rowsColumns())
		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)
		mock.ExpectQuery("FROM resumes").WithArgs(userID).WillReturnRows(pgxmock.NewRows([]string{"id", "title"}))

		result, err := repo.GetResumeEffectiveness(context.Background(), userID)

		require.NoError(t, err)
		assert.Empty(t, result.Resumes)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAnalyticsRepository_GetSourceAnalytics(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalyticsRepositoryWithPool(mock)
	userID := "user-123"

	t.Run("groups by job source", func(t *testing.T) {
		rows := pgxmock.NewRows(rowsColumns()).
			AddRow(string(appModel.StatusUnderReview), time.Now(), "", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{{Direction: "inbound"}}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{})).
			AddRow(string(appModel.StatusApplied), time.Now(), "", "LinkedIn",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{})).
			AddRow(string(appModel.StatusApplied), time.Now(), "", "Indeed",
				marshalOrFail(t, []appModel.Communication{}), marshalOrFail(t, []appModel.Interview{}), marshalOrFail(t, []appModel.TimelineEvent{}))

		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		result, err := repo.GetSourceAnalytics(context.Background(), userID)

		require.NoError(t, err)
		require.Len(t, result.Sources, 2)
		assert.Equal(t, "LinkedIn", result.Sources[0].SourceName)
		assert.Equal(t, 2, result.Sources[0].ApplicationsCount)
		assert.Equal(t, 1, result.Sources[0].ResponsesCount)
		assert.Equal(t, 50.0, result.Sources[0].ConversionRate)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty for no applications", func(t *testing.T) {
		rows := pgxmock.NewRows(rowsColumns())
		mock.ExpectQuery("FROM applications a").WithArgs(userID).WillReturnRows(rows)

		result, err := repo.GetSourceAnalytics(context.Background(), userID)

		require.NoError(t, err)
		assert.Empty(t, result.Sources)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}
