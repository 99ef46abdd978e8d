// Package repository computes analytics over the closed application
// lifecycle (modules/applications/model.Status) rather than the teacher's
// free-form stage tables: a posting no longer advances through
// user-defined stage_templates rows, it occupies exactly one of the fixed
// statuses, so every aggregate here is computed in Go after one bulk fetch
// per user — the same shape modules/applications/service's own Stats
// method already uses for interview/response rate — rather than joining
// SQL against tables the rewritten schema no longer has.
package repository

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appModel "github.com/andreypavlenko/jobber/modules/applications/model"
	"github.com/andreypavlenko/jobber/modules/analytics/model"
)

// DBPool defines the interface for database operations used by the repository
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type AnalyticsRepository struct {
	pool DBPool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// NewAnalyticsRepositoryWithPool creates a repository with a custom pool (for testing)
func NewAnalyticsRepositoryWithPool(pool DBPool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// row is the narrow slice of an application's columns every analytic
// needs, pulled once per user and reshaped per metric in Go.
type row struct {
	Status         string
	AppliedAt      time.Time
	ResumeID       string
	JobSource      string
	Communications []appModel.Communication
	Interviews     []appModel.Interview
	Timeline       []appModel.TimelineEvent
}

func (r row) isTerminal() bool { return appModel.IsTerminal(r.Status) }

func (r row) hasResponded() bool {
	if appModel.ResponseStatuses[appModel.Status(r.Status)] {
		return true
	}
	for _, c := range r.Communications {
		if c.Direction == "inbound" {
			return true
		}
	}
	return false
}

// firstResponseDays returns days between applied_at and the first
// status_change timeline event that landed in ResponseStatuses.
func (r row) firstResponseDays() (float64, bool) {
	sorted := append([]appModel.TimelineEvent(nil), r.Timeline...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	for _, e := range sorted {
		if e.Type != "status_change" || r.AppliedAt.IsZero() {
			continue
		}
		newStatus, _ := e.Metadata["new_status"].(string)
		if appModel.ResponseStatuses[appModel.Status(newStatus)] {
			return e.CreatedAt.Sub(r.AppliedAt).Hours() / 24, true
		}
	}
	return 0, false
}

const rowColumns = `a.status, a.applied_at, a.resume_id, COALESCE(NULLIF(j.source, ''), 'Unknown'), a.communications, a.interviews, a.timeline`

func (r *AnalyticsRepository) fetchRows(ctx context.Context, userID string) ([]row, error) {
	query := `
		SELECT ` + rowColumns + `
		FROM applications a
		LEFT JOIN jobs j ON j.id = a.job_id
		WHERE a.user_id = $1 AND a.deleted_at IS NULL
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var rr row
		var comms, interviews, timeline []byte
		if err := rows.Scan(&rr.Status, &rr.AppliedAt, &rr.ResumeID, &rr.JobSource, &comms, &interviews, &timeline); err != nil {
			return nil, err
		}
		if len(comms) > 0 {
			if err := json.Unmarshal(comms, &rr.Communications); err != nil {
				return nil, err
			}
		}
		if len(interviews) > 0 {
			if err := json.Unmarshal(interviews, &rr.Interviews); err != nil {
				return nil, err
			}
		}
		if len(timeline) > 0 {
			if err := json.Unmarshal(timeline, &rr.Timeline); err != nil {
				return nil, err
			}
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// GetOverview returns high-level application statistics
func (r *AnalyticsRepository) GetOverview(ctx context.Context, userID string) (*model.OverviewAnalytics, error) {
	rows, err := r.fetchRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	analytics := &model.OverviewAnalytics{TotalApplications: len(rows)}
	var withResponse int
	var responseDaysSum float64
	var responseDaysCount int
	for _, rr := range rows {
		if rr.isTerminal() {
			analytics.ClosedApplications++
		} else {
			analytics.ActiveApplications++
		}
		if rr.hasResponded() {
			withResponse++
		}
		if days, ok := rr.firstResponseDays(); ok {
			responseDaysSum += days
			responseDaysCount++
		}
	}
	if analytics.TotalApplications > 0 {
		analytics.ResponseRate = round2(float64(withResponse) / float64(analytics.TotalApplications) * 100)
	}
	if responseDaysCount > 0 {
		analytics.AvgDaysToFirstResponse = round2(responseDaysSum / float64(responseDaysCount))
	}
	return analytics, nil
}

// funnelOrder is the core lifecycle progression used for the funnel view,
// deliberately narrower than the full state set: parallel branches
// (needs_authentication, manual_action_required, processing, pending_
// verification, on_hold, draft/pending/submitted) are entry or exception
// states, not funnel steps.
var funnelOrder = []appModel.Status{
	appModel.StatusApplied,
	appModel.StatusUnderReview,
	appModel.StatusInterviewScheduled,
	appModel.StatusInterviewCompleted,
	appModel.StatusOfferReceived,
	appModel.StatusOfferAccepted,
}

// GetFunnel returns status-based funnel metrics: how many applications
// ever reached each step, in lifecycle order, with conversion/drop-off
// relative to the previous step.
func (r *AnalyticsRepository) GetFunnel(ctx context.Context, userID string) (*model.FunnelAnalytics, error) {
	rows, err := r.fetchRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	reached := make(map[appModel.Status]int, len(funnelOrder))
	for _, rr := range rows {
		for _, stage := range funnelOrder {
			if statusAtLeast(appModel.Status(rr.Status), stage) {
				reached[stage]++
			}
		}
	}

	var stages []model.FunnelStage
	var prevCount int
	for i, stage := range funnelOrder {
		count := reached[stage]
		conversion, dropOff := 100.0, 0.0
		if i > 0 {
			if prevCount > 0 {
				conversion = round2(float64(count) / float64(prevCount) * 100)
				dropOff = round2(float64(prevCount-count) / float64(prevCount) * 100)
			} else {
				conversion, dropOff = 0, 0
			}
		}
		stages = append(stages, model.FunnelStage{
			StageName:      humanize(string(stage)),
			StageOrder:     i + 1,
			Count:          count,
			ConversionRate: conversion,
			DropOffRate:    dropOff,
		})
		prevCount = count
	}
	return &model.FunnelAnalytics{Stages: stages}, nil
}

// statusAtLeast reports whether status is at or beyond target in
// funnelOrder. A status outside the funnel entirely never counts.
func statusAtLeast(status, target appModel.Status) bool {
	targetIdx, statusIdx := -1, -1
	for i, s := range funnelOrder {
		if s == target {
			targetIdx = i
		}
		if s == status {
			statusIdx = i
		}
	}
	if targetIdx == -1 || statusIdx == -1 {
		return false
	}
	return statusIdx >= targetIdx
}

// GetStageTime returns, per funnel stage, how long applications spent
// there before their next status_change — derived from consecutive
// status_change timeline entries rather than a dedicated stage-duration
// table.
func (r *AnalyticsRepository) GetStageTime(ctx context.Context, userID string) (*model.StageTimeAnalytics, error) {
	rows, err := r.fetchRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	type acc struct {
		sum, min, max float64
		n             int
	}
	accByStage := map[string]*acc{}

	for _, rr := range rows {
		sorted := append([]appModel.TimelineEvent(nil), rr.Timeline...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

		var changes []appModel.TimelineEvent
		for _, e := range sorted {
			if e.Type == "status_change" {
				changes = append(changes, e)
			}
		}
		for i, e := range changes {
			newStatus, _ := e.Metadata["new_status"].(string)
			if i+1 >= len(changes) {
				continue // current status: no next status_change yet
			}
			days := changes[i+1].CreatedAt.Sub(e.CreatedAt).Hours() / 24
			if days < 0 {
				continue
			}
			a, ok := accByStage[newStatus]
			if !ok {
				a = &acc{min: days, max: days}
				accByStage[newStatus] = a
			}
			a.sum += days
			a.n++
			if days < a.min {
				a.min = days
			}
			if days > a.max {
				a.max = days
			}
		}
	}

	var stages []model.StageTimeMetrics
	for i, stage := range funnelOrder {
		a, ok := accByStage[string(stage)]
		if !ok || a.n == 0 {
			continue
		}
		stages = append(stages, model.StageTimeMetrics{
			StageName:         humanize(string(stage)),
			StageOrder:        i + 1,
			AvgDays:           round2(a.sum / float64(a.n)),
			MinDays:           round2(a.min),
			MaxDays:           round2(a.max),
			ApplicationsCount: a.n,
		})
	}
	return &model.StageTimeAnalytics{Stages: stages}, nil
}

// GetResumeEffectiveness returns effectiveness metrics per resume
func (r *AnalyticsRepository) GetResumeEffectiveness(ctx context.Context, userID string) (*model.ResumeAnalytics, error) {
	rows, err := r.fetchRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	titles, err := r.resumeTitles(ctx, userID)
	if err != nil {
		return nil, err
	}

	type acc struct {
		applications, responses, interviews int
	}
	byResume := map[string]*acc{}
	for _, rr := range rows {
		if rr.ResumeID == "" {
			continue
		}
		a, ok := byResume[rr.ResumeID]
		if !ok {
			a = &acc{}
			byResume[rr.ResumeID] = a
		}
		a.applications++
		if rr.hasResponded() {
			a.responses++
		}
		if len(rr.Interviews) > 0 {
			a.interviews++
		}
	}

	var resumes []model.ResumeEffectiveness
	for id, a := range byResume {
		rate := 0.0
		if a.applications > 0 {
			rate = round2(float64(a.responses) / float64(a.applications) * 100)
		}
		resumes = append(resumes, model.ResumeEffectiveness{
			ResumeID:          id,
			ResumeTitle:       titles[id],
			ApplicationsCount: a.applications,
			ResponsesCount:    a.responses,
			InterviewsCount:   a.interviews,
			ResponseRate:      rate,
		})
	}
	sort.Slice(resumes, func(i, j int) bool {
		if resumes[i].ApplicationsCount != resumes[j].ApplicationsCount {
			return resumes[i].ApplicationsCount > resumes[j].ApplicationsCount
		}
		return resumes[i].ResumeTitle < resumes[j].ResumeTitle
	})
	return &model.ResumeAnalytics{Resumes: resumes}, nil
}

func (r *AnalyticsRepository) resumeTitles(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title FROM resumes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		out[id] = title
	}
	return out, rows.Err()
}

// GetSourceAnalytics returns metrics grouped by job source
func (r *AnalyticsRepository) GetSourceAnalytics(ctx context.Context, userID string) (*model.SourceAnalytics, error) {
	rows, err := r.fetchRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	type acc struct {
		applications, responses int
	}
	bySource := map[string]*acc{}
	for _, rr := range rows {
		a, ok := bySource[rr.JobSource]
		if !ok {
			a = &acc{}
			bySource[rr.JobSource] = a
		}
		a.applications++
		if rr.hasResponded() {
			a.responses++
		}
	}

	var sources []model.SourceMetrics
	for name, a := range bySource {
		rate := 0.0
		if a.applications > 0 {
			rate = round2(float64(a.responses) / float64(a.applications) * 100)
		}
		sources = append(sources, model.SourceMetrics{
			SourceName:        name,
			ApplicationsCount: a.applications,
			ResponsesCount:    a.responses,
			ConversionRate:    rate,
		})
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ApplicationsCount != sources[j].ApplicationsCount {
			return sources[i].ApplicationsCount > sources[j].ApplicationsCount
		}
		return sources[i].SourceName < sources[j].SourceName
	})
	return &model.SourceAnalytics{Sources: sources}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func humanize(status string) string {
	out := []rune(status)
	for i, c := range out {
		if c == '_' {
			out[i] = ' '
		}
	}
	return string(out)
}
