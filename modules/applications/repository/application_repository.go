package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andreypavlenko/jobber/modules/applications/model"
	"github.com/andreypavlenko/jobber/modules/applications/ports"
)

type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

const baseColumns = `
	id, user_id, job_id, resume_id, name, status, source, priority,
	applied_at, application_url, application_domain, recipient_email, email_thread_id, last_outbound_sent_at,
	documents, communications, interviews, tasks, timeline,
	email_monitoring_enabled, last_response_check, response_check_count,
	follow_up_date, next_follow_up, follow_up_count,
	verification_portal_domain, notes,
	created_at, updated_at, deleted_at
`

func (r *ApplicationRepository) Create(ctx context.Context, app *model.Application) error {
	app.ID = uuid.New().String()
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	jsonCols, err := marshalChildren(app)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO applications (
			id, user_id, job_id, resume_id, name, status, source, priority,
			applied_at, application_url, application_domain, recipient_email, email_thread_id, last_outbound_sent_at,
			documents, communications, interviews, tasks, timeline,
			email_monitoring_enabled, last_response_check, response_check_count,
			follow_up_date, next_follow_up, follow_up_count,
			verification_portal_domain, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19,
			$20, $21, $22,
			$23, $24, $25,
			$26, $27,
			$28, $29
		)
	`
	_, err = r.pool.Exec(ctx, query,
		app.ID, app.UserID, app.JobID, app.ResumeID, app.Name, app.Status, app.Source, app.Priority,
		app.AppliedAt, app.ApplicationURL, app.ApplicationDomain, app.RecipientEmail, app.EmailThreadID, app.LastOutboundSentAt,
		jsonCols.documents, jsonCols.communications, jsonCols.interviews, jsonCols.tasks, jsonCols.timeline,
		app.EmailMonitoringEnabled, app.LastResponseCheck, app.ResponseCheckCount,
		app.FollowUpDate, app.NextFollowUp, app.FollowUpCount,
		app.VerificationPortalDomain, app.Notes,
		app.CreatedAt, app.UpdatedAt,
	)
	return err
}

func (r *ApplicationRepository) GetByID(ctx context.Context, userID, appID string) (*model.Application, error) {
	query := `SELECT ` + baseColumns + ` FROM applications WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	return scanOneRow(r.pool.QueryRow(ctx, query, appID, userID))
}

func (r *ApplicationRepository) GetByIDAny(ctx context.Context, appID string) (*model.Application, error) {
	query := `SELECT ` + baseColumns + ` FROM applications WHERE id = $1`
	return scanOneRow(r.pool.QueryRow(ctx, query, appID))
}

// responseStatusList is model.ResponseStatuses rendered as a literal SQL
// array for the has-response filter, kept in lockstep with that map by
// init below, which builds it once at package load.
var responseStatusList string

func init() {
	keys := make([]string, 0, len(model.ResponseStatuses))
	for status := range model.ResponseStatuses {
		keys = append(keys, string(status))
	}
	sort.Strings(keys)
	responseStatusList = "'" + strings.Join(keys, "','") + "'"
}

// buildListFilters turns ListOptions' filter fields into additional WHERE
// conditions, appending placeholders after argIndex and returning the
// updated arg list and next free index. Every dynamic value is bound as a
// parameter; none are interpolated into the SQL text.
func buildListFilters(opts *ports.ListOptions, args []any, argIndex int) ([]string, []any, int) {
	var conditions []string

	if opts.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, opts.Status)
		argIndex++
	}
	if opts.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", argIndex))
		args = append(args, opts.Priority)
		argIndex++
	}
	if opts.Company != "" {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM jobs j JOIN companies c ON c.id = j.company_id
			WHERE j.id = applications.job_id AND c.name ILIKE $%d
		)`, argIndex))
		args = append(args, "%"+opts.Company+"%")
		argIndex++
	}
	if opts.AppliedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("applied_at >= $%d", argIndex))
		args = append(args, *opts.AppliedAfter)
		argIndex++
	}
	if opts.AppliedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("applied_at <= $%d", argIndex))
		args = append(args, *opts.AppliedBefore)
		argIndex++
	}
	if opts.HasInterviews != nil {
		if *opts.HasInterviews {
			conditions = append(conditions, "jsonb_array_length(interviews) > 0")
		} else {
			conditions = append(conditions, "jsonb_array_length(interviews) = 0")
		}
	}
	if opts.NeedsFollowUp {
		conditions = append(conditions, "follow_up_date IS NOT NULL AND follow_up_date <= now()")
	}
	if opts.HasResponse != nil {
		hasResponseExpr := fmt.Sprintf(`(
			status IN (%s)
			OR EXISTS (SELECT 1 FROM jsonb_array_elements(communications) AS msg WHERE msg->>'direction' = 'inbound')
		)`, responseStatusList)
		if *opts.HasResponse {
			conditions = append(conditions, hasResponseExpr)
		} else {
			conditions = append(conditions, "NOT "+hasResponseExpr)
		}
	}
	if opts.Query != "" {
		conditions = append(conditions, fmt.Sprintf(`(
			name ILIKE $%d
			OR EXISTS (
				SELECT 1 FROM jobs j JOIN companies c ON c.id = j.company_id
				WHERE j.id = applications.job_id AND (c.name ILIKE $%d OR c.location ILIKE $%d)
			)
		)`, argIndex, argIndex, argIndex))
		args = append(args, "%"+opts.Query+"%")
		argIndex++
	}

	return conditions, args, argIndex
}

func (r *ApplicationRepository) List(ctx context.Context, userID string, opts *ports.ListOptions) ([]*model.Application, int, error) {
	baseArgs := []any{userID}
	conditions, baseArgs, nextIndex := buildListFilters(opts, baseArgs, 2)
	where := "user_id = $1 AND deleted_at IS NULL"
	for _, cond := range conditions {
		where += " AND " + cond
	}

	countQuery := `SELECT COUNT(*) FROM applications WHERE ` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, baseArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol := "applied_at"
	switch opts.SortBy {
	case "status":
		sortCol = "status"
	case "last_activity":
		sortCol = "updated_at"
	case "applied_at":
		sortCol = "applied_at"
	}
	sortDir := "DESC"
	if strings.EqualFold(opts.SortDir, "asc") {
		sortDir = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM applications WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		baseColumns, where, sortCol, sortDir, nextIndex, nextIndex+1)
	queryArgs := append(append([]any{}, baseArgs...), opts.Limit, opts.Offset)

	rows, err := r.pool.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps, err := scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *ApplicationRepository) ListAll(ctx context.Context, userID string) ([]*model.Application, error) {
	query := `SELECT ` + baseColumns + ` FROM applications WHERE user_id = $1 AND deleted_at IS NULL ORDER BY applied_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListMonitorable returns every non-terminal, monitoring-enabled application
// across all users that is due for a probe, for the periodic response-monitor
// tick. "Due" is gated to once an hour per application (spec.md's default
// monitor cadence) independent of how often the tick itself runs.
func (r *ApplicationRepository) ListMonitorable(ctx context.Context) ([]*model.Application, error) {
	query := `
		SELECT ` + baseColumns + ` FROM applications
		WHERE deleted_at IS NULL
		  AND email_monitoring_enabled = true
		  AND status NOT IN ('offer_accepted', 'offer_declined', 'rejected', 'withdrawn', 'archived')
		  AND (last_response_check IS NULL OR last_response_check <= now() - interval '1 hour')
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListByStatus returns every non-deleted application across all users
// currently sitting in the given status, for the periodic verification
// sweep (C12's verification_sweep targets every pending_verification row).
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status string) ([]*model.Application, error) {
	query := `SELECT ` + baseColumns + ` FROM applications WHERE deleted_at IS NULL AND status = $1`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (r *ApplicationRepository) Update(ctx context.Context, app *model.Application) error {
	app.UpdatedAt = time.Now().UTC()
	jsonCols, err := marshalChildren(app)
	if err != nil {
		return err
	}

	query := `
		UPDATE applications SET
			name = $3, status = $4, source = $5, priority = $6,
			applied_at = $7, application_url = $8, application_domain = $9, recipient_email = $10, email_thread_id = $11, last_outbound_sent_at = $12,
			documents = $13, communications = $14, interviews = $15, tasks = $16, timeline = $17,
			email_monitoring_enabled = $18, last_response_check = $19, response_check_count = $20,
			follow_up_date = $21, next_follow_up = $22, follow_up_count = $23,
			verification_portal_domain = $24, notes = $25,
			updated_at = $26
		WHERE id = $1 AND user_id = $2
	`
	result, err := r.pool.Exec(ctx, query,
		app.ID, app.UserID,
		app.Name, app.Status, app.Source, app.Priority,
		app.AppliedAt, app.ApplicationURL, app.ApplicationDomain, app.RecipientEmail, app.EmailThreadID, app.LastOutboundSentAt,
		jsonCols.documents, jsonCols.communications, jsonCols.interviews, jsonCols.tasks, jsonCols.timeline,
		app.EmailMonitoringEnabled, app.LastResponseCheck, app.ResponseCheckCount,
		app.FollowUpDate, app.NextFollowUp, app.FollowUpCount,
		app.VerificationPortalDomain, app.Notes,
		app.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrApplicationNotFound
	}
	return nil
}

func (r *ApplicationRepository) SoftDelete(ctx context.Context, userID, appID string) error {
	query := `UPDATE applications SET deleted_at = $3, updated_at = $3 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	result, err := r.pool.Exec(ctx, query, appID, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrApplicationNotFound
	}
	return nil
}

// HardDelete removes the application row and its parent job row in a
// single transaction, for the login-wall exception where the job itself
// is unusable, not just this one application attempt (spec.md:152).
func (r *ApplicationRepository) HardDelete(ctx context.Context, appID, jobID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `DELETE FROM applications WHERE id = $1`, appID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrApplicationNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetLastActivityAt derives the most recent touch: the row's own updated_at,
// or the latest timestamp recorded in its timeline, whichever is later.
func (r *ApplicationRepository) GetLastActivityAt(ctx context.Context, appID string) (time.Time, error) {
	query := `
		SELECT GREATEST(
			updated_at,
			COALESCE((SELECT MAX((event->>'created_at')::timestamptz) FROM jsonb_array_elements(timeline) AS event), updated_at)
		)
		FROM applications WHERE id = $1
	`
	var lastActivity time.Time
	err := r.pool.QueryRow(ctx, query, appID).Scan(&lastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, model.ErrApplicationNotFound
	}
	return lastActivity, err
}

type jsonChildren struct {
	documents, communications, interviews, tasks, timeline []byte
}

func marshalChildren(app *model.Application) (jsonChildren, error) {
	var cols jsonChildren
	var err error
	if cols.documents, err = json.Marshal(app.Documents); err != nil {
		return cols, err
	}
	if cols.communications, err = json.Marshal(app.Communications); err != nil {
		return cols, err
	}
	if cols.interviews, err = json.Marshal(app.Interviews); err != nil {
		return cols, err
	}
	if cols.tasks, err = json.Marshal(app.Tasks); err != nil {
		return cols, err
	}
	if cols.timeline, err = json.Marshal(app.Timeline); err != nil {
		return cols, err
	}
	return cols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOneRow(row pgx.Row) (*model.Application, error) {
	app, err := scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

func scan(row rowScanner) (*model.Application, error) {
	app := &model.Application{}
	var documentsRaw, communicationsRaw, interviewsRaw, tasksRaw, timelineRaw []byte

	err := row.Scan(
		&app.ID, &app.UserID, &app.JobID, &app.ResumeID, &app.Name, &app.Status, &app.Source, &app.Priority,
		&app.AppliedAt, &app.ApplicationURL, &app.ApplicationDomain, &app.RecipientEmail, &app.EmailThreadID, &app.LastOutboundSentAt,
		&documentsRaw, &communicationsRaw, &interviewsRaw, &tasksRaw, &timelineRaw,
		&app.EmailMonitoringEnabled, &app.LastResponseCheck, &app.ResponseCheckCount,
		&app.FollowUpDate, &app.NextFollowUp, &app.FollowUpCount,
		&app.VerificationPortalDomain, &app.Notes,
		&app.CreatedAt, &app.UpdatedAt, &app.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalIfPresent(documentsRaw, &app.Documents); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(communicationsRaw, &app.Communications); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(interviewsRaw, &app.Interviews); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(tasksRaw, &app.Tasks); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(timelineRaw, &app.Timeline); err != nil {
		return nil, err
	}
	return app, nil
}

func unmarshalIfPresent(raw []byte, target any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, target)
}

func scanRows(rows pgx.Rows) ([]*model.Application, error) {
	var apps []*model.Application
	for rows.Next() {
		app, err := scan(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}
