package ports

import (
	"context"
	"time"

	"github.com/andreypavlenko/jobber/modules/applications/model"
	notificationsModel "github.com/andreypavlenko/jobber/modules/notifications/model"
)

// ListOptions represents options for listing applications, including
// spec.md's mandatory filter set (status, company substring, priority,
// applied-date range, has-interviews, needs-follow-up, has-response,
// free-text). A zero-valued field means "don't filter on this".
type ListOptions struct {
	Limit   int
	Offset  int
	SortBy  string // "last_activity", "status", "applied_at"
	SortDir string // "asc", "desc"

	Status        string // exact status match
	Company       string // case-insensitive substring match against the job's company name
	Priority      string // exact priority match
	AppliedAfter  *time.Time
	AppliedBefore *time.Time
	HasInterviews *bool // true: at least one interview recorded; false: none
	NeedsFollowUp bool  // follow_up_date is set and has passed
	HasResponse   *bool // true: status in the core response set, or an inbound communication exists
	Query         string // case-insensitive substring match against title/company/location
}

// Stats is the aggregate counters C8 derives over a user's applications.
type Stats struct {
	ByStatus       map[model.Status]int
	TotalToday     int
	TotalThisWeek  int
	TotalThisMonth int
	InterviewRate  float64
	ResponseRate   float64
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, userID, appID string) (*model.Application, error)
	// GetByIDAny looks an application up without scoping to a user, for the
	// submission and monitor gateways which only ever carry an application id.
	GetByIDAny(ctx context.Context, appID string) (*model.Application, error)
	List(ctx context.Context, userID string, opts *ListOptions) ([]*model.Application, int, error)
	ListAll(ctx context.Context, userID string) ([]*model.Application, error)
	ListMonitorable(ctx context.Context) ([]*model.Application, error)
	// ListByStatus returns every non-deleted application in the given
	// status across all users, for C12's verification_sweep.
	ListByStatus(ctx context.Context, status string) ([]*model.Application, error)
	Update(ctx context.Context, app *model.Application) error
	SoftDelete(ctx context.Context, userID, appID string) error
	// HardDelete removes the application and, in the same transaction, its
	// parent job — spec.md:152's login-wall exception treats both rows as
	// unusable together, not just the one application attempt.
	HardDelete(ctx context.Context, appID, jobID string) error
	GetLastActivityAt(ctx context.Context, appID string) (time.Time, error)
}

// Notifier is the narrow slice of the notification dispatcher (C11) the
// lifecycle controller needs: fire one notification keyed by trigger type.
// Defined here rather than depended on via notifications' concrete service
// since C11 has no repository-shaped port of its own.
type Notifier interface {
	Notify(ctx context.Context, userID string, typ notificationsModel.NotificationType, title, message string, data map[string]any, channels []notificationsModel.Channel) (*notificationsModel.NotificationDTO, error)
}
