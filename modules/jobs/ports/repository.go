package ports

import (
	"context"
	"time"

	"github.com/andreypavlenko/jobber/modules/jobs/model"
)

// JobRepository defines the interface for job data access
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, userID, jobID string) (*model.Job, error)
	List(ctx context.Context, userID string, limit, offset int, status, sortBy, sortOrder string) ([]*model.JobDTO, int, error)
	Update(ctx context.Context, job *model.Job) error
	Delete(ctx context.Context, userID, jobID string) error
	// ExpireStale moves active jobs older than cutoff to expired, for C12's
	// daily job_expiry_tick. Returns the number of rows moved.
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}
