package ports

import (
	"context"

	jobsModel "github.com/andreypavlenko/jobber/modules/jobs/model"
	quotaModel "github.com/andreypavlenko/jobber/modules/quota/model"
	resumesModel "github.com/andreypavlenko/jobber/modules/resumes/model"
	tailoringModel "github.com/andreypavlenko/jobber/modules/tailoring/model"
)

// TransitionInput carries everything a submission outcome might need to
// write onto the application aggregate in one call. Fields left at their
// zero value are left untouched by the implementation.
type TransitionInput struct {
	NewStatus                string
	ThreadID                 string
	ApplicationURL           string
	ApplicationDomain        string
	EmailMonitoringEnabled   *bool
	VerificationPortalDomain string
}

// ApplicationGateway is the narrow slice of the Application Lifecycle
// Controller (C8) the submission router needs: drive a transition (C8 owns
// appending the timeline event and firing the notification) or, for the
// recognized login-wall exception, remove the application and its parent
// job outright, in one transaction (spec.md:152 — a login-walled job is
// unusable, not just this one application attempt).
type ApplicationGateway interface {
	Transition(ctx context.Context, appID string, input TransitionInput) error
	HardDelete(ctx context.Context, appID, jobID string) error
}

// QuotaGate is the slice of C10 the router needs: a pure lookahead to fail
// fast, and a commit called only once the submission actually succeeds.
// Nothing is decremented on failure, so "release the reservation" falls
// out of never having committed to begin with.
type QuotaGate interface {
	Check(ctx context.Context, userID string, event quotaModel.EventType, qty int) (allowed bool, current, limit int, err error)
	Track(ctx context.Context, userID string, event quotaModel.EventType, qty int, idempotencyKey string) error
}

// TailoringPipeline is the slice of C4 the router needs to produce the
// attached CV and cover letter text before composing the outbound message.
type TailoringPipeline interface {
	Run(ctx context.Context, cv *resumesModel.ParsedCV, job *jobsModel.Job, tone tailoringModel.Tone) (*tailoringModel.PipelineResult, error)
}

// JobScheduler is the slice of C12 the router needs: enqueue a monitor
// probe once a browser-path submission starts or completes. Satisfied by
// internal/platform/queue.Queue.
type JobScheduler interface {
	Enqueue(ctx context.Context, topic, idempotencyKey string, payload any) error
}
