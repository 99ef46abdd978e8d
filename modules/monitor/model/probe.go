package model

import "time"

// ProbeInput is everything the monitor needs about one application to run
// a round, gathered by the caller (the monitor_tick worker) since the
// Application Lifecycle Controller's storage shape is out of this
// package's concern.
type ProbeInput struct {
	ApplicationID      string
	CurrentStatus      string
	ApplicationURL     string // empty if none
	RecipientEmail     string // empty if none
	ThreadID           string // empty if no thread stored
	AppliedDate        time.Time
	IsAutoApply        bool
	LastOutboundSentAt time.Time
}

// SearchWindow returns the lower bound for the mailbox probe's Gmail query,
// per spec §4.9 step 2: applied_date for auto-apply, now-30d for manual.
func (p ProbeInput) SearchWindow(now time.Time) time.Time {
	if p.IsAutoApply && !p.AppliedDate.IsZero() {
		return p.AppliedDate
	}
	return now.AddDate(0, 0, -30)
}

// ProbeResult summarizes one completed round.
type ProbeResult struct {
	NewStatus           string // empty if no transition was applied
	SignalsGathered     int
	CommunicationsAdded int
}

// VerifyInput is what C12's verification_sweep needs about one
// pending_verification application to look for a confirmation email and
// follow its link.
type VerifyInput struct {
	ApplicationID     string
	RecipientEmail    string // where the verification mail was expected to land, for the search window only
	VerificationDomain string
	SentAt            time.Time
}

// VerifyResult reports whether a verification link was found and followed.
type VerifyResult struct {
	Verified bool
	Status   string // the browser worker's check-status string, if a link was followed
}
