package service

import (
	"strings"

	"github.com/andreypavlenko/jobber/internal/platform/browser"
	appModel "github.com/andreypavlenko/jobber/modules/applications/model"
	classifierModel "github.com/andreypavlenko/jobber/modules/classifier/model"
	"github.com/andreypavlenko/jobber/modules/monitor/model"
)

// portalSignalKey maps a /check-status result onto the fused signal set.
// Unrecognized or unmatched portal statuses produce no signal at all.
func portalSignalKey(status string) (model.SignalKey, bool) {
	switch status {
	case browser.PortalApplied:
		return model.SignalApplied, true
	case browser.PortalInReview:
		return model.SignalInReview, true
	case browser.PortalInterview:
		return model.SignalInterview, true
	case browser.PortalOffer:
		return model.SignalOffer, true
	case browser.PortalRejected:
		return model.SignalRejected, true
	default:
		return "", false
	}
}

// classifierSignalKey maps a classifier category onto the fused signal set.
// Categories that describe a follow-up request rather than a status change
// (information_request, follow_up_required, scheduling_request, unknown)
// produce no signal; the message is still recorded as a communication.
func classifierSignalKey(category classifierModel.Category) (model.SignalKey, bool) {
	switch category {
	case classifierModel.CategoryInterviewInvitation:
		return model.SignalInterview, true
	case classifierModel.CategoryRejection:
		return model.SignalRejected, true
	case classifierModel.CategoryOffer:
		return model.SignalOffer, true
	case classifierModel.CategoryAcknowledgment:
		return model.SignalInReview, true
	default:
		return "", false
	}
}

func isTerminal(status string) bool {
	return appModel.IsTerminal(strings.ToLower(status))
}

// acknowledgmentGuardAllows restricts the classifier acknowledgment →
// under_review transition to applications currently applied or submitted —
// a misclassified acknowledgment must never regress a later status (e.g.
// interview_scheduled) back to under_review.
func acknowledgmentGuardAllows(currentStatus string) bool {
	switch appModel.Status(strings.ToLower(currentStatus)) {
	case appModel.StatusApplied, appModel.StatusSubmitted:
		return true
	default:
		return false
	}
}
