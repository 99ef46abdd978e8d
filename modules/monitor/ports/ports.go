// Package ports declares the narrow, monitor-owned interfaces the hybrid
// response monitor depends on for peer modules that have no repository-
// shaped contract of their own (the application lifecycle controller, the
// email classifier). Each interface is satisfied by the peer module's
// concrete service; monitor depends only on the slice of behavior it
// actually calls.
package ports

import (
	"context"
	"time"

	classifierModel "github.com/andreypavlenko/jobber/modules/classifier/model"
	"github.com/andreypavlenko/jobber/modules/monitor/model"
)

// ApplicationGateway is the seam into the application lifecycle controller.
// RequestTransition applies a status change subject to the controller's own
// transition-table and terminal-state rules; monitor never mutates status
// directly. AppendCommunication records one inbound message regardless of
// whether it produced a status signal. UpdateProbeMetadata stamps the
// application's last-checked bookkeeping at the end of a round.
type ApplicationGateway interface {
	RequestTransition(ctx context.Context, appID, newStatus string) error
	AppendCommunication(ctx context.Context, appID string, msg model.NewMessage) error
	UpdateProbeMetadata(ctx context.Context, appID string, lastCheck time.Time, checkCount int) error
}

// ClassifierGate is the narrow slice of the email classifier monitor needs:
// classify one message body against the closed response-category set.
type ClassifierGate interface {
	Analyze(ctx context.Context, subject, body, sender, appID string, useLLM bool) *classifierModel.AnalysisResult
}
