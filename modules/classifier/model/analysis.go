package model

// Category is the closed set of email-response categories (spec §4.5).
type Category string

const (
	CategoryInterviewInvitation Category = "interview_invitation"
	CategoryRejection           Category = "rejection"
	CategoryOffer               Category = "offer"
	CategoryInformationRequest  Category = "information_request"
	CategoryFollowUpRequired    Category = "follow_up_required"
	CategoryAcknowledgment      Category = "acknowledgment"
	CategorySchedulingRequest   Category = "scheduling_request"
	CategoryUnknown             Category = "unknown"
)

// MinConfidenceForTransition is the gate below which C8 must not apply a
// suggested status transition (spec §4.5 step 4).
const MinConfidenceForTransition = 0.6

// MinConfidenceForDeterministic is the deterministic-pass confidence below
// which the LLM pass runs (spec §4.5 step 2).
const MinConfidenceForDeterministic = 0.75

// ExtractedInfo carries the slots the classifier could pull out of the
// message body, independent of category.
type ExtractedInfo struct {
	Dates    []string
	Times    []string
	Location string
}

// ActionType is the closed set of follow-up actions a classification can
// suggest to the caller.
type ActionType string

const (
	ActionScheduleInterview ActionType = "schedule_interview"
	ActionRespondToRequest  ActionType = "respond_to_request"
	ActionNone              ActionType = "none"
)

// AnalysisResult is the output of Analyze.
type AnalysisResult struct {
	Category          Category
	Confidence        float64
	SuggestedStatus   string
	RequiresAction    bool
	ActionType        ActionType
	ActionDetails     string
	KeywordsMatched   []string
	ExtractedInfo     ExtractedInfo
	LLMUsed           bool
}
