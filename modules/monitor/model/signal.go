package model

import "time"

// SignalSource is which probe step produced a signal.
type SignalSource string

const (
	SourcePortal  SignalSource = "portal"
	SourceMailbox SignalSource = "mailbox"
	SourceThread  SignalSource = "thread"
)

// SignalKey is the closed set of fused outcomes a probe round can settle
// on, ordered by precedence (spec §4.9 step 4): rejected beats offer beats
// interview beats in_review beats applied.
type SignalKey string

const (
	SignalRejected  SignalKey = "rejected"
	SignalOffer     SignalKey = "offer"
	SignalInterview SignalKey = "interview"
	SignalInReview  SignalKey = "in_review"
	SignalApplied   SignalKey = "applied"
)

// Precedence is SignalKey ordered highest to lowest; Fuse picks the first
// key present among the round's signals.
var Precedence = []SignalKey{SignalRejected, SignalOffer, SignalInterview, SignalInReview, SignalApplied}

// Signal is one piece of evidence gathered during a probe round.
type Signal struct {
	Source     SignalSource
	Key        SignalKey
	Confidence float64 // 1.0 for deterministic portal signals
	Timestamp  time.Time
	MessageID  string // set for mailbox/thread signals
}

// NewMessage is one inbound message discovered during the mailbox or
// thread probe, carried forward so the caller can append a communication
// entry for it regardless of whether it produced a status signal.
type NewMessage struct {
	ID        string
	ThreadID  string
	From      string
	Subject   string
	Snippet   string
	Timestamp time.Time
}

// Fuse returns the highest-precedence signal key among signals, or ("",
// false) if none were gathered this round.
func Fuse(signals []Signal) (SignalKey, bool) {
	present := make(map[SignalKey]bool, len(signals))
	for _, s := range signals {
		present[s.Key] = true
	}
	for _, key := range Precedence {
		if present[key] {
			return key, true
		}
	}
	return "", false
}
