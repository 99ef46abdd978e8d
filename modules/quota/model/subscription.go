package model

import "time"

// Subscription is one user's plan enrollment and live usage counters.
// "Usage reset date" is independent of billing interval (glossary): a
// yearly plan still resets counters every 30 days.
type Subscription struct {
	ID             string
	UserID         string
	PlanID         PlanID
	CurrentUsage   map[EventType]int
	UsageResetDate time.Time
	BillingPeriodStart time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSubscription creates a fresh free-tier subscription for a new user.
func NewSubscription(userID string) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		UserID:             userID,
		PlanID:             PlanFree,
		CurrentUsage:       map[EventType]int{},
		UsageResetDate:     now.AddDate(0, 0, 30),
		BillingPeriodStart: now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Plan resolves the subscription's fixed plan definition.
func (s *Subscription) Plan() Plan {
	return Plans[s.PlanID]
}

// UsageEvent is one append-only record of a tracked usage increment.
type UsageEvent struct {
	ID                 string
	UserID             string
	EventType          EventType
	Quantity           int
	BillingPeriodStart time.Time
	Timestamp          time.Time
	IdempotencyKey      string
}
