package model

import (
	"strings"
	"time"
)

// Lifecycle states as Recurly reports them.
const (
	StateActive   = "active"
	StatePaused   = "paused"
	StateCanceled = "canceled"
	StateExpired  = "expired"
	StateFuture   = "future"
)

// pausedAtRecencyWindow bounds the pausedAt heuristic in ReconcileState. A
// stale paused_at with no resume date is ignored after this long.
const pausedAtRecencyWindow = 30 * 24 * time.Hour

// Subscription is the provider-side subscription record. UUID and ID are
// both kept because Recurly addresses some operations by one and some by
// the other.
type Subscription struct {
	UUID                 string     `json:"uuid"`
	ID                   string     `json:"id"`
	State                string     `json:"state"`
	PlanCode             string     `json:"planCode"`
	PlanName             string     `json:"planName"`
	Quantity             int        `json:"quantity"`
	UnitAmount           float64    `json:"unitAmount"`
	Currency             string     `json:"currency"`
	AccountID            string     `json:"accountId"`
	CurrentPeriodStart   *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	CurrentTermEndsAt    *time.Time `json:"currentTermEndsAt,omitempty"`
	PausedAt             *time.Time `json:"pausedAt,omitempty"`
	ResumeAt             *time.Time `json:"resumeAt,omitempty"`
	RemainingPauseCycles int        `json:"remainingPauseCycles"`
	CanceledAt           *time.Time `json:"canceledAt,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	TrialEndsAt          *time.Time `json:"trialEndsAt,omitempty"`
}

// ReconcileState computes the lifecycle state used for display and UI
// gating. Recurly's own state field lags reality after a pause is
// scheduled, so an "active" subscription with pause indicators is reported
// as paused here. Operations sent back to Recurly must keep using the
// literal State field; Recurly rejects e.g. a resume unless its internal
// state is paused.
//
// Precedence, highest first:
//  1. A non-active literal state is returned as-is (lowercased). Recurly is
//     authoritative for everything except the active/paused ambiguity.
//  2. remainingPauseCycles > 0 means a pause is scheduled or in effect.
//  3. pausedAt set with no resume date, and recent (within 30 days), is
//     treated as paused. Older pausedAt values are assumed stale.
//  4. Otherwise active.
//
// When signals 2 and 3 disagree with the provider the pause indicators win
// for display. Whether that is always the right call is unresolved with the
// provider; see DESIGN.md.
func (s *Subscription) ReconcileState(now time.Time) string {
	state := strings.ToLower(s.State)
	if state != StateActive {
		return state
	}
	if s.RemainingPauseCycles > 0 {
		return StatePaused
	}
	if s.PausedAt != nil && s.ResumeAt == nil && now.Sub(*s.PausedAt) < pausedAtRecencyWindow {
		return StatePaused
	}
	return StateActive
}

// SubscriptionView is the display projection returned by the
// check-subscriptions endpoint and snapshotted into sessions. State is the
// reconciled state; OriginalState keeps the provider's literal value so the
// UI can route operations correctly.
type SubscriptionView struct {
	UUID                 string     `json:"uuid"`
	ID                   string     `json:"id"`
	State                string     `json:"state"`
	OriginalState        string     `json:"originalState"`
	PlanCode             string     `json:"planCode"`
	PlanName             string     `json:"planName"`
	Quantity             int        `json:"quantity"`
	UnitAmount           float64    `json:"unitAmount"`
	Currency             string     `json:"currency"`
	AccountID            string     `json:"accountId"`
	CurrentPeriodStart   *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	CurrentTermEndsAt    *time.Time `json:"currentTermEndsAt,omitempty"`
	PausedAt             *time.Time `json:"pausedAt,omitempty"`
	RemainingPauseCycles int        `json:"remainingPauseCycles"`
	CanceledAt           *time.Time `json:"canceledAt,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	TrialEndsAt          *time.Time `json:"trialEndsAt,omitempty"`
}

// View builds the display projection for a subscription.
func (s *Subscription) View(now time.Time) SubscriptionView {
	return SubscriptionView{
		UUID:                 s.UUID,
		ID:                   s.ID,
		State:                s.ReconcileState(now),
		OriginalState:        s.State,
		PlanCode:             s.PlanCode,
		PlanName:             s.PlanName,
		Quantity:             s.Quantity,
		UnitAmount:           s.UnitAmount,
		Currency:             s.Currency,
		AccountID:            s.AccountID,
		CurrentPeriodStart:   s.CurrentPeriodStart,
		CurrentPeriodEnd:     s.CurrentPeriodEnd,
		CurrentTermEndsAt:    s.CurrentTermEndsAt,
		PausedAt:             s.PausedAt,
		RemainingPauseCycles: s.RemainingPauseCycles,
		CanceledAt:           s.CanceledAt,
		ExpiresAt:            s.ExpiresAt,
		TrialEndsAt:          s.TrialEndsAt,
	}
}
