package model

import "time"

// Session is a demo login session for one browser. Subscriptions is the
// snapshot taken at login time; it is not refreshed until the next login.
type Session struct {
	Email         string             `json:"email"`
	FirstName     string             `json:"firstName,omitempty"`
	LastName      string             `json:"lastName,omitempty"`
	Subscriptions []SubscriptionView `json:"subscriptions,omitempty"`
	ExpiresAt     time.Time          `json:"expiresAt"`
}

// Expired reports whether the session's absolute expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
