package service

import (
	"context"
	"regexp"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthService is the demo login gate. There is no real credential check:
// the password is a single shared demo value and possession of any
// subscription for the email is what grants a session.
type AuthService interface {
	Login(ctx context.Context, browserID, email, password string) (*model.Session, error)
	Logout(ctx context.Context, browserID string) error
	CurrentSession(ctx context.Context, browserID string) (*model.Session, error)
}

type authService struct {
	sessions     repository.SessionRepository
	subscription SubscriptionService
	demoPassword string
	sessionTTL   time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

func NewAuthService(sessions repository.SessionRepository, subscription SubscriptionService, demoPassword string, sessionTTL time.Duration, logger zerolog.Logger) AuthService {
	return &authService{
		sessions:     sessions,
		subscription: subscription,
		demoPassword: demoPassword,
		sessionTTL:   sessionTTL,
		logger:       logger.With().Str("service", "AuthService").Logger(),
		now:          time.Now,
	}
}

func (s *authService) Login(ctx context.Context, browserID, email, password string) (*model.Session, error) {
	if !emailPattern.MatchString(email) {
		return nil, newUserError("Please enter a valid email address.")
	}
	if password != s.demoPassword {
		return nil, newUserError("Incorrect password.")
	}

	check, err := s.subscription.CheckSubscriptions(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(check.Subscriptions) == 0 {
		return nil, newUserError("No subscription found for this email. Please purchase a subscription first.")
	}

	session := &model.Session{
		Email:         email,
		Subscriptions: check.Subscriptions,
		ExpiresAt:     s.now().Add(s.sessionTTL),
	}
	if check.Account != nil {
		session.FirstName = check.Account.FirstName
		session.LastName = check.Account.LastName
	}

	if err := s.sessions.Save(ctx, browserID, session); err != nil {
		return nil, err
	}
	s.logger.Info().Str("email", email).Int("subscriptions", len(check.Subscriptions)).Msg("Login succeeded")
	return session, nil
}

func (s *authService) Logout(ctx context.Context, browserID string) error {
	return s.sessions.Delete(ctx, browserID)
}

// CurrentSession returns the live session for a browser, or nil when there
// is none. An expired session is purged on read and reported as absent.
func (s *authService) CurrentSession(ctx context.Context, browserID string) (*model.Session, error) {
	session, err := s.sessions.Get(ctx, browserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, browserID); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to purge expired session")
		}
		return nil, nil
	}
	return session, nil
}
