// Package auth manages sign-up, sign-in and sessions for readers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Errors returned to readers verbatim.
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrUserExists         = errors.New("User already registered")
	ErrWeakPassword       = fmt.Errorf("Password should be at least %d characters", MinPasswordLength)
	ErrInvalidEmail       = errors.New("Unable to validate email address: invalid format")
	ErrMissingUsername    = errors.New("Username is required")
	ErrInvalidToken       = errors.New("Token has expired or is invalid")
	ErrNoSession          = errors.New("Auth session missing")
)

// IsAuthError reports whether err belongs to the reader-facing auth set.
func IsAuthError(err error) bool {
	for _, target := range []error{
		ErrInvalidCredentials, ErrEmailNotConfirmed, ErrUserExists, ErrWeakPassword,
		ErrInvalidEmail, ErrMissingUsername, ErrInvalidToken, ErrNoSession,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Options configures a Service.
type Options struct {
	SessionTTL               time.Duration
	RequireEmailConfirmation bool
}

// Service signs readers up and in against the backing store.
type Service struct {
	store   database.Store
	opts    Options
	logger  *slog.Logger
	hub     *hub
	now     func() time.Time
	hashing int
}

// NewService creates an auth service.
func NewService(store database.Store, opts Options, logger *slog.Logger) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	return &Service{
		store:   store,
		opts:    opts,
		logger:  logger,
		hub:     newHub(),
		now:     func() time.Time { return time.Now().UTC() },
		hashing: bcrypt.DefaultCost,
	}
}

// SignUpResult is returned by SignUp.
type SignUpResult struct {
	User *model.User
	// ConfirmationToken is empty when confirmation is not required.
	ConfirmationToken string
}

// SignUp creates the auth identity and the profile row together.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (*SignUpResult, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if username == "" {
		return nil, ErrMissingUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashing)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	id := uuid.NewString()
	identity := &model.Identity{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if s.opts.RequireEmailConfirmation {
		identity.ConfirmationToken = uuid.NewString()
	} else {
		identity.ConfirmedAt = &now
	}
	user := &model.User{
		ID:               id,
		Username:         username,
		Email:            email,
		SubscriptionTier: model.TierFree,
		IsActive:         true,
		Role:             model.RoleRegular,
		CreatedAt:        now,
	}

	if err := s.store.CreateAccount(ctx, identity, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info("user signed up", "user_id", id, "confirmation_required", s.opts.RequireEmailConfirmation)
	return &SignUpResult{User: user, ConfirmationToken: identity.ConfirmationToken}, nil
}

// ConfirmEmail confirms the identity holding token.
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	identity, err := s.store.ConfirmIdentity(ctx, token, s.now())
	if errors.Is(err, database.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	s.logger.Info("email confirmed", "user_id", identity.ID)
	return nil
}

// SignIn checks credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	identity, err := s.store.GetIdentityByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if s.opts.RequireEmailConfirmation && identity.ConfirmedAt == nil {
		return nil, ErrEmailNotConfirmed
	}
	user, err := s.store.GetUser(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	sess := &model.Session{
		Token:     uuid.NewString(),
		User:      *user,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.hub.publish(Event{Type: SignedIn, UserID: user.ID, Session: sess})
	s.logger.Info("user signed in", "user_id", user.ID)
	return sess, nil
}

// SignOut ends the session for token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, err := s.Session(ctx, token)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.hub.publish(Event{Type: SignedOut, UserID: sess.User.ID, Token: token})
	s.logger.Info("user signed out", "user_id", sess.User.ID)
	return nil
}

// Session returns the live session for token, or ErrNoSession.
func (s *Service) Session(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	sess, err := s.store.GetSession(ctx, token)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		return nil, ErrNoSession
	}
	return sess, nil
}

// PruneSessions deletes expired sessions.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

// Watch streams session changes until ctx is done.
func (s *Service) Watch(ctx context.Context) <-chan Event {
	return s.hub.subscribe(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
