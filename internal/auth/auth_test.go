package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

func testService(t *testing.T, opts Options) *Service {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := NewService(db, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.hashing = bcrypt.MinCost
	return s
}

func TestSignUpThenSignIn(t *testing.T) {
	s := testService(t, Options{})
	ctx := context.Background()

	res, err := s.SignUp(ctx, "a@b.com", "secret1", "alice")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if res.User.SubscriptionTier != model.TierFree || !res.User.IsActive || res.User.Role != model.RoleRegular {
		t.Fatalf("unexpected profile: %+v", res.User)
	}
	if res.ConfirmationToken != "" {
		t.Errorf("expected no confirmation token, got %q", res.ConfirmationToken)
	}

	sess, err := s.SignIn(ctx, "A@B.com ", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	got, err := s.Session(ctx, sess.Token)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	created := *res.User
	if got.User.ID != created.ID || got.User.Username != created.Username || got.User.Email != created.Email ||
		got.User.SubscriptionTier != created.SubscriptionTier || !got.User.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("session profile %+v does not match created %+v", got.User, created)
	}
}

func TestSignUpValidation(t *testing.T) {
	s := testService(t, Options{})
	ctx := context.Background()
	tests := []struct {
		name                      string
		email, password, username string
		want                      error
	}{
		{"bad email", "not-an-email", "secret1", "alice", ErrInvalidEmail},
		{"short password", "a@b.com", "12345", "alice", ErrWeakPassword},
		{"blank username", "a@b.com", "secret1", "  ", ErrMissingUsername},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.SignUp(ctx, tt.email, tt.password, tt.username); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := s.SignUp(ctx, "a@b.com", "secret1", "alice"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := s.SignUp(ctx, "a@b.com", "another1", "alice2"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	s := testService(t, Options{})
	ctx := context.Background()
	if _, err := s.SignUp(ctx, "a@b.com", "secret1", "alice"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := s.SignIn(ctx, "a@b.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.SignIn(ctx, "nobody@b.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if !IsAuthError(ErrInvalidCredentials) || IsAuthError(errors.New("boom")) {
		t.Fatal("IsAuthError misclassifies errors")
	}
}

func TestEmailConfirmationRequired(t *testing.T) {
	s := testService(t, Options{RequireEmailConfirmation: true})
	ctx := context.Background()

	res, err := s.SignUp(ctx, "a@b.com", "secret1", "alice")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if res.ConfirmationToken == "" {
		t.Fatal("expected a confirmation token")
	}
	if _, err := s.SignIn(ctx, "a@b.com", "secret1"); !errors.Is(err, ErrEmailNotConfirmed) {
		t.Fatalf("expected ErrEmailNotConfirmed, got %v", err)
	}
	if err := s.ConfirmEmail(ctx, "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := s.ConfirmEmail(ctx, res.ConfirmationToken); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := s.ConfirmEmail(ctx, res.ConfirmationToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token must be single use, got %v", err)
	}
	if _, err := s.SignIn(ctx, "a@b.com", "secret1"); err != nil {
		t.Fatalf("sign in after confirmation: %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	s := testService(t, Options{SessionTTL: time.Hour})
	ctx := context.Background()
	if _, err := s.SignUp(ctx, "a@b.com", "secret1", "alice"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	sess, err := s.SignIn(ctx, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	s.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	if _, err := s.Session(ctx, sess.Token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected expired session to be rejected, got %v", err)
	}
	if n, err := s.PruneSessions(ctx); err != nil || n != 1 {
		t.Fatalf("expected 1 pruned session, got %d (%v)", n, err)
	}
	if _, err := s.Session(ctx, ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for empty token, got %v", err)
	}
}

func TestWatchStreamsSessionChanges(t *testing.T) {
	s := testService(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Watch(ctx)

	if _, err := s.SignUp(ctx, "a@b.com", "secret1", "alice"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	sess, err := s.SignIn(ctx, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := s.SignOut(ctx, sess.Token); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if err := s.SignOut(ctx, sess.Token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession signing out twice, got %v", err)
	}

	for _, want := range []EventType{SignedIn, SignedOut} {
		select {
		case ev := <-events:
			if ev.Type != want || ev.UserID != sess.User.ID {
				t.Fatalf("expected %s for %s, got %+v", want, sess.User.ID, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected no further events")
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
