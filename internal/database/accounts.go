package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// --- Account Methods ---

// CreateAccount inserts the auth identity and its profile row in one
// transaction. A taken email yields ErrDuplicate.
func (db *DB) CreateAccount(ctx context.Context, identity *model.Identity, user *model.User) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := db.exec(ctx, tx, `
			INSERT INTO auth_identities (id, email, password_hash, confirmation_token, confirmed_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			identity.ID, identity.Email, identity.PasswordHash, identity.ConfirmationToken, identity.ConfirmedAt, identity.CreatedAt)
		if err != nil {
			return err
		}
		_, err = db.exec(ctx, tx, `
			INSERT INTO users (user_id, username, email, subscription_tier, is_active, role, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.Username, user.Email, user.SubscriptionTier, user.IsActive, user.Role, user.CreatedAt)
		return err
	})
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetIdentityByEmail looks up the auth record for an email.
func (db *DB) GetIdentityByEmail(ctx context.Context, email string) (*model.Identity, error) {
	row := db.queryRow(ctx, db.conn, `
		SELECT id, email, password_hash, confirmation_token, confirmed_at, created_at
		FROM auth_identities WHERE email = ?`, email)
	return scanIdentity(row)
}

// ConfirmIdentity marks the identity holding token as confirmed and clears the token.
func (db *DB) ConfirmIdentity(ctx context.Context, token string, at time.Time) (*model.Identity, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var identity *model.Identity
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		identity, err = scanIdentity(db.queryRow(ctx, tx, `
			SELECT id, email, password_hash, confirmation_token, confirmed_at, created_at
			FROM auth_identities WHERE confirmation_token = ?`, token))
		if err != nil {
			return err
		}
		_, err = db.exec(ctx, tx,
			"UPDATE auth_identities SET confirmed_at = ?, confirmation_token = '' WHERE id = ?", at, identity.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	identity.ConfirmationToken = ""
	identity.ConfirmedAt = &at
	return identity, nil
}

func scanIdentity(row *sql.Row) (*model.Identity, error) {
	var id model.Identity
	var confirmedAt sql.NullTime
	err := row.Scan(&id.ID, &id.Email, &id.PasswordHash, &id.ConfirmationToken, &confirmedAt, &id.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		id.ConfirmedAt = &t
	}
	return &id, nil
}

const userColumns = "user_id, username, email, subscription_tier, is_active, role, created_at"

// GetUser returns the profile row for a user id.
func (db *DB) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return scanUser(db.queryRow(ctx, db.conn, "SELECT "+userColumns+" FROM users WHERE user_id = ?", userID))
}

// GetUserByEmail returns the profile row for an email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(db.queryRow(ctx, db.conn, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.SubscriptionTier, &u.IsActive, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserRole changes a user's role.
func (db *DB) SetUserRole(ctx context.Context, userID, role string) error {
	res, err := db.exec(ctx, db.conn, "UPDATE users SET role = ? WHERE user_id = ?", role, userID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// --- Session Methods ---

// CreateSession stores a new sign-in.
func (db *DB) CreateSession(ctx context.Context, s *model.Session) error {
	_, err := db.exec(ctx, db.conn,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		s.Token, s.User.ID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns the session for token with its user profile attached.
// Expiry is left to the caller.
func (db *DB) GetSession(ctx context.Context, token string) (*model.Session, error) {
	var s model.Session
	u := &s.User
	err := db.queryRow(ctx, db.conn, `
		SELECT s.token, s.created_at, s.expires_at,
			u.user_id, u.username, u.email, u.subscription_tier, u.is_active, u.role, u.created_at
		FROM sessions s
		JOIN users u ON u.user_id = s.user_id
		WHERE s.token = ?`, token).
		Scan(&s.Token, &s.CreatedAt, &s.ExpiresAt,
			&u.ID, &u.Username, &u.Email, &u.SubscriptionTier, &u.IsActive, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.exec(ctx, db.conn, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions removes sessions that expired before now.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.exec(ctx, db.conn, "DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
