package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// --- Subscription Methods ---

// CreateSubscription inserts a (user, category) subscription. A second
// insert for the same pair yields ErrDuplicate.
func (db *DB) CreateSubscription(ctx context.Context, s *model.Subscription) error {
	prefs, err := json.Marshal(s.Notifications)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err = db.exec(ctx, db.conn, `
		INSERT INTO subscriptions (user_id, category_id, is_active, notification_preferences, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.UserID, s.CategoryID, s.IsActive, string(prefs), s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// DeleteSubscription removes a subscription so the pair can subscribe again.
func (db *DB) DeleteSubscription(ctx context.Context, userID string, categoryID int64) error {
	res, err := db.exec(ctx, db.conn, "DELETE FROM subscriptions WHERE user_id = ? AND category_id = ?", userID, categoryID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// UpdateSubscriptionPreferences replaces the notification preferences.
func (db *DB) UpdateSubscriptionPreferences(ctx context.Context, userID string, categoryID int64, prefs model.NotificationPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	res, err := db.exec(ctx, db.conn,
		"UPDATE subscriptions SET notification_preferences = ? WHERE user_id = ? AND category_id = ?",
		string(data), userID, categoryID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// GetSubscriptions lists a user's subscriptions ordered by category name.
func (db *DB) GetSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error) {
	rows, err := db.query(ctx, db.conn, `
		SELECT s.user_id, s.category_id, c.category_name, s.is_active, s.notification_preferences, s.created_at
		FROM subscriptions s
		JOIN categories c ON c.category_id = s.category_id
		WHERE s.user_id = ?
		ORDER BY c.category_name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var prefs []byte
		if err := rows.Scan(&s.UserID, &s.CategoryID, &s.CategoryName, &s.IsActive, &prefs, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(prefs, &s.Notifications); err != nil {
			return nil, fmt.Errorf("decode preferences for category %d: %w", s.CategoryID, err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
