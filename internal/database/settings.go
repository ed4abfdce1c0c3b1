package database

import (
	"context"
	"strconv"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// MinPollingIntervalMinutes is the smallest accepted polling interval.
const MinPollingIntervalMinutes = 15

// --- Settings Methods ---

// GetSetting retrieves a setting value.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := db.queryRow(ctx, db.conn, "SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	return val, err
}

// SetSetting saves a setting.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.exec(ctx, db.conn,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", key, value)
	return err
}

// GetPollingInterval returns the polling interval in minutes, with a minimum of 15.
func (db *DB) GetPollingInterval(ctx context.Context) (int, error) {
	val, err := db.GetSetting(ctx, model.SettingPollingInterval)
	if err != nil {
		return MinPollingIntervalMinutes, nil // default
	}
	mins, _ := strconv.Atoi(val)
	if mins < MinPollingIntervalMinutes {
		mins = MinPollingIntervalMinutes
	}
	return mins, nil
}
