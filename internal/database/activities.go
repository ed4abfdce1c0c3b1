package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// --- Activity Methods ---

// RecordActivity appends an activity and its matching detail row (views,
// likes or shares) in one transaction, so an activity never exists without
// its detail. Returns the activity ID.
func (db *DB) RecordActivity(ctx context.Context, a *model.Activity, detail model.ActivityDetail) (int64, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.DeviceType == "" {
		a.DeviceType = model.DefaultDevice
	}
	var id int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := db.queryRow(ctx, tx, `
			INSERT INTO user_activities (user_id, article_id, activity_type, device_type, activity_date)
			VALUES (?, ?, ?, ?, ?) RETURNING activity_id`,
			a.UserID, a.ArticleID, a.Type, a.DeviceType, a.CreatedAt).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}

		switch a.Type {
		case model.ActivityView:
			_, err = db.exec(ctx, tx,
				"INSERT INTO views (activity_id, article_id, view_duration, device_type) VALUES (?, ?, ?, ?)",
				id, a.ArticleID, detail.ViewDuration, a.DeviceType)
		case model.ActivityLike:
			reaction := detail.ReactionType
			if reaction == "" {
				reaction = model.DefaultReaction
			}
			_, err = db.exec(ctx, tx,
				"INSERT INTO likes (activity_id, article_id, reaction_type) VALUES (?, ?, ?)",
				id, a.ArticleID, reaction)
		case model.ActivityShare:
			platform := detail.PlatformType
			if platform == "" {
				platform = model.DefaultPlatform
			}
			_, err = db.exec(ctx, tx,
				"INSERT INTO shares (activity_id, platform_type) VALUES (?, ?)", id, platform)
		default:
			err = fmt.Errorf("unknown activity type %q", a.Type)
		}
		if err != nil {
			return fmt.Errorf("insert %s detail: %w", a.Type, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}
