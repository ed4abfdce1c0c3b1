package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// --- News Source Methods ---

// CreateSource adds a news source. Returns the ID.
func (db *DB) CreateSource(ctx context.Context, src *model.NewsSource) (int64, error) {
	var feedURL *string
	if src.FeedURL != "" {
		feedURL = &src.FeedURL
	}
	var id int64
	err := db.queryRow(ctx, db.conn, `
		INSERT INTO news_sources (name, reliability_score, feed_url, auto_publish, default_category_id)
		VALUES (?, ?, ?, ?, ?) RETURNING source_id`,
		src.Name, src.ReliabilityScore, feedURL, src.AutoPublish, src.DefaultCategoryID).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	return id, err
}

// GetOrCreateSource finds a source by feed URL, or creates it.
func (db *DB) GetOrCreateSource(ctx context.Context, src *model.NewsSource) (int64, bool, error) {
	if src.FeedURL == "" {
		id, err := db.CreateSource(ctx, src)
		return id, err == nil, err
	}
	var id int64
	err := db.queryRow(ctx, db.conn, "SELECT source_id FROM news_sources WHERE feed_url = ?", src.FeedURL).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		id, err := db.CreateSource(ctx, src)
		return id, err == nil, err
	}
	return id, false, err
}

const sourceSelect = `
	SELECT s.source_id, s.name, s.reliability_score, COALESCE(s.feed_url, ''), s.auto_publish,
		s.default_category_id, COALESCE(c.category_name, ''), s.last_fetched, s.last_error
	FROM news_sources s
	LEFT JOIN categories c ON c.category_id = s.default_category_id`

// GetSources returns all sources ordered by name.
func (db *DB) GetSources(ctx context.Context) ([]model.NewsSource, error) {
	rows, err := db.query(ctx, db.conn, sourceSelect+" ORDER BY s.name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSources(rows)
}

// GetFeedSources returns the sources that have a feed to poll.
func (db *DB) GetFeedSources(ctx context.Context) ([]model.NewsSource, error) {
	rows, err := db.query(ctx, db.conn, sourceSelect+" WHERE s.feed_url IS NOT NULL AND s.feed_url <> '' ORDER BY s.source_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSources(rows)
}

func scanSources(rows *sql.Rows) ([]model.NewsSource, error) {
	var sources []model.NewsSource
	for rows.Next() {
		var s model.NewsSource
		var lastFetched sql.NullTime
		if err := rows.Scan(&s.ID, &s.Name, &s.ReliabilityScore, &s.FeedURL, &s.AutoPublish,
			&s.DefaultCategoryID, &s.DefaultCategory, &lastFetched, &s.LastError); err != nil {
			return nil, err
		}
		if lastFetched.Valid {
			s.LastFetched = lastFetched.Time
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastFetched records a successful fetch and clears any previous error.
func (db *DB) UpdateSourceLastFetched(ctx context.Context, sourceID int64, t time.Time) error {
	_, err := db.exec(ctx, db.conn, "UPDATE news_sources SET last_fetched = ?, last_error = '' WHERE source_id = ?", t, sourceID)
	return err
}

// UpdateSourceError records the last fetch failure for display.
func (db *DB) UpdateSourceError(ctx context.Context, sourceID int64, errMsg string) error {
	_, err := db.exec(ctx, db.conn, "UPDATE news_sources SET last_error = ? WHERE source_id = ?", errMsg, sourceID)
	return err
}
