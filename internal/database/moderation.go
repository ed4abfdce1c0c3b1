package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// --- Comment Methods ---

// AddComment stores a comment as submitted; approval is a separate transition.
func (db *DB) AddComment(ctx context.Context, c *model.Comment) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := db.queryRow(ctx, db.conn, `
		INSERT INTO comments (article_id, user_id, comment_text, is_approved, comment_date)
		VALUES (?, ?, ?, ?, ?) RETURNING comment_id`,
		c.ArticleID, c.UserID, c.Text, c.IsApproved, c.CreatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

const commentSelect = `
	SELECT cm.comment_id, cm.article_id, cm.user_id, cm.comment_text, cm.is_approved, cm.comment_date,
		COALESCE(u.username, 'Anonymous'), a.title
	FROM comments cm
	JOIN articles a ON a.article_id = cm.article_id
	LEFT JOIN users u ON u.user_id = cm.user_id`

// GetApprovedComments returns an article's approved comments, newest first.
func (db *DB) GetApprovedComments(ctx context.Context, articleID int64) ([]model.CommentView, error) {
	rows, err := db.query(ctx, db.conn,
		commentSelect+" WHERE cm.article_id = ? AND cm.is_approved = TRUE ORDER BY cm.comment_date DESC, cm.comment_id DESC",
		articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

// GetPendingComments returns unapproved comments across all articles, oldest first.
func (db *DB) GetPendingComments(ctx context.Context) ([]model.CommentView, error) {
	rows, err := db.query(ctx, db.conn,
		commentSelect+" WHERE cm.is_approved = FALSE ORDER BY cm.comment_date, cm.comment_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

func scanComments(rows *sql.Rows) ([]model.CommentView, error) {
	var comments []model.CommentView
	for rows.Next() {
		var c model.CommentView
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.UserID, &c.Text, &c.IsApproved, &c.CreatedAt,
			&c.Username, &c.ArticleTitle); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ApproveComment marks a comment approved. Approving an approved comment is
// a no-op; an unknown id is ErrNotFound.
func (db *DB) ApproveComment(ctx context.Context, commentID int64) error {
	res, err := db.exec(ctx, db.conn,
		"UPDATE comments SET is_approved = TRUE WHERE comment_id = ? AND is_approved = FALSE", commentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	return db.exists(ctx, "SELECT 1 FROM comments WHERE comment_id = ?", commentID)
}

// --- Report Methods ---

// AddReport files a pending report against an article.
func (db *DB) AddReport(ctx context.Context, r *model.Report) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = model.ReportPending
	}
	var id int64
	err := db.queryRow(ctx, db.conn, `
		INSERT INTO reports (article_id, reporter_id, reason, status, report_date)
		VALUES (?, ?, ?, ?, ?) RETURNING report_id`,
		r.ArticleID, r.ReporterID, r.Reason, r.Status, r.CreatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

// GetPendingReports returns pending reports with the article and reporter, oldest first.
func (db *DB) GetPendingReports(ctx context.Context) ([]model.ReportView, error) {
	rows, err := db.query(ctx, db.conn, `
		SELECT r.report_id, r.article_id, r.reporter_id, r.reason, r.status, r.report_date,
			a.title, COALESCE(u.username, '')
		FROM reports r
		JOIN articles a ON a.article_id = r.article_id
		LEFT JOIN users u ON u.user_id = r.reporter_id
		WHERE r.status = ?
		ORDER BY r.report_date, r.report_id`, model.ReportPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []model.ReportView
	for rows.Next() {
		var r model.ReportView
		if err := rows.Scan(&r.ID, &r.ArticleID, &r.ReporterID, &r.Reason, &r.Status, &r.CreatedAt,
			&r.ArticleTitle, &r.ReporterUsername); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ResolveReport moves a pending report to resolved and records the admin.
// Resolving a resolved report is a no-op; an unknown id is ErrNotFound.
func (db *DB) ResolveReport(ctx context.Context, reportID int64, adminID string, at time.Time) error {
	res, err := db.exec(ctx, db.conn, `
		UPDATE reports SET status = ?, resolved_by = ?, resolved_at = ?
		WHERE report_id = ? AND status = ?`,
		model.ReportResolved, adminID, at, reportID, model.ReportPending)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	return db.exists(ctx, "SELECT 1 FROM reports WHERE report_id = ?", reportID)
}

// GetAdminStats returns the dashboard totals.
func (db *DB) GetAdminStats(ctx context.Context) (*model.AdminStats, error) {
	var s model.AdminStats
	err := db.queryRow(ctx, db.conn, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM articles WHERE is_published = TRUE),
			(SELECT COUNT(*) FROM reports WHERE status = ?),
			(SELECT COUNT(*) FROM comments WHERE is_approved = FALSE)`, model.ReportPending).
		Scan(&s.TotalUsers, &s.TotalArticles, &s.PendingReports, &s.PendingComments)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// exists returns ErrNotFound unless query yields a row.
func (db *DB) exists(ctx context.Context, query string, args ...any) error {
	var one int
	err := db.queryRow(ctx, db.conn, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
