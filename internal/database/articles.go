package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// DefaultArticleLimit caps listings when the query sets no limit.
const DefaultArticleLimit = 50

// articleSelect yields the ArticleView columns. The first %s slot is the
// representative-category expression, the second any extra columns.
const articleSelect = `
	SELECT a.article_id, a.source_id, a.title, a.excerpt, a.content, a.author, a.image_url, a.url,
		a.publication_date, a.is_published,
		COALESCE(s.name, ''),
		%s,
		COALESCE(st.views, 0), COALESCE(st.likes, 0), COALESCE(st.shares, 0)%s
	FROM articles a
	LEFT JOIN news_sources s ON s.source_id = a.source_id
	LEFT JOIN (
		SELECT article_id,
			SUM(CASE WHEN activity_type = 'view' THEN 1 ELSE 0 END) AS views,
			SUM(CASE WHEN activity_type = 'like' THEN 1 ELSE 0 END) AS likes,
			SUM(CASE WHEN activity_type = 'share' THEN 1 ELSE 0 END) AS shares
		FROM user_activities
		GROUP BY article_id
	) st ON st.article_id = a.article_id`

// firstCategory picks the lowest-id linked category, or the default name.
const firstCategory = `COALESCE((
		SELECT c.category_name FROM article_categories ac
		JOIN categories c ON c.category_id = ac.category_id
		WHERE ac.article_id = a.article_id
		ORDER BY c.category_id LIMIT 1), '` + model.DefaultCategoryName + `')`

// --- Article Methods ---

// AddArticle inserts an article and its category links in one transaction.
// When the article has a GUID it is deduplicated per source; the bool
// reports whether a new row was created.
func (db *DB) AddArticle(ctx context.Context, a *model.Article, categoryIDs []int64) (int64, bool, error) {
	var guid *string
	if a.GUID != "" {
		guid = &a.GUID
	}
	var id int64
	created := false
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := db.queryRow(ctx, tx, `
			INSERT INTO articles (source_id, guid, title, excerpt, content, author, image_url, url, publication_date, is_published)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_id, guid) DO NOTHING
			RETURNING article_id`,
			a.SourceID, guid, a.Title, a.Excerpt, a.Content, a.Author, a.ImageURL, a.URL, a.PublishedAt, a.IsPublished).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict occurred, article already exists
			return nil
		}
		if err != nil {
			return err
		}
		created = true
		for _, cid := range categoryIDs {
			if _, err := db.exec(ctx, tx,
				"INSERT INTO article_categories (article_id, category_id) VALUES (?, ?) ON CONFLICT DO NOTHING", id, cid); err != nil {
				return fmt.Errorf("link category %d: %w", cid, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// GetArticles returns articles ordered newest first, filtered by q.
func (db *DB) GetArticles(ctx context.Context, q ArticleQuery) ([]model.ArticleView, error) {
	var (
		where []string
		args  []any
	)

	category := firstCategory
	switch {
	case q.CategoryID != 0:
		category = "(SELECT c.category_name FROM categories c WHERE c.category_id = ?)"
		where = append(where, "EXISTS (SELECT 1 FROM article_categories ac WHERE ac.article_id = a.article_id AND ac.category_id = ?)")
		args = append(args, q.CategoryID, q.CategoryID)
	case q.CategoryName != "":
		category = "CAST(? AS TEXT)"
		where = append(where, `EXISTS (SELECT 1 FROM article_categories ac
			JOIN categories c ON c.category_id = ac.category_id
			WHERE ac.article_id = a.article_id AND c.category_name = ?)`)
		args = append(args, q.CategoryName, q.CategoryName)
	}

	if !q.IncludeUnpublished {
		where = append(where, "a.is_published = TRUE")
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		d := db.dialect
		where = append(where, "("+d.containsFold("a.title")+" OR "+d.containsFold("a.excerpt")+" OR "+d.containsFold("a.content")+")")
		term := d.foldPattern(search)
		args = append(args, term, term, term)
	}

	query := fmt.Sprintf(articleSelect, category, "")
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.publication_date DESC, a.article_id DESC LIMIT ?"

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultArticleLimit
	}
	args = append(args, limit)

	rows, err := db.query(ctx, db.conn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []model.ArticleView
	for rows.Next() {
		var a model.ArticleView
		if err := scanArticleView(rows, &a); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// GetArticle returns one article. Unpublished articles are ErrNotFound
// unless includeUnpublished is set.
func (db *DB) GetArticle(ctx context.Context, articleID int64, includeUnpublished bool) (*model.ArticleView, error) {
	query := fmt.Sprintf(articleSelect, firstCategory, "") + " WHERE a.article_id = ?"
	if !includeUnpublished {
		query += " AND a.is_published = TRUE"
	}
	rows, err := db.query(ctx, db.conn, query, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var a model.ArticleView
	if err := scanArticleView(rows, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SetArticlePublished flips an article's visibility.
func (db *DB) SetArticlePublished(ctx context.Context, articleID int64, published bool) error {
	res, err := db.exec(ctx, db.conn, "UPDATE articles SET is_published = ? WHERE article_id = ?", published, articleID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// GetTrendingArticles ranks published articles by weighted activity over
// the last daysBack days: views count 1, likes 2, shares 3.
func (db *DB) GetTrendingArticles(ctx context.Context, daysBack, limitCount int) ([]model.TrendingArticle, error) {
	if daysBack < 1 {
		daysBack = 1
	}
	if limitCount < 1 {
		limitCount = 1
	}
	since := time.Now().UTC().AddDate(0, 0, -daysBack)

	query := fmt.Sprintf(articleSelect, firstCategory, ", t.score") + `
	JOIN (
		SELECT article_id,
			SUM(CASE activity_type WHEN 'view' THEN 1 WHEN 'like' THEN 2 WHEN 'share' THEN 3 ELSE 0 END) AS score
		FROM user_activities
		WHERE activity_date >= ?
		GROUP BY article_id
	) t ON t.article_id = a.article_id
	WHERE a.is_published = TRUE
	ORDER BY t.score DESC, a.publication_date DESC, a.article_id DESC
	LIMIT ?`

	rows, err := db.query(ctx, db.conn, query, since, limitCount)
	if err != nil {
		return nil, fmt.Errorf("querying trending: %w", err)
	}
	defer rows.Close()

	var trending []model.TrendingArticle
	for rows.Next() {
		var t model.TrendingArticle
		if err := scanArticleView(rows, &t.ArticleView, &t.Score); err != nil {
			return nil, err
		}
		trending = append(trending, t)
	}
	return trending, rows.Err()
}

func scanArticleView(rows *sql.Rows, a *model.ArticleView, extra ...any) error {
	dest := []any{
		&a.ID, &a.SourceID, &a.Title, &a.Excerpt, &a.Content, &a.Author, &a.ImageURL, &a.URL,
		&a.PublishedAt, &a.IsPublished, &a.SourceName, &a.CategoryName, &a.Views, &a.Likes, &a.Shares,
	}
	return rows.Scan(append(dest, extra...)...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
