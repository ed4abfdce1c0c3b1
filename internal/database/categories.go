package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// --- Category Methods ---

// CreateCategory creates a new category. Returns the ID.
func (db *DB) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.queryRow(ctx, db.conn, "INSERT INTO categories (category_name) VALUES (?) RETURNING category_id", name).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	return id, err
}

// GetOrCreateCategory finds a category by name, or creates it.
func (db *DB) GetOrCreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.queryRow(ctx, db.conn, "SELECT category_id FROM categories WHERE category_name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.CreateCategory(ctx, name)
	}
	return id, err
}

// GetCategory returns a single category.
func (db *DB) GetCategory(ctx context.Context, categoryID int64) (*model.Category, error) {
	var c model.Category
	err := db.queryRow(ctx, db.conn, "SELECT category_id, category_name FROM categories WHERE category_id = ?", categoryID).
		Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategories returns all categories ordered by name.
func (db *DB) GetCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.query(ctx, db.conn, "SELECT category_id, category_name FROM categories ORDER BY category_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategoryCounts returns all categories ordered by name, each with the
// number of published articles linked to it, in a single grouped query.
func (db *DB) GetCategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	rows, err := db.query(ctx, db.conn, `
		SELECT c.category_id, c.category_name, COUNT(a.article_id)
		FROM categories c
		LEFT JOIN article_categories ac ON ac.category_id = c.category_id
		LEFT JOIN articles a ON a.article_id = ac.article_id AND a.is_published = TRUE
		GROUP BY c.category_id, c.category_name
		ORDER BY c.category_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.ID, &c.Name, &c.ArticleCount); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
