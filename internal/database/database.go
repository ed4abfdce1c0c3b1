// Package database provides SQLite storage for the news application.
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"modernc.org/sqlite"
)

// foldFunc is the SQLite function name for Unicode-aware lower casing.
// The built-in LOWER only folds ASCII.
const foldFunc = "newsapp_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1,
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// dialect captures the differences between the SQL backends.
type dialect struct {
	name string
	// numbered placeholders ($1, $2) instead of ?.
	numbered bool
	// ilike marks backends with a Unicode-aware ILIKE operator.
	ilike  bool
	schema string
}

// containsFold returns a case-insensitive substring match of col against
// a placeholder holding the pattern built by foldPattern.
func (d dialect) containsFold(col string) string {
	if d.ilike {
		return col + ` ILIKE ? ESCAPE '\'`
	}
	return foldFunc + "(" + col + `) LIKE ? ESCAPE '\'`
}

// foldPattern builds the LIKE pattern for containsFold.
func (d dialect) foldPattern(term string) string {
	if !d.ilike {
		term = strings.ToLower(term)
	}
	return "%" + escapeLike(term) + "%"
}

// DB wraps a SQL connection. Queries are written with ? placeholders and
// rebound for the active dialect.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// sqliteParams enables foreign keys on every pooled connection and keeps
// stored timestamps in a sortable text form.
const sqliteParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&" + sqliteParams
	} else {
		dsn += "?" + sqliteParams
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	conn.SetMaxOpenConns(1)
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn, dialect: dialect{name: "SQLite", schema: sqliteSchema}}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Open connects to the backend named by driver ("sqlite" or "postgres").
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "sqlite", "":
		return New(dsn)
	case "postgres":
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return db.dialect.name
}

// SupportsHighConcurrency returns true for PostgreSQL.
func (db *DB) SupportsHighConcurrency() bool {
	return db.dialect.numbered
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, db.dialect.schema)
	return err
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (db *DB) rebind(query string) string {
	if !db.dialect.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, db.rebind(query), args...)
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// mustAffect maps zero affected rows to ErrNotFound.
func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS auth_identities (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		confirmation_token TEXT NOT NULL DEFAULT '',
		confirmed_at DATETIME,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY REFERENCES auth_identities(id) ON DELETE CASCADE,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		subscription_tier TEXT NOT NULL DEFAULT 'free',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		role TEXT NOT NULL DEFAULT 'regular',
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS categories (
		category_id INTEGER PRIMARY KEY AUTOINCREMENT,
		category_name TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS news_sources (
		source_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		reliability_score REAL NOT NULL DEFAULT 0,
		feed_url TEXT UNIQUE,
		auto_publish BOOLEAN NOT NULL DEFAULT FALSE,
		default_category_id INTEGER REFERENCES categories(category_id) ON DELETE SET NULL,
		last_fetched DATETIME,
		last_error TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS articles (
		article_id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER REFERENCES news_sources(source_id),
		guid TEXT,
		title TEXT NOT NULL,
		excerpt TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		publication_date DATETIME NOT NULL,
		is_published BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE(source_id, guid)
	);
	CREATE TABLE IF NOT EXISTS article_categories (
		article_id INTEGER NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(category_id) ON DELETE CASCADE,
		PRIMARY KEY (article_id, category_id)
	);
	CREATE TABLE IF NOT EXISTS user_activities (
		activity_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(user_id),
		article_id INTEGER NOT NULL REFERENCES articles(article_id),
		activity_type TEXT NOT NULL CHECK (activity_type IN ('view', 'like', 'share')),
		device_type TEXT NOT NULL,
		activity_date DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS views (
		activity_id INTEGER PRIMARY KEY REFERENCES user_activities(activity_id) ON DELETE CASCADE,
		article_id INTEGER NOT NULL REFERENCES articles(article_id),
		view_duration INTEGER NOT NULL DEFAULT 0,
		device_type TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS likes (
		activity_id INTEGER PRIMARY KEY REFERENCES user_activities(activity_id) ON DELETE CASCADE,
		article_id INTEGER NOT NULL REFERENCES articles(article_id),
		reaction_type TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS shares (
		activity_id INTEGER PRIMARY KEY REFERENCES user_activities(activity_id) ON DELETE CASCADE,
		platform_type TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS subscriptions (
		user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(category_id) ON DELETE CASCADE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		notification_preferences TEXT NOT NULL DEFAULT '{"email":true,"push":false,"sms":false}',
		created_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, category_id)
	);
	CREATE TABLE IF NOT EXISTS comments (
		comment_id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		comment_text TEXT NOT NULL,
		is_approved BOOLEAN NOT NULL DEFAULT FALSE,
		comment_date DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS reports (
		report_id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
		reporter_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		reason TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		resolved_by TEXT REFERENCES users(user_id),
		resolved_at DATETIME,
		report_date DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	-- Default polling interval (15 minutes minimum).
	INSERT OR IGNORE INTO settings (key, value) VALUES ('polling_interval_minutes', '15');

	CREATE INDEX IF NOT EXISTS idx_articles_publication_date ON articles(publication_date DESC);
	CREATE INDEX IF NOT EXISTS idx_article_categories_category ON article_categories(category_id);
	CREATE INDEX IF NOT EXISTS idx_user_activities_article ON user_activities(article_id, activity_date);
	CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id, is_approved);
	CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
	`
