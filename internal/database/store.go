// Package database provides storage backends for the news application.
package database

import (
	"context"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// ArticleQuery filters an article listing.
type ArticleQuery struct {
	CategoryID   int64
	CategoryName string
	// Search matches title, excerpt and content case-insensitively.
	Search             string
	IncludeUnpublished bool
	Limit              int
}

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// SupportsHighConcurrency returns true if the database can handle
	// many concurrent write operations (e.g., PostgreSQL).
	// SQLite returns false due to write locking limitations.
	SupportsHighConcurrency() bool

	// Account operations
	CreateAccount(ctx context.Context, identity *model.Identity, user *model.User) error
	GetIdentityByEmail(ctx context.Context, email string) (*model.Identity, error)
	ConfirmIdentity(ctx context.Context, token string, at time.Time) (*model.Identity, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SetUserRole(ctx context.Context, userID, role string) error

	// Session operations
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// News source operations
	CreateSource(ctx context.Context, src *model.NewsSource) (int64, error)
	GetOrCreateSource(ctx context.Context, src *model.NewsSource) (int64, bool, error)
	GetSources(ctx context.Context) ([]model.NewsSource, error)
	GetFeedSources(ctx context.Context) ([]model.NewsSource, error)
	UpdateSourceLastFetched(ctx context.Context, sourceID int64, t time.Time) error
	UpdateSourceError(ctx context.Context, sourceID int64, errMsg string) error

	// Category operations
	CreateCategory(ctx context.Context, name string) (int64, error)
	GetOrCreateCategory(ctx context.Context, name string) (int64, error)
	GetCategory(ctx context.Context, categoryID int64) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryCounts(ctx context.Context) ([]model.CategoryCount, error)

	// Article operations
	AddArticle(ctx context.Context, a *model.Article, categoryIDs []int64) (int64, bool, error)
	GetArticles(ctx context.Context, q ArticleQuery) ([]model.ArticleView, error)
	GetArticle(ctx context.Context, articleID int64, includeUnpublished bool) (*model.ArticleView, error)
	SetArticlePublished(ctx context.Context, articleID int64, published bool) error
	GetTrendingArticles(ctx context.Context, daysBack, limitCount int) ([]model.TrendingArticle, error)

	// Activity operations
	RecordActivity(ctx context.Context, a *model.Activity, detail model.ActivityDetail) (int64, error)

	// Subscription operations
	CreateSubscription(ctx context.Context, s *model.Subscription) error
	DeleteSubscription(ctx context.Context, userID string, categoryID int64) error
	UpdateSubscriptionPreferences(ctx context.Context, userID string, categoryID int64, prefs model.NotificationPreferences) error
	GetSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error)

	// Comment operations
	AddComment(ctx context.Context, c *model.Comment) (int64, error)
	GetApprovedComments(ctx context.Context, articleID int64) ([]model.CommentView, error)
	GetPendingComments(ctx context.Context) ([]model.CommentView, error)
	ApproveComment(ctx context.Context, commentID int64) error

	// Report operations
	AddReport(ctx context.Context, r *model.Report) (int64, error)
	GetPendingReports(ctx context.Context) ([]model.ReportView, error)
	ResolveReport(ctx context.Context, reportID int64, adminID string, at time.Time) error

	GetAdminStats(ctx context.Context) (*model.AdminStats, error)

	// Settings operations
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetPollingInterval(ctx context.Context) (int, error)
}
