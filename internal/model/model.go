// Package model defines shared data structures.
package model

import "time"

// Subscription tiers and roles.
const (
	TierFree = "free"

	RoleRegular = "regular"
	RoleAdmin   = "admin"
)

// Identity is the authentication record behind a user profile.
type Identity struct {
	ID                string
	Email             string
	PasswordHash      string
	ConfirmationToken string
	ConfirmedAt       *time.Time
	CreatedAt         time.Time
}

// User is the profile row readers see and act as.
type User struct {
	ID               string    `json:"user_id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	SubscriptionTier string    `json:"subscription_tier"`
	IsActive         bool      `json:"is_active"`
	Role             string    `json:"role"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsAdmin reports whether the user may use moderation operations.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is an authenticated sign-in. A nil *Session means anonymous.
type Session struct {
	Token     string    `json:"access_token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewsSource is a publisher that articles belong to.
type NewsSource struct {
	ID                int64   `json:"source_id"`
	Name              string  `json:"name"`
	ReliabilityScore  float64 `json:"reliability_score"`
	FeedURL           string  `json:"feed_url,omitempty"`
	AutoPublish       bool    `json:"auto_publish"`
	DefaultCategoryID *int64  `json:"default_category_id,omitempty"`
	// DefaultCategory is the name behind DefaultCategoryID, filled on reads.
	DefaultCategory string    `json:"default_category,omitempty"`
	LastFetched     time.Time `json:"last_fetched,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
}

// Article is a stored article row.
type Article struct {
	ID          int64     `json:"article_id"`
	SourceID    *int64    `json:"source_id,omitempty"`
	GUID        string    `json:"-"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	ImageURL    string    `json:"image_url,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"publication_date"`
	IsPublished bool      `json:"is_published"`
}

// ArticleView is an article shaped for display: source name, a single
// representative category and aggregated counters.
type ArticleView struct {
	Article
	SourceName   string `json:"source_name"`
	CategoryName string `json:"category_name"`
	Views        int64  `json:"views"`
	Likes        int64  `json:"likes"`
	Shares       int64  `json:"shares"`
}

// TrendingArticle is a ranked row from the trending procedure.
type TrendingArticle struct {
	ArticleView
	Score int64 `json:"trending_score"`
}

// DefaultCategoryName labels articles with no category link.
const DefaultCategoryName = "General"

// Category groups articles.
type Category struct {
	ID   int64  `json:"category_id"`
	Name string `json:"category_name"`
}

// CategoryCount is a category with the number of published articles in it.
type CategoryCount struct {
	Category
	ArticleCount int64 `json:"article_count"`
}

// Activity types.
const (
	ActivityView  = "view"
	ActivityLike  = "like"
	ActivityShare = "share"
)

// Detail defaults used when the caller leaves a field empty.
const (
	DefaultDevice   = "desktop"
	DefaultReaction = "like"
	DefaultPlatform = "twitter"
)

// Activity is one user interaction with an article.
type Activity struct {
	ID         int64     `json:"activity_id"`
	UserID     string    `json:"user_id"`
	ArticleID  int64     `json:"article_id"`
	Type       string    `json:"activity_type"`
	DeviceType string    `json:"device_type"`
	CreatedAt  time.Time `json:"activity_date"`
}

// ActivityDetail is the type-specific row stored alongside an Activity.
// Exactly one group of fields applies, selected by the activity type.
type ActivityDetail struct {
	ViewDuration int    `json:"view_duration,omitempty"`
	ReactionType string `json:"reaction_type,omitempty"`
	PlatformType string `json:"platform_type,omitempty"`
}

// NotificationPreferences are the channels a subscriber wants.
type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// DefaultNotificationPreferences is what a new subscription starts with.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true}
}

// Subscription links a user to a category.
type Subscription struct {
	UserID        string                  `json:"user_id"`
	CategoryID    int64                   `json:"category_id"`
	CategoryName  string                  `json:"category_name,omitempty"`
	IsActive      bool                    `json:"is_active"`
	Notifications NotificationPreferences `json:"notification_preferences"`
	CreatedAt     time.Time               `json:"created_at"`
}

// Comment is a reader comment on an article.
type Comment struct {
	ID         int64     `json:"comment_id"`
	ArticleID  int64     `json:"article_id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"comment_text"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"comment_date"`
}

// CommentView is a comment with the author and article denormalized.
type CommentView struct {
	Comment
	Username     string `json:"username"`
	ArticleTitle string `json:"article_title,omitempty"`
}

// Report statuses.
const (
	ReportPending  = "pending"
	ReportResolved = "resolved"
)

// Report flags an article for admin review.
type Report struct {
	ID         int64      `json:"report_id"`
	ArticleID  int64      `json:"article_id"`
	ReporterID string     `json:"reporter_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"report_date"`
}

// ReportView is a report with the article and reporter denormalized.
type ReportView struct {
	Report
	ArticleTitle     string `json:"article_title"`
	ReporterUsername string `json:"reporter_username"`
}

// AdminStats are the dashboard totals.
type AdminStats struct {
	TotalUsers      int64 `json:"total_users"`
	TotalArticles   int64 `json:"total_articles"`
	PendingReports  int64 `json:"pending_reports"`
	PendingComments int64 `json:"pending_comments"`
}

// Settings key constants.
const (
	SettingPollingInterval = "polling_interval_minutes"
)
