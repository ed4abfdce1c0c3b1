// Package news implements the reader and moderation operations on top of a
// database.Store. Every call takes the caller's session explicitly; a nil
// session is an anonymous reader.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// Options tunes listing sizes and the trending window.
type Options struct {
	PageLimit        int
	TrendingDaysBack int
	TrendingLimit    int
}

// Service runs news operations for a caller.
type Service struct {
	store  database.Store
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a news service. Zero options take the defaults.
func NewService(store database.Store, opts Options, logger *slog.Logger) *Service {
	if opts.PageLimit <= 0 {
		opts.PageLimit = database.DefaultArticleLimit
	}
	if opts.TrendingDaysBack <= 0 {
		opts.TrendingDaysBack = 7
	}
	if opts.TrendingLimit <= 0 {
		opts.TrendingLimit = 10
	}
	return &Service{
		store:  store,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Filter selects an article listing. CategoryID wins over Category.
type Filter struct {
	CategoryID int64
	Category   string
	Query      string
	Limit      int
	// IncludeUnpublished is honoured for admins only.
	IncludeUnpublished bool
}

func isAdmin(sess *model.Session) bool {
	return sess != nil && sess.User.IsAdmin()
}

func requireUser(sess *model.Session, action string) error {
	if sess == nil {
		return loginRequired(action)
	}
	return nil
}

func requireAdmin(sess *model.Session) error {
	if sess == nil {
		return ErrUnauthenticated
	}
	if !sess.User.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// --- Content ---

// ListArticles returns articles newest first, filtered by f.
func (s *Service) ListArticles(ctx context.Context, sess *model.Session, f Filter) ([]model.ArticleView, error) {
	limit := f.Limit
	if limit <= 0 || limit > s.opts.PageLimit {
		limit = s.opts.PageLimit
	}
	articles, err := s.store.GetArticles(ctx, database.ArticleQuery{
		CategoryID:         f.CategoryID,
		CategoryName:       strings.TrimSpace(f.Category),
		Search:             strings.TrimSpace(f.Query),
		IncludeUnpublished: f.IncludeUnpublished && isAdmin(sess),
		Limit:              limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if articles == nil {
		articles = []model.ArticleView{}
	}
	return articles, nil
}

// Search runs a free-text query within the selected category. An empty
// query is the category's plain listing.
func (s *Service) Search(ctx context.Context, sess *model.Session, category, query string) ([]model.ArticleView, error) {
	return s.ListArticles(ctx, sess, Filter{Category: category, Query: query})
}

// Article returns one article. Unpublished articles are ErrNotFound unless
// the caller is an admin.
func (s *Service) Article(ctx context.Context, sess *model.Session, articleID int64) (*model.ArticleView, error) {
	a, err := s.store.GetArticle(ctx, articleID, isAdmin(sess))
	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", articleID, err)
	}
	return a, nil
}

// ListCategories returns every category with its published article count.
func (s *Service) ListCategories(ctx context.Context) ([]model.CategoryCount, error) {
	cats, err := s.store.GetCategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cats == nil {
		cats = []model.CategoryCount{}
	}
	return cats, nil
}

// Trending ranks recently active articles. Non-positive arguments use the
// configured window and limit.
func (s *Service) Trending(ctx context.Context, daysBack, limit int) ([]model.TrendingArticle, error) {
	if daysBack <= 0 {
		daysBack = s.opts.TrendingDaysBack
	}
	if limit <= 0 {
		limit = s.opts.TrendingLimit
	}
	trending, err := s.store.GetTrendingArticles(ctx, daysBack, limit)
	if err != nil {
		return nil, fmt.Errorf("trending articles: %w", err)
	}
	if trending == nil {
		trending = []model.TrendingArticle{}
	}
	return trending, nil
}

// --- Interactions ---

// RecordView logs a view. Anonymous views are not recorded and are not an
// error.
func (s *Service) RecordView(ctx context.Context, sess *model.Session, articleID int64, device string, duration int) error {
	if sess == nil {
		return nil
	}
	if duration < 0 {
		duration = 0
	}
	_, err := s.record(ctx, sess, articleID, model.ActivityView, device, model.ActivityDetail{ViewDuration: duration})
	return err
}

// Like records a like and returns the article with refreshed counters.
func (s *Service) Like(ctx context.Context, sess *model.Session, articleID int64, reaction string) (*model.ArticleView, error) {
	if err := requireUser(sess, "like articles"); err != nil {
		return nil, err
	}
	return s.record(ctx, sess, articleID, model.ActivityLike, "", model.ActivityDetail{ReactionType: reaction})
}

// Share records a share and returns the article with refreshed counters.
func (s *Service) Share(ctx context.Context, sess *model.Session, articleID int64, platform string) (*model.ArticleView, error) {
	if err := requireUser(sess, "share articles"); err != nil {
		return nil, err
	}
	return s.record(ctx, sess, articleID, model.ActivityShare, "", model.ActivityDetail{PlatformType: platform})
}

func (s *Service) record(ctx context.Context, sess *model.Session, articleID int64, kind, device string, detail model.ActivityDetail) (*model.ArticleView, error) {
	admin := isAdmin(sess)
	if _, err := s.store.GetArticle(ctx, articleID, admin); err != nil {
		return nil, fmt.Errorf("%s article %d: %w", kind, articleID, err)
	}
	activity := &model.Activity{
		UserID:     sess.User.ID,
		ArticleID:  articleID,
		Type:       kind,
		DeviceType: device,
		CreatedAt:  s.now(),
	}
	if _, err := s.store.RecordActivity(ctx, activity, detail); err != nil {
		return nil, fmt.Errorf("record %s: %w", kind, err)
	}
	s.logger.Debug("activity recorded", "type", kind, "article_id", articleID, "user_id", sess.User.ID)

	// Counters come back from the store rather than being bumped locally.
	a, err := s.store.GetArticle(ctx, articleID, admin)
	if err != nil {
		return nil, fmt.Errorf("refresh article %d: %w", articleID, err)
	}
	return a, nil
}

// --- Subscriptions ---

// Subscribe subscribes the caller to a category with default preferences.
func (s *Service) Subscribe(ctx context.Context, sess *model.Session, categoryID int64) (*model.Subscription, error) {
	if err := requireUser(sess, "subscribe"); err != nil {
		return nil, err
	}
	cat, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("subscribe to category %d: %w", categoryID, err)
	}
	sub := &model.Subscription{
		UserID:        sess.User.ID,
		CategoryID:    cat.ID,
		CategoryName:  cat.Name,
		IsActive:      true,
		Notifications: model.DefaultNotificationPreferences(),
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("subscribe to category %d: %w", categoryID, err)
	}
	s.logger.Info("subscribed", "user_id", sess.User.ID, "category_id", categoryID)
	return sub, nil
}

// Unsubscribe removes the caller's subscription to a category.
func (s *Service) Unsubscribe(ctx context.Context, sess *model.Session, categoryID int64) error {
	if err := requireUser(sess, "manage subscriptions"); err != nil {
		return err
	}
	if err := s.store.DeleteSubscription(ctx, sess.User.ID, categoryID); err != nil {
		return fmt.Errorf("unsubscribe from category %d: %w", categoryID, err)
	}
	return nil
}

// UpdateNotificationPreferences changes the channels of one subscription.
func (s *Service) UpdateNotificationPreferences(ctx context.Context, sess *model.Session, categoryID int64, prefs model.NotificationPreferences) error {
	if err := requireUser(sess, "manage subscriptions"); err != nil {
		return err
	}
	if err := s.store.UpdateSubscriptionPreferences(ctx, sess.User.ID, categoryID, prefs); err != nil {
		return fmt.Errorf("update preferences for category %d: %w", categoryID, err)
	}
	return nil
}

// Subscriptions lists the caller's subscriptions.
func (s *Service) Subscriptions(ctx context.Context, sess *model.Session) ([]model.Subscription, error) {
	if err := requireUser(sess, "view subscriptions"); err != nil {
		return nil, err
	}
	subs, err := s.store.GetSubscriptions(ctx, sess.User.ID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	return subs, nil
}

// --- Comments and reports ---

// Comments returns an article's approved comments.
func (s *Service) Comments(ctx context.Context, sess *model.Session, articleID int64) ([]model.CommentView, error) {
	if _, err := s.store.GetArticle(ctx, articleID, isAdmin(sess)); err != nil {
		return nil, fmt.Errorf("comments for article %d: %w", articleID, err)
	}
	comments, err := s.store.GetApprovedComments(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("comments for article %d: %w", articleID, err)
	}
	if comments == nil {
		comments = []model.CommentView{}
	}
	return comments, nil
}

// SubmitComment stores a comment awaiting approval.
func (s *Service) SubmitComment(ctx context.Context, sess *model.Session, articleID int64, text string) (*model.Comment, error) {
	if err := requireUser(sess, "comment"); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if _, err := s.store.GetArticle(ctx, articleID, isAdmin(sess)); err != nil {
		return nil, fmt.Errorf("comment on article %d: %w", articleID, err)
	}
	c := &model.Comment{
		ArticleID: articleID,
		UserID:    sess.User.ID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if _, err := s.store.AddComment(ctx, c); err != nil {
		return nil, fmt.Errorf("comment on article %d: %w", articleID, err)
	}
	s.logger.Info("comment submitted", "comment_id", c.ID, "article_id", articleID)
	return c, nil
}

// ReportArticle flags an article for review.
func (s *Service) ReportArticle(ctx context.Context, sess *model.Session, articleID int64, reason string) (*model.Report, error) {
	if err := requireUser(sess, "report articles"); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}
	if _, err := s.store.GetArticle(ctx, articleID, isAdmin(sess)); err != nil {
		return nil, fmt.Errorf("report article %d: %w", articleID, err)
	}
	r := &model.Report{
		ArticleID:  articleID,
		ReporterID: sess.User.ID,
		Reason:     reason,
		Status:     model.ReportPending,
		CreatedAt:  s.now(),
	}
	if _, err := s.store.AddReport(ctx, r); err != nil {
		return nil, fmt.Errorf("report article %d: %w", articleID, err)
	}
	s.logger.Info("article reported", "report_id", r.ID, "article_id", articleID)
	return r, nil
}

// --- Admin ---

// PendingComments lists comments awaiting approval.
func (s *Service) PendingComments(ctx context.Context, sess *model.Session) ([]model.CommentView, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	comments, err := s.store.GetPendingComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending comments: %w", err)
	}
	if comments == nil {
		comments = []model.CommentView{}
	}
	return comments, nil
}

// ApproveComment makes a comment public. Approving twice is a no-op.
func (s *Service) ApproveComment(ctx context.Context, sess *model.Session, commentID int64) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.store.ApproveComment(ctx, commentID); err != nil {
		return fmt.Errorf("approve comment %d: %w", commentID, err)
	}
	s.logger.Info("comment approved", "comment_id", commentID, "admin_id", sess.User.ID)
	return nil
}

// PendingReports lists unresolved reports.
func (s *Service) PendingReports(ctx context.Context, sess *model.Session) ([]model.ReportView, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	reports, err := s.store.GetPendingReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending reports: %w", err)
	}
	if reports == nil {
		reports = []model.ReportView{}
	}
	return reports, nil
}

// ResolveReport closes a report on behalf of the calling admin.
func (s *Service) ResolveReport(ctx context.Context, sess *model.Session, reportID int64) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.store.ResolveReport(ctx, reportID, sess.User.ID, s.now()); err != nil {
		return fmt.Errorf("resolve report %d: %w", reportID, err)
	}
	s.logger.Info("report resolved", "report_id", reportID, "admin_id", sess.User.ID)
	return nil
}

// SetArticlePublished publishes or hides an article.
func (s *Service) SetArticlePublished(ctx context.Context, sess *model.Session, articleID int64, published bool) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.store.SetArticlePublished(ctx, articleID, published); err != nil {
		return fmt.Errorf("set article %d published=%t: %w", articleID, published, err)
	}
	s.logger.Info("article visibility changed", "article_id", articleID, "published", published)
	return nil
}

// Stats returns the admin dashboard totals.
func (s *Service) Stats(ctx context.Context, sess *model.Session) (*model.AdminStats, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	stats, err := s.store.GetAdminStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return stats, nil
}
