package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/auth"
	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

type fixture struct {
	t     *testing.T
	store *database.DB
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "news.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{t: t, store: db, svc: NewService(db, Options{}, logger)}
}

func (f *fixture) user(name, role string) *model.Session {
	f.t.Helper()
	now := time.Now().UTC()
	id := "user-" + name
	u := &model.User{
		ID:               id,
		Username:         name,
		Email:            name + "@example.com",
		SubscriptionTier: model.TierFree,
		IsActive:         true,
		Role:             role,
		CreatedAt:        now,
	}
	identity := &model.Identity{ID: id, Email: u.Email, PasswordHash: "x", ConfirmedAt: &now, CreatedAt: now}
	if err := f.store.CreateAccount(context.Background(), identity, u); err != nil {
		f.t.Fatalf("creating user %s: %v", name, err)
	}
	return &model.Session{Token: "token-" + name, User: *u, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
}

func (f *fixture) category(name string) int64 {
	f.t.Helper()
	id, err := f.store.GetOrCreateCategory(context.Background(), name)
	if err != nil {
		f.t.Fatalf("creating category %s: %v", name, err)
	}
	return id
}

func (f *fixture) article(title string, published bool, age time.Duration, categories ...int64) int64 {
	f.t.Helper()
	a := &model.Article{
		Title:       title,
		Excerpt:     "excerpt of " + title,
		Content:     "body of " + title,
		Author:      "Reporter",
		PublishedAt: time.Now().UTC().Add(-age),
		IsPublished: published,
	}
	id, _, err := f.store.AddArticle(context.Background(), a, categories)
	if err != nil {
		f.t.Fatalf("adding article %s: %v", title, err)
	}
	return id
}

func titles(articles []model.ArticleView) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Title
	}
	return out
}

func TestListArticlesVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tech := f.category("Tech")
	f.article("Older", true, 2*time.Hour, tech)
	f.article("Newer", true, time.Hour, tech)
	f.article("Draft", false, 0, tech)

	reader := f.user("reader", model.RoleRegular)
	admin := f.user("admin", model.RoleAdmin)

	tests := []struct {
		name string
		sess *model.Session
		f    Filter
		want string
	}{
		{"anonymous", nil, Filter{}, "[Newer Older]"},
		{"reader asking for drafts", reader, Filter{IncludeUnpublished: true}, "[Newer Older]"},
		{"admin default", admin, Filter{}, "[Newer Older]"},
		{"admin with drafts", admin, Filter{IncludeUnpublished: true}, "[Draft Newer Older]"},
		{"limit", nil, Filter{Limit: 1}, "[Newer]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ListArticles(ctx, tt.sess, tt.f)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if s := fmt.Sprint(titles(got)); s != tt.want {
				t.Fatalf("got %s, want %s", s, tt.want)
			}
		})
	}

	if _, err := f.svc.Article(ctx, reader, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reader fetching draft: expected ErrNotFound, got %v", err)
	}
	if a, err := f.svc.Article(ctx, admin, 3); err != nil || a.Title != "Draft" {
		t.Fatalf("admin fetching draft: %v %+v", err, a)
	}
}

func TestSearchEmptyQueryMatchesCategoryListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tech := f.category("Tech")
	sports := f.category("Sports")
	f.article("Go 1.22 released", true, time.Hour, tech)
	f.article("Cup final", true, time.Hour, sports)
	f.article("Rust vs Go", true, 2*time.Hour, tech)

	listed, err := f.svc.ListArticles(ctx, nil, Filter{Category: "Tech"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	searched, err := f.svc.Search(ctx, nil, "Tech", "   ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if fmt.Sprint(titles(listed)) != fmt.Sprint(titles(searched)) {
		t.Fatalf("empty search %v differs from listing %v", titles(searched), titles(listed))
	}

	got, err := f.svc.Search(ctx, nil, "", "GO")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 case-insensitive matches, got %v", titles(got))
	}
	for _, a := range got {
		if a.CategoryName != "Tech" {
			t.Errorf("%q: expected category Tech, got %q", a.Title, a.CategoryName)
		}
	}
}

func TestInteractions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.article("Story", true, time.Hour)
	draft := f.article("Draft", false, 0)
	reader := f.user("reader", model.RoleRegular)

	_, err := f.svc.Like(ctx, nil, id, "")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous like: expected ErrUnauthenticated, got %v", err)
	}
	if msg := UserMessage(err); msg != "Please login to like articles" {
		t.Fatalf("unexpected message %q", msg)
	}
	if _, err := f.svc.Share(ctx, nil, id, ""); UserMessage(err) != "Please login to share articles" {
		t.Fatalf("anonymous share: got %v", err)
	}
	if err := f.svc.RecordView(ctx, nil, id, "", 0); err != nil {
		t.Fatalf("anonymous view should be ignored, got %v", err)
	}

	if err := f.svc.RecordView(ctx, reader, id, "mobile", 12); err != nil {
		t.Fatalf("view: %v", err)
	}
	liked, err := f.svc.Like(ctx, reader, id, "")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if liked.Views != 1 || liked.Likes != 1 || liked.Shares != 0 {
		t.Fatalf("unexpected counters after like: %+v", liked)
	}
	shared, err := f.svc.Share(ctx, reader, id, "mastodon")
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if shared.Shares != 1 || shared.Likes != 1 {
		t.Fatalf("unexpected counters after share: %+v", shared)
	}

	if _, err := f.svc.Like(ctx, reader, draft, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("liking a draft: expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Like(ctx, reader, 999, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("liking a missing article: expected ErrNotFound, got %v", err)
	}

	trending, err := f.svc.Trending(ctx, 0, 0)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(trending) != 1 || trending[0].Score != 6 {
		t.Fatalf("expected one trending article scoring 6, got %+v", trending)
	}
}

func TestSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tech := f.category("Tech")
	reader := f.user("reader", model.RoleRegular)

	if _, err := f.svc.Subscribe(ctx, nil, tech); UserMessage(err) != "Please login to subscribe" {
		t.Fatalf("anonymous subscribe: got %v", err)
	}
	sub, err := f.svc.Subscribe(ctx, reader, tech)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !sub.IsActive || sub.Notifications != model.DefaultNotificationPreferences() {
		t.Fatalf("unexpected subscription %+v", sub)
	}

	_, err = f.svc.Subscribe(ctx, reader, tech)
	if !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
	if msg := UserMessage(err); msg != "Already subscribed to this category" {
		t.Fatalf("unexpected message %q", msg)
	}
	subs, err := f.svc.Subscriptions(ctx, reader)
	if err != nil || len(subs) != 1 {
		t.Fatalf("expected exactly one subscription, got %v (%v)", subs, err)
	}

	prefs := model.NotificationPreferences{Push: true}
	if err := f.svc.UpdateNotificationPreferences(ctx, reader, tech, prefs); err != nil {
		t.Fatalf("update preferences: %v", err)
	}
	subs, _ = f.svc.Subscriptions(ctx, reader)
	if subs[0].Notifications != prefs {
		t.Fatalf("preferences not saved: %+v", subs[0].Notifications)
	}

	if err := f.svc.Unsubscribe(ctx, reader, tech); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if err := f.svc.Unsubscribe(ctx, reader, tech); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second unsubscribe: expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Subscribe(ctx, reader, tech); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if _, err := f.svc.Subscribe(ctx, reader, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown category: expected ErrNotFound, got %v", err)
	}
}

func TestCommentModeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.article("Story", true, time.Hour)
	reader := f.user("reader", model.RoleRegular)
	admin := f.user("admin", model.RoleAdmin)

	if _, err := f.svc.SubmitComment(ctx, reader, id, "   "); !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("expected ErrEmptyComment, got %v", err)
	}
	c, err := f.svc.SubmitComment(ctx, reader, id, " Nice piece ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.IsApproved || c.Text != "Nice piece" {
		t.Fatalf("unexpected comment %+v", c)
	}

	public, err := f.svc.Comments(ctx, nil, id)
	if err != nil || len(public) != 0 {
		t.Fatalf("pending comment must not be public: %v (%v)", public, err)
	}

	if err := f.svc.ApproveComment(ctx, reader, c.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("reader approving: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.PendingComments(ctx, nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous pending list: expected ErrUnauthenticated, got %v", err)
	}
	pending, err := f.svc.PendingComments(ctx, admin)
	if err != nil || len(pending) != 1 || pending[0].ArticleTitle != "Story" || pending[0].Username != "reader" {
		t.Fatalf("unexpected pending list %+v (%v)", pending, err)
	}

	for i := 0; i < 2; i++ {
		if err := f.svc.ApproveComment(ctx, admin, c.ID); err != nil {
			t.Fatalf("approve #%d: %v", i+1, err)
		}
	}
	public, _ = f.svc.Comments(ctx, nil, id)
	if len(public) != 1 || public[0].ID != c.ID {
		t.Fatalf("approved comment missing from public list: %+v", public)
	}
	if err := f.svc.ApproveComment(ctx, admin, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown comment: expected ErrNotFound, got %v", err)
	}
}

func TestReportsAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.article("Story", true, time.Hour)
	reader := f.user("reader", model.RoleRegular)
	admin := f.user("admin", model.RoleAdmin)

	if _, err := f.svc.ReportArticle(ctx, reader, id, ""); !errors.Is(err, ErrEmptyReason) {
		t.Fatalf("expected ErrEmptyReason, got %v", err)
	}
	r, err := f.svc.ReportArticle(ctx, reader, id, "misleading headline")
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	stats, err := f.svc.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.TotalArticles != 1 || stats.PendingReports != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	reports, err := f.svc.PendingReports(ctx, admin)
	if err != nil || len(reports) != 1 || reports[0].ReporterUsername != "reader" {
		t.Fatalf("unexpected pending reports %+v (%v)", reports, err)
	}
	if err := f.svc.ResolveReport(ctx, admin, r.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := f.svc.ResolveReport(ctx, admin, r.ID); err != nil {
		t.Fatalf("resolving twice should be a no-op, got %v", err)
	}
	reports, _ = f.svc.PendingReports(ctx, admin)
	if len(reports) != 0 {
		t.Fatalf("expected no pending reports, got %+v", reports)
	}

	if err := f.svc.SetArticlePublished(ctx, reader, id, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("reader unpublishing: expected ErrForbidden, got %v", err)
	}
	if err := f.svc.SetArticlePublished(ctx, admin, id, false); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if _, err := f.svc.Article(ctx, reader, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unpublished article still visible: %v", err)
	}
}

func TestCategoryCountsPublishedOnly(t *testing.T) {
	f := newFixture(t)
	tech := f.category("Tech")
	f.category("Arts")
	for i := 0; i < 3; i++ {
		f.article(fmt.Sprintf("Tech %d", i), true, time.Hour, tech)
	}
	f.article("Tech draft", false, time.Hour, tech)

	cats, err := f.svc.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0].Name != "Arts" || cats[1].Name != "Tech" {
		t.Fatalf("expected alphabetical [Arts Tech], got %+v", cats)
	}
	if cats[1].ArticleCount != 3 {
		t.Fatalf("expected Tech count 3, got %d", cats[1].ArticleCount)
	}
}

type stubSessions map[string]*model.Session

func (s stubSessions) Session(_ context.Context, token string) (*model.Session, error) {
	if sess, ok := s[token]; ok {
		return sess, nil
	}
	return nil, auth.ErrNoSession
}

func TestBootstrap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.article("Story", true, time.Hour, f.category("Tech"))
	reader := f.user("reader", model.RoleRegular)
	sessions := stubSessions{reader.Token: reader}

	home, err := f.svc.Bootstrap(ctx, sessions, reader.Token)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if home.Session == nil || home.Session.User.ID != reader.User.ID {
		t.Fatalf("expected reader session, got %+v", home.Session)
	}
	if len(home.Articles) != 1 || len(home.Categories) != 1 {
		t.Fatalf("unexpected home %+v", home)
	}

	for _, token := range []string{"", "stale"} {
		home, err := f.svc.Bootstrap(ctx, sessions, token)
		if err != nil {
			t.Fatalf("bootstrap with %q: %v", token, err)
		}
		if home.Session != nil {
			t.Fatalf("token %q should leave the caller anonymous", token)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{auth.ErrInvalidCredentials, "Invalid login credentials"},
		{fmt.Errorf("sign in: %w", auth.ErrEmailNotConfirmed), "Email not confirmed"},
		{fmt.Errorf("subscribe: %w", ErrAlreadySubscribed), "Already subscribed to this category"},
		{loginRequired("comment"), "Please login to comment"},
		{ErrForbidden, "You do not have permission to do that"},
		{fmt.Errorf("get article: %w", database.ErrNotFound), "Not found"},
		{errors.New("connection reset by peer"), GenericMessage},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
