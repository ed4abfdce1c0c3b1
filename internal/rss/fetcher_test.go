package rss

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Daily Wire Service</title>
  <link>https://news.example.com</link>
  <item>
    <title>Chip shortage eases</title>
    <link>https://news.example.com/chips</link>
    <guid>chips-1</guid>
    <category>TECH</category>
    <description>&lt;p&gt;Supply of &lt;b&gt;chips&lt;/b&gt; recovers.&lt;/p&gt;</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title>Summit opens</title>
    <link>https://news.example.com/summit</link>
    <description>Leaders meet.</description>
  </item>
  <item>
    <title>No identity</title>
  </item>
</channel>
</rss>`

func testStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "rss.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testFetcher(db database.Store, opts Options) *Fetcher {
	opts.DomainDelay = time.Millisecond
	return NewFetcher(db, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchSourceStoresArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, testFeed)
	}))
	defer srv.Close()

	ctx := context.Background()
	db := testStore(t)
	tech, _ := db.GetOrCreateCategory(ctx, "Tech")
	world, _ := db.GetOrCreateCategory(ctx, "World")
	srcID, err := db.CreateSource(ctx, &model.NewsSource{Name: "Wire", FeedURL: srv.URL, DefaultCategoryID: &world})
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	sources, err := db.GetFeedSources(ctx)
	if err != nil || len(sources) != 1 {
		t.Fatalf("feed sources: %v %v", sources, err)
	}

	f := testFetcher(db, Options{})
	n, err := f.FetchSource(ctx, sources[0])
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 new articles, got %d", n)
	}
	if n, _ := f.FetchSource(ctx, sources[0]); n != 0 {
		t.Fatalf("refetch should add nothing, got %d", n)
	}

	published, _ := db.GetArticles(ctx, database.ArticleQuery{})
	if len(published) != 0 {
		t.Fatalf("source without auto-publish must not publish, got %d", len(published))
	}

	all, err := db.GetArticles(ctx, database.ArticleQuery{IncludeUnpublished: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byTitle := map[string]model.ArticleView{}
	for _, a := range all {
		byTitle[a.Title] = a
	}
	chips := byTitle["Chip shortage eases"]
	if chips.CategoryName != "Tech" || chips.Excerpt != "Supply of chips recovers." || chips.SourceName != "Wire" {
		t.Fatalf("unexpected chips article %+v", chips)
	}
	if chips.SourceID == nil || *chips.SourceID != srcID {
		t.Fatalf("article not linked to source: %+v", chips.SourceID)
	}
	if summit := byTitle["Summit opens"]; summit.CategoryName != "World" {
		t.Fatalf("expected default category World, got %q", summit.CategoryName)
	}

	counts, _ := db.GetCategoryCounts(ctx)
	for _, c := range counts {
		if c.ID == tech && c.ArticleCount != 0 {
			t.Fatalf("unpublished ingest must not count, got %d", c.ArticleCount)
		}
	}
}

func TestFetchAllAutoPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, testFeed)
	}))
	defer srv.Close()

	ctx := context.Background()
	db := testStore(t)
	if _, err := db.CreateSource(ctx, &model.NewsSource{Name: "Wire", FeedURL: srv.URL, AutoPublish: true}); err != nil {
		t.Fatalf("create source: %v", err)
	}
	if _, err := db.CreateSource(ctx, &model.NewsSource{Name: "Print only"}); err != nil {
		t.Fatalf("create source: %v", err)
	}

	results, err := testFetcher(db, Options{}).FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the feed source to be fetched, got %v", results)
	}
	published, _ := db.GetArticles(ctx, database.ArticleQuery{})
	if len(published) != 2 {
		t.Fatalf("expected 2 published articles, got %d", len(published))
	}
	for _, a := range published {
		if a.CategoryName != model.DefaultCategoryName {
			t.Errorf("%q: expected %q, got %q", a.Title, model.DefaultCategoryName, a.CategoryName)
		}
	}
}

func TestFetchSourceRecordsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx := context.Background()
	db := testStore(t)
	if _, err := db.CreateSource(ctx, &model.NewsSource{Name: "Gone", FeedURL: srv.URL}); err != nil {
		t.Fatalf("create source: %v", err)
	}
	sources, _ := db.GetFeedSources(ctx)
	if _, err := testFetcher(db, Options{}).FetchSource(ctx, sources[0]); err == nil {
		t.Fatal("expected an error for a missing feed")
	}
	sources, _ = db.GetFeedSources(ctx)
	if sources[0].LastError == "" {
		t.Fatal("expected the fetch error to be recorded on the source")
	}
}

func TestMatchCategories(t *testing.T) {
	index := map[string]int64{"tech": 1, "world": 2}
	fallback := int64(9)
	tests := []struct {
		names    []string
		fallback *int64
		want     []int64
	}{
		{[]string{"Tech", " WORLD ", "tech"}, &fallback, []int64{1, 2}},
		{[]string{"Cooking"}, &fallback, []int64{9}},
		{nil, nil, nil},
	}
	for _, tt := range tests {
		got := matchCategories(tt.names, index, tt.fallback)
		if len(got) != len(tt.want) {
			t.Fatalf("matchCategories(%v) = %v, want %v", tt.names, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("matchCategories(%v) = %v, want %v", tt.names, got, tt.want)
			}
		}
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("<p>Hello <em>there</em>\n\n world</p>"); got != "Hello there world" {
		t.Fatalf("unexpected excerpt %q", got)
	}
	long := strings.Repeat("word ", 100)
	got := excerpt(long)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) > ExcerptLength+1 {
		t.Fatalf("long text not truncated: %d runes", len([]rune(got)))
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"ééééé", 3, "ééé"},
		{strings.Repeat("ü", maxErrorLength+50), maxErrorLength, strings.Repeat("ü", maxErrorLength)},
	}
	for _, tt := range tests {
		got := truncateRunes(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateRunes(%q, %d) split a rune", tt.in, tt.n)
		}
	}
}
