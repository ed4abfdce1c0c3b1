// Package rss ingests articles from news sources' feeds.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// Concurrency settings
const (
	// MaxConcurrencyPostgres is the number of parallel fetches for PostgreSQL
	MaxConcurrencyPostgres = 10
	// MaxConcurrencySQLite is the number of parallel fetches for SQLite (limited due to locking)
	MaxConcurrencySQLite = 1
)

// ExcerptLength caps excerpts derived from feed descriptions, in runes.
const ExcerptLength = 280

// maxErrorLength caps the feed error kept on a source, in runes.
const maxErrorLength = 200

// Options configures a Fetcher.
type Options struct {
	// AutoPublish publishes every ingested article, whatever the source says.
	AutoPublish bool
	// Timeout bounds one feed request.
	Timeout time.Duration
	// DomainDelay overrides DelayBetweenDomainRequests.
	DomainDelay time.Duration
}

// Fetcher pulls news source feeds into the article store.
type Fetcher struct {
	db            database.Store
	parser        *gofeed.Parser
	opts          Options
	logger        *slog.Logger
	concurrency   int
	domainLimiter *domainLimiter
}

// NewFetcher creates a fetcher with concurrency based on database type.
func NewFetcher(db database.Store, opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.DomainDelay <= 0 {
		opts.DomainDelay = DelayBetweenDomainRequests
	}
	concurrency := MaxConcurrencySQLite
	if db.SupportsHighConcurrency() {
		concurrency = MaxConcurrencyPostgres
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: opts.Timeout}
	parser.UserAgent = "NewsApp/1.0"
	return &Fetcher{
		db:            db,
		parser:        parser,
		opts:          opts,
		logger:        logger,
		concurrency:   concurrency,
		domainLimiter: newDomainLimiter(opts.DomainDelay),
	}
}

// FetchSource fetches one source's feed and stores new articles.
// Returns the number of articles added.
func (f *Fetcher) FetchSource(ctx context.Context, src model.NewsSource) (int, error) {
	domain := extractDomain(src.FeedURL)
	if err := f.domainLimiter.acquire(ctx, domain); err != nil {
		return 0, fmt.Errorf("rate limit cancelled for %s: %w", src.FeedURL, err)
	}
	defer f.domainLimiter.release(domain)

	parsed, err := f.parser.ParseURLWithContext(src.FeedURL, ctx)
	if err != nil {
		if uerr := f.db.UpdateSourceError(ctx, src.ID, truncateRunes(err.Error(), maxErrorLength)); uerr != nil {
			f.logger.Warn("recording source error failed", "source_id", src.ID, "error", uerr)
		}
		return 0, fmt.Errorf("parse feed %s: %w", src.FeedURL, err)
	}

	categories, err := f.categoryIndex(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	sourceID := src.ID
	newCount := 0
	for _, item := range parsed.Items {
		a := articleFromItem(item, now)
		if a == nil {
			continue
		}
		a.SourceID = &sourceID
		a.IsPublished = src.AutoPublish || f.opts.AutoPublish

		_, created, err := f.db.AddArticle(ctx, a, matchCategories(item.Categories, categories, src.DefaultCategoryID))
		if err != nil {
			f.logger.Warn("adding article failed", "source_id", src.ID, "guid", a.GUID, "error", err)
			continue
		}
		if created {
			newCount++
		}
	}

	if err := f.db.UpdateSourceLastFetched(ctx, src.ID, now); err != nil {
		f.logger.Warn("updating last_fetched failed", "source_id", src.ID, "error", err)
	}
	f.logger.Debug("source fetched", "source", src.Name, "items", len(parsed.Items), "new", newCount)
	return newCount, nil
}

// categoryIndex maps lower-cased category names to ids.
func (f *Fetcher) categoryIndex(ctx context.Context) (map[string]int64, error) {
	cats, err := f.db.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	index := make(map[string]int64, len(cats))
	for _, c := range cats {
		index[strings.ToLower(c.Name)] = c.ID
	}
	return index, nil
}

// matchCategories links an item to the known categories it names, falling
// back to the source's default category.
func matchCategories(names []string, index map[string]int64, fallback *int64) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, name := range names {
		id, ok := index[strings.ToLower(strings.TrimSpace(name))]
		if ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 && fallback != nil {
		ids = append(ids, *fallback)
	}
	return ids
}

func articleFromItem(item *gofeed.Item, now time.Time) *model.Article {
	guid := item.GUID
	if guid == "" {
		guid = item.Link
	}
	if guid == "" {
		return nil
	}
	pubDate := now
	if item.PublishedParsed != nil {
		pubDate = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		pubDate = item.UpdatedParsed.UTC()
	}

	a := &model.Article{
		GUID:        guid,
		Title:       strings.TrimSpace(item.Title),
		Content:     item.Content,
		Excerpt:     excerpt(item.Description),
		URL:         item.Link,
		PublishedAt: pubDate,
	}
	if a.Content == "" {
		a.Content = item.Description
	}
	if a.Excerpt == "" {
		a.Excerpt = excerpt(item.Content)
	}
	if item.Author != nil {
		a.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		a.Author = item.Authors[0].Name
	}
	if item.Image != nil {
		a.ImageURL = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				a.ImageURL = enc.URL
				break
			}
		}
	}
	return a
}

// excerpt reduces an HTML fragment to a short plain-text summary.
// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func excerpt(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:ExcerptLength])
	if i := strings.LastIndexByte(cut, ' '); i > ExcerptLength/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

// FetchResult holds the result of fetching a single source.
type FetchResult struct {
	SourceID    int64
	NewArticles int
	Error       error
}

// FetchAll fetches every source with a feed.
// Uses parallel workers for PostgreSQL, sequential for SQLite.
// Returns a map of source ID -> new article count.
func (f *Fetcher) FetchAll(ctx context.Context) (map[int64]int, error) {
	sources, err := f.db.GetFeedSources(ctx)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return make(map[int64]int), nil
	}

	f.logger.Info("fetching sources", "count", len(sources), "concurrency", f.concurrency)
	if f.concurrency <= 1 {
		return f.fetchSequential(ctx, sources)
	}
	return f.fetchParallel(ctx, sources)
}

func (f *Fetcher) fetchSequential(ctx context.Context, sources []model.NewsSource) (map[int64]int, error) {
	results := make(map[int64]int)
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			f.logger.Warn("fetch cancelled", "done", i, "total", len(sources))
			return results, err
		}
		count, err := f.FetchSource(ctx, src)
		if err != nil {
			f.logger.Warn("fetch failed", "source", src.Name, "url", src.FeedURL, "error", err)
			continue
		}
		results[src.ID] = count
	}
	return results, nil
}

func (f *Fetcher) fetchParallel(ctx context.Context, sources []model.NewsSource) (map[int64]int, error) {
	var wg sync.WaitGroup

	sourceChan := make(chan model.NewsSource)
	resultChan := make(chan FetchResult, len(sources))

	for i := 0; i < f.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range sourceChan {
				count, err := f.FetchSource(ctx, src)
				resultChan <- FetchResult{SourceID: src.ID, NewArticles: count, Error: err}
			}
		}()
	}

	go func() {
		defer close(sourceChan)
		for _, src := range sources {
			select {
			case <-ctx.Done():
				return
			case sourceChan <- src:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make(map[int64]int)
	for result := range resultChan {
		if result.Error != nil {
			f.logger.Warn("fetch failed", "source_id", result.SourceID, "error", result.Error)
			continue
		}
		results[result.SourceID] = result.NewArticles
	}
	return results, ctx.Err()
}
