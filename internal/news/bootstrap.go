package news

import (
	"context"
	"errors"
	"sync"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// SessionResolver looks up a live session by token.
type SessionResolver interface {
	Session(ctx context.Context, token string) (*model.Session, error)
}

// Home is the first screen's data.
type Home struct {
	Session    *model.Session        `json:"session"`
	Articles   []model.ArticleView   `json:"articles"`
	Categories []model.CategoryCount `json:"categories"`
}

// Bootstrap resolves the session and loads the first article page and the
// category list at the same time. A missing or stale token leaves the
// caller anonymous.
func (s *Service) Bootstrap(ctx context.Context, sessions SessionResolver, token string) (*Home, error) {
	var (
		wg      sync.WaitGroup
		home    Home
		sessErr error
		artErr  error
		catErr  error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		if token == "" {
			return
		}
		home.Session, sessErr = sessions.Session(ctx, token)
	}()
	go func() {
		defer wg.Done()
		home.Articles, artErr = s.ListArticles(ctx, nil, Filter{})
	}()
	go func() {
		defer wg.Done()
		home.Categories, catErr = s.ListCategories(ctx)
	}()
	wg.Wait()

	if sessErr != nil {
		s.logger.Debug("bootstrap continuing anonymously", "error", sessErr)
		home.Session = nil
	}
	if err := errors.Join(artErr, catErr); err != nil {
		return nil, err
	}
	return &home, nil
}
