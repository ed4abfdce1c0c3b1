// Package server provides the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/YashasveeWankhade/NewsApp/internal/auth"
	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/news"
	"github.com/YashasveeWankhade/NewsApp/internal/rss"
)

// sessionPruneInterval is how often expired sessions are deleted.
const sessionPruneInterval = time.Hour

// Options configures the server.
type Options struct {
	// RateLimit is a ulule limiter rate such as "300-M". Empty disables it.
	RateLimit string
	// Poll starts the background feed poller with the server.
	Poll bool
	// AutoPublishImports marks sources imported over the API auto-publish.
	AutoPublishImports bool
}

// Server is the main HTTP server.
type Server struct {
	db      database.Store
	auth    *auth.Service
	news    *news.Service
	fetcher *rss.Fetcher
	poller  *rss.Poller
	opts    Options
	logger  *slog.Logger
	router  chi.Router

	httpServer *http.Server
	stop       chan struct{}
	wg         sync.WaitGroup
}

// New creates a new server.
func New(db database.Store, authSvc *auth.Service, newsSvc *news.Service, fetcher *rss.Fetcher, opts Options, logger *slog.Logger) (*Server, error) {
	s := &Server{
		db:      db,
		auth:    authSvc,
		news:    newsSvc,
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	if opts.Poll {
		s.poller = rss.NewPoller(db, fetcher, logger)
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	var limit func(http.Handler) http.Handler
	if s.opts.RateLimit != "" {
		var err error
		if limit, err = rateLimiter(s.opts.RateLimit); err != nil {
			return fmt.Errorf("rate limit %q: %w", s.opts.RateLimit, err)
		}
	}

	r.Route("/api", func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Use(s.withSession)

		r.Get("/live", s.handleLive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			r.Get("/health", s.handleHealth)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", s.handleSignUp)
				r.Post("/confirm", s.handleConfirm)
				r.Post("/signin", s.handleSignIn)
				r.Post("/signout", s.handleSignOut)
				r.Get("/session", s.handleSession)
			})

			r.Get("/home", s.handleHome)

			r.Route("/articles", func(r chi.Router) {
				r.Get("/", s.handleArticles)
				r.Get("/trending", s.handleTrending)
				r.Route("/{articleID}", func(r chi.Router) {
					r.Get("/", s.handleArticle)
					r.Post("/view", s.handleView)
					r.Post("/like", s.handleLike)
					r.Post("/share", s.handleShare)
					r.Get("/comments", s.handleComments)
					r.Post("/comments", s.handleSubmitComment)
					r.Post("/reports", s.handleReport)
				})
			})

			r.Get("/categories", s.handleCategories)
			r.Route("/categories/{categoryID}/subscription", func(r chi.Router) {
				r.Post("/", s.handleSubscribe)
				r.Put("/", s.handleUpdatePreferences)
				r.Delete("/", s.handleUnsubscribe)
			})
			r.Get("/subscriptions", s.handleSubscriptions)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/stats", s.handleStats)
				r.Get("/comments/pending", s.handlePendingComments)
				r.Post("/comments/{commentID}/approve", s.handleApproveComment)
				r.Get("/reports/pending", s.handlePendingReports)
				r.Post("/reports/{reportID}/resolve", s.handleResolveReport)
				r.Post("/articles/{articleID}/publish", s.handlePublish(true))
				r.Post("/articles/{articleID}/unpublish", s.handlePublish(false))
				r.Post("/refresh", s.handleRefresh)
				r.Post("/sources/import", s.handleImportOPML)
				r.Get("/sources/export", s.handleExportOPML)
				r.Get("/settings", s.handleGetSettings)
				r.Put("/settings", s.handleSaveSettings)
			})
		})
	})

	s.router = r
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr and runs the background jobs. It blocks until the
// server is shut down.
func (s *Server) Start(addr string) error {
	if s.poller != nil {
		s.poller.Start()
	}
	s.wg.Add(1)
	go s.pruneSessions()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server starting", "addr", addr, "database", s.db.DatabaseType())
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the background jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	close(s.stop)
	if s.poller != nil {
		s.poller.Stop()
	}
	s.wg.Wait()
	return err
}

func (s *Server) pruneSessions() {
	defer s.wg.Done()
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			n, err := s.auth.PruneSessions(context.Background())
			if err != nil {
				s.logger.Warn("pruning sessions failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("expired sessions pruned", "count", n)
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": s.db.DatabaseType(),
	})
}
