package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/YashasveeWankhade/NewsApp/internal/auth"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
	"github.com/YashasveeWankhade/NewsApp/internal/news"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	tokenKey
)

// bearerToken reads the session token from the Authorization header, or
// from access_token for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("access_token")
}

// withSession attaches the caller's session. An unknown or expired token
// leaves the request anonymous.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), tokenKey, token)
		sess, err := s.auth.Session(ctx, token)
		switch {
		case err == nil:
			ctx = context.WithValue(ctx, sessionKey, sess)
		case errors.Is(err, auth.ErrNoSession):
		default:
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *model.Session {
	sess, _ := r.Context().Value(sessionKey).(*model.Session)
	return sess
}

func tokenFrom(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey).(string)
	return token
}

// requireAdmin guards routes that have no news operation doing the check.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		switch {
		case sess == nil:
			s.writeError(w, r, news.ErrUnauthenticated)
		case !sess.User.IsAdmin():
			s.writeError(w, r, news.ErrForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// rateLimiter builds a per-IP limiter from a formatted rate such as "300-M".
func rateLimiter(formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)
	return stdlib.NewMiddleware(instance).Handler, nil
}
