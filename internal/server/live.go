package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/YashasveeWankhade/NewsApp/internal/auth"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
	"github.com/YashasveeWankhade/NewsApp/internal/news"
)

const (
	liveWriteTimeout = 10 * time.Second
	liveReadLimit    = 64 << 10
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Incoming message shapes
type liveRequest struct {
	Type        string `json:"type"`
	ID          int64  `json:"id,omitempty"`
	Category    string `json:"category,omitempty"`
	Query       string `json:"query,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

type liveEvent struct {
	Type     string              `json:"type"`
	ID       int64               `json:"id,omitempty"`
	UserID   string              `json:"user_id,omitempty"`
	Session  *model.Session      `json:"session,omitempty"`
	Articles []model.ArticleView `json:"articles,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type liveClient struct {
	conn   *websocket.Conn
	latest news.Latest

	writeMu sync.Mutex

	mu    sync.Mutex
	sess  *model.Session
	token string
}

func (c *liveClient) session() (*model.Session, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess, c.token
}

func (c *liveClient) setSession(sess *model.Session, token string) {
	c.mu.Lock()
	c.sess, c.token = sess, token
	c.mu.Unlock()
}

func (c *liveClient) send(ev liveEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return c.conn.WriteJSON(ev)
}

// sendLatest drops ev unless token is still the newest search.
func (c *liveClient) sendLatest(token uint64, ev liveEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !c.latest.Current(token) {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return c.conn.WriteJSON(ev)
}

// handleLive streams the connection's session changes and answers
// search-as-you-type requests, newest request wins.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	c := &liveClient{conn: conn, sess: sessionFrom(r), token: tokenFrom(r)}
	defer func() {
		cancel()
		c.latest.Stop()
		conn.Close()
	}()

	go s.forwardSessionEvents(c, s.auth.Watch(ctx))

	sess, _ := c.session()
	if err := c.send(liveEvent{Type: "hello", Session: sess}); err != nil {
		return
	}

	conn.SetReadLimit(liveReadLimit)
	for {
		var req liveRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		switch req.Type {
		case "search":
			s.liveSearch(ctx, c, req)
		case "auth":
			sess, err := s.auth.Session(ctx, req.AccessToken)
			if err != nil {
				c.send(liveEvent{Type: "error", ID: req.ID, Error: news.UserMessage(err)})
				continue
			}
			c.setSession(sess, req.AccessToken)
			c.send(liveEvent{Type: "session", ID: req.ID, Session: sess})
		case "ping":
			c.send(liveEvent{Type: "pong", ID: req.ID})
		default:
			c.send(liveEvent{Type: "error", ID: req.ID, Error: "Unknown message type"})
		}
	}
}

func (s *Server) liveSearch(parent context.Context, c *liveClient, req liveRequest) {
	ctx, token := c.latest.Begin(parent)
	sess, _ := c.session()
	go func() {
		articles, err := s.news.Search(ctx, sess, req.Category, req.Query)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("live search failed", "error", err)
			c.sendLatest(token, liveEvent{Type: "error", ID: req.ID, Error: news.UserMessage(err)})
			return
		}
		c.sendLatest(token, liveEvent{Type: "search_results", ID: req.ID, Articles: articles})
	}()
}

// forwardSessionEvents relays the connection user's own session changes.
// Tokens of other sessions are never sent.
func (s *Server) forwardSessionEvents(c *liveClient, events <-chan auth.Event) {
	for ev := range events {
		sess, token := c.session()
		if sess == nil || ev.UserID != sess.User.ID {
			continue
		}
		switch ev.Type {
		case auth.SignedIn:
			c.send(liveEvent{Type: string(auth.SignedIn), UserID: ev.UserID})
		case auth.SignedOut:
			if ev.Token != token {
				continue
			}
			c.setSession(nil, "")
			c.send(liveEvent{Type: string(auth.SignedOut), UserID: ev.UserID})
		}
	}
}
