package server

import (
	"net/http"
	"strconv"

	"github.com/YashasveeWankhade/NewsApp/internal/auth"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
	"github.com/YashasveeWankhade/NewsApp/internal/news"
)

// --- Auth Handlers ---

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.SignUp(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]any{"user": res.User, "confirmation_required": res.ConfirmationToken != ""}
	if res.ConfirmationToken != "" {
		// No mailer is wired; the token goes to the operator log.
		s.logger.Info("confirmation token issued", "user_id", res.User.ID, "email", res.User.Email, "token", res.ConfirmationToken)
		resp["message"] = "Account created! Please check your email to verify."
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.ConfirmEmail(r.Context(), req.Token); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), tokenFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess == nil {
		s.writeError(w, r, auth.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// --- Content Handlers ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.news.Bootstrap(r.Context(), s.auth, tokenFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intQuery(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f := news.Filter{
		Category:           q.Get("category"),
		Query:              q.Get("q"),
		Limit:              limit,
		IncludeUnpublished: q.Get("include_unpublished") == "true",
	}
	if v := q.Get("category_id"); v != "" {
		if f.CategoryID, err = strconv.ParseInt(v, 10, 64); err != nil {
			s.writeError(w, r, badRequest("Invalid category_id"))
			return
		}
	}
	articles, err := s.news.ListArticles(r.Context(), sessionFrom(r), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	daysBack, err := intQuery(r, "days_back")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	trending, err := s.news.Trending(r.Context(), daysBack, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trending)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "articleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.news.Article(r.Context(), sessionFrom(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.news.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// --- Interaction Handlers ---

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "articleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		DeviceType   string `json:"device_type"`
		ViewDuration int    `json:"view_duration"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.news.RecordView(r.Context(), sessionFrom(r), id, req.DeviceType, req.ViewDuration); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "articleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		ReactionType string `json:"reaction_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.news.Like(r.Context(), sessionFrom(r), id, req.ReactionType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "articleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		PlatformType string `json:"platform_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.news.Share(r.Context(), sessionFrom(r), id, req.PlatformType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "articleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	comments, err := s.news.Comments(r.Context(), sessionFrom(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleSubmitComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "articleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		Text string `json:"comment_text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.news.SubmitComment(r.Context(), sessionFrom(r), id, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"comment": c,
		"message": "Comment submitted for approval!",
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "articleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.news.ReportArticle(r.Context(), sessionFrom(r), id, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// --- Subscription Handlers ---

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "categoryID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.news.Subscribe(r.Context(), sessionFrom(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "categoryID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var prefs model.NotificationPreferences
	if err := decodeJSON(r, &prefs); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.news.UpdateNotificationPreferences(r.Context(), sessionFrom(r), id, prefs); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "categoryID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.news.Unsubscribe(r.Context(), sessionFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.news.Subscriptions(r.Context(), sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}
