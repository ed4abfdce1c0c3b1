package server

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
	"github.com/YashasveeWankhade/NewsApp/internal/opml"
)

// maxOPMLSize bounds an uploaded catalogue.
const maxOPMLSize = 5 << 20

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.news.Stats(r.Context(), sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePendingComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.news.PendingComments(r.Context(), sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleApproveComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "commentID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.news.ApproveComment(r.Context(), sessionFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePendingReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.news.PendingReports(r.Context(), sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleResolveReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "reportID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.news.ResolveReport(r.Context(), sessionFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePublish(published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "articleID")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.news.SetArticlePublished(r.Context(), sessionFrom(r), id, published); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"article_id": id, "is_published": published})
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	results, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("refresh: %w", err))
		return
	}

	total := 0
	for _, c := range results {
		total += c
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"new_articles": total,
		"sources":      len(results),
	})
}

// handleImportOPML accepts a multipart "opml" file or a raw OPML body.
func (s *Server) handleImportOPML(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxOPMLSize)
	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile("opml")
		if err != nil {
			s.writeError(w, r, badRequest("Missing OPML file"))
			return
		}
		defer file.Close()
		src = file
	}

	entries, err := opml.Parse(src)
	if err != nil {
		s.writeError(w, r, badRequest("Failed to parse OPML"))
		return
	}
	res, err := opml.Import(r.Context(), s.db, entries, s.opts.AutoPublishImports)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("sources imported", "added", res.Added, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"imported": res.Added,
		"total":    len(entries),
	})
}

func (s *Server) handleExportOPML(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetSources(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := opml.Export("NewsApp Sources", sources)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename=newsapp-sources.opml")
	w.Write(data)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	interval, err := s.db.GetPollingInterval(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"polling_interval": interval})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PollingInterval int `json:"polling_interval"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.PollingInterval < database.MinPollingIntervalMinutes {
		req.PollingInterval = database.MinPollingIntervalMinutes
	}
	if err := s.db.SetSetting(r.Context(), model.SettingPollingInterval, strconv.Itoa(req.PollingInterval)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "polling_interval": req.PollingInterval})
}
