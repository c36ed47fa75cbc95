package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/seckatie/xmarkd/internal/core/db"
)

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	opts := db.ListOptions{}
	q := r.URL.Query()

	if v := q.Get("since"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		opts.Since = t
	}
	if v := q.Get("after"); v != "" {
		opts.AfterTweetID = v
	}
	if v := q.Get("author"); v != "" {
		opts.Author = v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		opts.Limit = n
	}
	opts.UnprocessedOnly = q.Get("unprocessed") == "true"

	bookmarks, err := s.store.ListBookmarks(opts)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list bookmarks")
		s.writeError(w, http.StatusInternalServerError, "failed to list bookmarks")
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{
		Bookmarks: toViews(bookmarks),
		Count:     len(bookmarks),
	})
}

func (s *Server) handleGetBookmark(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBookmark(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "bookmark not found")
			return
		}
		s.log.Error().Err(err).Msg("failed to load bookmark")
		s.writeError(w, http.StatusInternalServerError, "failed to load bookmark")
		return
	}
	s.writeJSON(w, http.StatusOK, toView(b))
}

func (s *Server) handleMarkProcessed(w http.ResponseWriter, r *http.Request) {
	s.setProcessed(w, r, true)
}

func (s *Server) handleMarkUnprocessed(w http.ResponseWriter, r *http.Request) {
	s.setProcessed(w, r, false)
}

func (s *Server) setProcessed(w http.ResponseWriter, r *http.Request, processed bool) {
	id := r.PathValue("id")
	var (
		found bool
		err   error
	)
	if processed {
		found, err = s.store.MarkProcessed(id)
	} else {
		found, err = s.store.MarkUnprocessed(id)
	}
	if err != nil {
		s.log.Error().Err(err).Str("tweet_id", id).Msg("failed to update processed flag")
		s.writeError(w, http.StatusInternalServerError, "failed to update bookmark")
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tweet_id": id, "processed": processed})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	bookmarks, err := s.store.Search(query, limit)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("search failed")
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{
		Bookmarks: toViews(bookmarks),
		Count:     len(bookmarks),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read stats")
		s.writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}
	s.writeJSON(w, http.StatusOK, toStatsView(stats))
}

func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
