package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"tooba/internal/catalog"
)

// Library is the catalog surface the routes need. *catalog.Cache satisfies it.
type Library interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
	Refresh(ctx context.Context) (*catalog.Catalog, error)
	LookupShow(ctx context.Context, id string) (catalog.Show, error)
	LookupEpisode(ctx context.Context, id string) (catalog.Episode, error)
}

type Server struct {
	lib Library
	log zerolog.Logger
}

func New(lib Library, log zerolog.Logger) *Server {
	return &Server{lib: lib, log: log.With().Str("component", "http").Logger()}
}

// Routes builds the router. Files are only ever reached through catalog IDs.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, hlog.NewHandler(s.log), accessLog, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/shows", s.handleListShows())
		r.Get("/shows/{id}", s.handleGetShow())
		r.Get("/episodes/{id}", s.handleGetEpisode())
		r.Get("/issues", s.handleListIssues())
		r.Post("/refresh", s.handleRefresh())
	})

	r.Get("/video/{id}", s.handleEpisodeFile(func(ep catalog.Episode) string { return ep.VideoPath }))
	r.Get("/thumbnail/{id}", s.handleEpisodeFile(func(ep catalog.Episode) string { return ep.ThumbnailPath }))
	r.Get("/poster/{id}", s.handlePoster())
	return r
}

func accessLog(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, took time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("took", took).
			Msg("request")
	})(next)
}

type showSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Year         *int     `json:"year,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	HasPoster    bool     `json:"has_poster"`
	EpisodeCount int      `json:"episode_count"`
}

func (s *Server) handleListShows() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := s.lib.Catalog(r.Context())
		if err != nil {
			s.catalogError(w, r, err)
			return
		}
		shows := cat.Shows()
		out := make([]showSummary, 0, len(shows))
		for _, sh := range shows {
			out = append(out, showSummary{
				ID:           sh.ID,
				Title:        sh.Title,
				Year:         sh.Year,
				Genres:       sh.Genres,
				HasPoster:    sh.PosterPath != "",
				EpisodeCount: len(sh.Episodes),
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"shows":      out,
			"scanned_at": cat.ScannedAt,
		})
	}
}

func (s *Server) handleGetShow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		show, err := s.lib.LookupShow(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.catalogError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, show)
	}
}

func (s *Server) handleGetEpisode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ep, err := s.lib.LookupEpisode(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.catalogError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ep)
	}
}

type issueView struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func (s *Server) handleListIssues() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := s.lib.Catalog(r.Context())
		if err != nil {
			s.catalogError(w, r, err)
			return
		}
		issues := cat.Issues()
		out := make([]issueView, 0, len(issues))
		for _, is := range issues {
			out = append(out, issueView{Path: is.Path, Error: is.Err.Error()})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"issues": out})
	}
}

func (s *Server) handleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := s.lib.Refresh(r.Context())
		if err != nil {
			s.catalogError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "scan completed",
			"shows":    cat.ShowCount(),
			"episodes": cat.EpisodeCount(),
			"issues":   len(cat.Issues()),
		})
	}
}

func (s *Server) handleEpisodeFile(pick func(catalog.Episode) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ep, err := s.lib.LookupEpisode(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.catalogError(w, r, err)
			return
		}
		s.serveFile(w, r, pick(ep))
	}
}

func (s *Server) handlePoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		show, err := s.lib.LookupShow(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.catalogError(w, r, err)
			return
		}
		s.serveFile(w, r, show.PosterPath)
	}
}

// serveFile answers with range support. The catalog may be stale, so a file
// that has gone since the scan is a 404.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, p string) {
	if p == "" {
		errorJSON(w, http.StatusNotFound, "no file")
		return
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			errorJSON(w, http.StatusNotFound, "file no longer exists")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Str("path", p).Msg("open failed")
		errorJSON(w, http.StatusInternalServerError, "unable to open file")
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		errorJSON(w, http.StatusNotFound, "file no longer exists")
		return
	}
	http.ServeContent(w, r, filepath.Base(p), st.ModTime(), f)
}

func (s *Server) catalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("catalog unavailable")
		errorJSON(w, http.StatusServiceUnavailable, "catalog unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
