package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/voyagen/darteve/internal/match"
	"github.com/voyagen/darteve/internal/models"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.catalog.Categories(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

type addCategoryRequest struct {
	Name        string `json:"name"`
	PlaylistURL string `json:"playlist_url"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	cat, err := s.catalog.AddCustomCategory(r.Context(), req.Name, req.PlaylistURL)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteCustomCategory(r.Context(), r.PathValue("id")); err != nil {
		writeServiceErr(w, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleCategoryChannels(w http.ResponseWriter, r *http.Request) {
	chs, err := s.catalog.Channels(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if chs == nil {
		chs = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, chs)
}

func (s *Server) handleSearchChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeErr(w, http.StatusBadRequest, errors.New("query parameter 'q' is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.Search(r.Context(), q))
}

func (s *Server) handleRelatedChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Related(r.Context(), r.PathValue("id")))
}

type matchesResponse struct {
	Matches []match.View `json:"matches"`
	Counts  match.Counts `json:"counts"`
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, counts := s.catalog.Matches(q.Get("sport"), q.Get("status"), s.now())
	if views == nil {
		views = []match.View{}
	}
	writeJSON(w, http.StatusOK, matchesResponse{Matches: views, Counts: counts})
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.catalog.Favorites(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var ch models.Channel
	if err := decodeJSON(r, &ch); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	fav, err := s.catalog.ToggleFavorite(r.Context(), ch)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": fav})
}

type refreshRequest struct {
	CategoryIDs []string `json:"category_ids"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	queued, err := s.catalog.RequestRefresh(r.Context(), req.CategoryIDs)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if queued {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
