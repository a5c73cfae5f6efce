package server

import (
	"encoding/json"
	"io"
	"net/http"

	"socialfeed/internal/app"
	"socialfeed/pkg/domain"
)

type createPostRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, viewerID int64) {
	var req createPostRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	post, err := s.app.CreatePost(r.Context(), viewerID, req.Body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request, _ int64) {
	limit, offset, verr := parsePagination(r)
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	dir, verr := parseSortDirection(r)
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	posts, err := s.app.ListPosts(r.Context(), limit, offset, dir)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request, viewerID int64) {
	limit, offset, verr := parsePagination(r)
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	posts, err := s.app.Feed(r.Context(), viewerID, limit, offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, viewerID int64) {
	id, verr := pathID(r, "id")
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	if err := s.app.DeletePost(r.Context(), id, viewerID); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func parseSortDirection(r *http.Request) (domain.SortDirection, *app.ValidationError) {
	switch r.URL.Query().Get("sort") {
	case "", "desc":
		return domain.SortDescending, nil
	case "asc":
		return domain.SortAscending, nil
	default:
		return "", &app.ValidationError{Fields: map[string]string{"sort": "must be asc or desc"}}
	}
}
