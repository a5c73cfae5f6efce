package server

import (
	"encoding/json"
	"io"
	"net/http"

	"socialfeed/internal/app"
)

type followRequest struct {
	FolloweeID int64 `json:"followee_id"`
}

// The viewer is always the follower; follow requests cannot act on behalf of
// another account.
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request, viewerID int64) {
	var req followRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FolloweeID <= 0 {
		writeAppError(w, r, &app.ValidationError{Fields: map[string]string{"followee_id": "must be a positive integer"}})
		return
	}
	edge, err := s.app.Follow(r.Context(), viewerID, req.FolloweeID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request, viewerID int64) {
	var req followRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FolloweeID <= 0 {
		writeAppError(w, r, &app.ValidationError{Fields: map[string]string{"followee_id": "must be a positive integer"}})
		return
	}
	if err := s.app.Unfollow(r.Context(), viewerID, req.FolloweeID); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "followee_id": req.FolloweeID})
}

func (s *Server) handleListFollowees(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, "id")
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	followees, err := s.app.ListFollowees(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, followees)
}
