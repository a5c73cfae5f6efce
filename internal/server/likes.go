package server

import (
	"net/http"
	"strconv"
	"strings"

	"socialfeed/internal/app"
)

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request, viewerID int64) {
	postID, verr := pathID(r, "post_id")
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	if err := s.app.Like(r.Context(), viewerID, postID); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"liked": true, "post_id": postID})
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request, viewerID int64) {
	postID, verr := pathID(r, "post_id")
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	if err := s.app.Unlike(r.Context(), viewerID, postID); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"liked": false, "post_id": postID})
}

func (s *Server) handleLikeSummary(w http.ResponseWriter, r *http.Request, viewerID int64) {
	postID, verr := pathID(r, "post_id")
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	summary, err := s.app.LikeSummary(r.Context(), viewerID, postID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBatchLikeSummary(w http.ResponseWriter, r *http.Request, viewerID int64) {
	postIDs, verr := parsePostIDs(r)
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	summaries, err := s.app.BatchLikeSummary(r.Context(), viewerID, postIDs)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// parsePostIDs accepts both repeated post_ids params and comma-separated
// lists: ?post_ids=1&post_ids=2 and ?post_ids=1,2 are equivalent.
func parsePostIDs(r *http.Request) ([]int64, *app.ValidationError) {
	var ids []int64
	for _, raw := range r.URL.Query()["post_ids"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, &app.ValidationError{Fields: map[string]string{"post_ids": "must be positive integers"}}
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
