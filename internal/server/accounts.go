package server

import (
	"encoding/json"
	"io"
	"net/http"

	"socialfeed/internal/app"
)

type registerRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type updateMeRequest struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.signupLimiter, "too many registration attempts") {
		return
	}
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	account, err := s.app.Register(r.Context(), req.DisplayName, req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset, verr := parsePagination(r)
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	accounts, err := s.app.ListAccounts(r.Context(), limit, offset, r.URL.Query().Get("sort"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request, viewerID int64) {
	account, err := s.app.GetAccount(r.Context(), viewerID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handlePatchMe(w http.ResponseWriter, r *http.Request, viewerID int64) {
	var req updateMeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	account, err := s.app.UpdateProfile(r.Context(), viewerID, app.ProfileUpdate{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request, viewerID int64) {
	if err := s.app.DeleteAccount(r.Context(), viewerID); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, "id")
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	account, err := s.app.GetAccount(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleAccountStats(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, "id")
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	stats, err := s.app.Stats(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAccountPosts(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, "id")
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	limit, offset, verr := parsePagination(r)
	if verr != nil {
		writeAppError(w, r, verr)
		return
	}
	posts, err := s.app.ListPostsByAuthor(r.Context(), id, limit, offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}
