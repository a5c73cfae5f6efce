package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"socialfeed/internal/app"
	"socialfeed/internal/ratelimit"
	"socialfeed/internal/usertoken"
	"socialfeed/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	Tokens                   *usertoken.Manager
	RedisAddr                string
	RedisPassword            string
	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int
	AllowedOrigins           []string
}

// Server exposes the HTTP endpoints for the social feed backend.
type Server struct {
	app            *app.App
	tokens         *usertoken.Manager
	mux            *http.ServeMux
	allowedOrigins []string
	signupLimiter  *ratelimit.FixedWindowLimiter
	loginLimiter   *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "socialfeed:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:            cfg.App,
		tokens:         cfg.Tokens,
		mux:            http.NewServeMux(),
		allowedOrigins: cfg.AllowedOrigins,
		signupLimiter:  signupLimiter,
		loginLimiter:   loginLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped with the shared middleware.
func (s *Server) Router() http.Handler {
	handler := http.Handler(s.mux)
	handler = util.WithRequestLog(handler)
	handler = util.WithRequestID(handler)
	handler = util.WithCORS(s.allowedOrigins, handler)
	handler = util.WithSecurityHeaders(handler)
	return handler
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// accounts
	s.mux.HandleFunc("POST /account", s.handleRegister)
	s.mux.HandleFunc("POST /account/login", s.handleLogin)
	s.mux.HandleFunc("GET /account", s.handleListAccounts)
	s.mux.Handle("GET /account/me", s.authenticated(s.handleGetMe))
	s.mux.Handle("PATCH /account/me", s.authenticated(s.handlePatchMe))
	s.mux.Handle("DELETE /account/me", s.authenticated(s.handleDeleteMe))
	s.mux.HandleFunc("GET /account/{id}", s.handleGetAccount)
	s.mux.HandleFunc("GET /account/{id}/stats", s.handleAccountStats)
	s.mux.HandleFunc("GET /account/{id}/posts", s.handleAccountPosts)

	// posts & feed
	s.mux.Handle("POST /post", s.authenticated(s.handleCreatePost))
	s.mux.Handle("GET /post", s.authenticated(s.handleListPosts))
	s.mux.Handle("GET /post/feed", s.authenticated(s.handleFeed))
	s.mux.Handle("DELETE /post/{id}", s.authenticated(s.handleDeletePost))

	// social graph
	s.mux.Handle("POST /social-graph", s.authenticated(s.handleFollow))
	s.mux.Handle("DELETE /social-graph", s.authenticated(s.handleUnfollow))
	s.mux.HandleFunc("GET /social-graph/followees/{id}", s.handleListFollowees)

	// likes
	s.mux.Handle("GET /like/batch", s.authenticated(s.handleBatchLikeSummary))
	s.mux.Handle("POST /like/{post_id}", s.authenticated(s.handleLike))
	s.mux.Handle("DELETE /like/{post_id}", s.authenticated(s.handleUnlike))
	s.mux.Handle("GET /like/{post_id}", s.authenticated(s.handleLikeSummary))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// viewerHandler receives the authenticated viewer's account id.
type viewerHandler func(http.ResponseWriter, *http.Request, int64)

// authenticated resolves the viewer identity from the bearer token before
// dispatching.
func (s *Server) authenticated(next viewerHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		viewerID, err := s.tokens.VerifySubject(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, viewerID)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter.Allow(clientIP(r)) {
		return true
	}
	writeError(w, r, http.StatusTooManyRequests, msg)
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// pathID parses the named integer path segment. A malformed id is reported as
// a validation failure.
func pathID(r *http.Request, name string) (int64, *app.ValidationError) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &app.ValidationError{Fields: map[string]string{name: "must be a positive integer"}}
	}
	return id, nil
}

// parsePagination reads limit/offset query params, rejecting malformed or
// out-of-range values the way the rest of the input validation does.
func parsePagination(r *http.Request) (limit, offset int, verr *app.ValidationError) {
	limit = app.DefaultPageSize
	offset = 0
	fields := map[string]string{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > app.MaxPageSize {
			fields["limit"] = fmt.Sprintf("must be an integer between 1 and %d", app.MaxPageSize)
		} else {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields["offset"] = "must be a non-negative integer"
		} else {
			offset = n
		}
	}
	if len(fields) > 0 {
		return 0, 0, &app.ValidationError{Fields: fields}
	}
	return limit, offset, nil
}
