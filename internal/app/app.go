package app

import (
	"errors"

	"socialfeed/internal/store"
	"socialfeed/internal/usertoken"
)

// MaxPageSize bounds limit/offset pagination to prevent unbounded scans.
const MaxPageSize = 200

// DefaultPageSize is used when a request does not specify a limit.
const DefaultPageSize = 50

// Config holds the collaborators the application core needs.
type Config struct {
	Store  store.Store
	Tokens *usertoken.Manager
}

// App is the application core wiring the stores and token issuance together.
// All mutation goes through the Store's transactional operations; App itself
// holds no mutable state.
type App struct {
	store  store.Store
	tokens *usertoken.Manager
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("app requires a store")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("app requires a token manager")
	}
	return &App{store: cfg.Store, tokens: cfg.Tokens}, nil
}

// clampPage normalizes limit/offset to sane bounds.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
