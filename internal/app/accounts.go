package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/sync/errgroup"

	"socialfeed/internal/store"
	"socialfeed/pkg/auth"
	"socialfeed/pkg/domain"
)

const maxDisplayNameLen = 100

// Register creates an account, storing only a one-way hash of the credential.
func (a *App) Register(ctx context.Context, displayName, email, password string) (domain.Account, error) {
	displayName = strings.TrimSpace(displayName)
	if err := validateDisplayName(displayName); err != nil {
		return domain.Account{}, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.Account{}, err
	}
	if password == "" {
		return domain.Account{}, newValidationError("password", "password is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	account, err := a.store.CreateAccount(ctx, displayName, email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// Login validates credentials and issues a bearer token carrying the account
// id subject.
func (a *App) Login(ctx context.Context, email, password string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	account, ok, err := a.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("fetch account: %w", err)
	}
	if !ok || !auth.CheckPassword(password, account.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	token, err := a.tokens.Issue(account.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// GetAccount returns an account by id.
func (a *App) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	account, ok, err := a.store.GetAccountByID(ctx, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("fetch account: %w", err)
	}
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns a page of accounts. sort accepts name, -name, id, -id.
func (a *App) ListAccounts(ctx context.Context, limit, offset int, sort string) ([]domain.Account, error) {
	limit, offset = clampPage(limit, offset)
	return a.store.ListAccounts(ctx, limit, offset, sort)
}

// ProfileUpdate carries the optional fields of a profile update.
type ProfileUpdate struct {
	DisplayName *string
	Email       *string
	Password    *string
}

// UpdateProfile applies a partial profile update. A new credential is hashed
// before it reaches the store.
func (a *App) UpdateProfile(ctx context.Context, id int64, req ProfileUpdate) (domain.Account, error) {
	upd := domain.AccountUpdate{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if err := validateDisplayName(name); err != nil {
			return domain.Account{}, err
		}
		upd.DisplayName = &name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return domain.Account{}, err
		}
		upd.Email = &email
	}
	if req.Password != nil {
		if *req.Password == "" {
			return domain.Account{}, newValidationError("password", "password must not be empty")
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return domain.Account{}, fmt.Errorf("hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}
	account, err := a.store.UpdateAccount(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.Account{}, ErrAccountNotFound
		case errors.Is(err, store.ErrDuplicateEmail):
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

// DeleteAccount removes the account and all dependent rows as a single
// logical unit. An unknown id is an error, matching UpdateProfile.
func (a *App) DeleteAccount(ctx context.Context, id int64) error {
	if err := a.store.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Stats returns aggregate profile counters. The three counts are independent
// queries and run concurrently.
func (a *App) Stats(ctx context.Context, id int64) (domain.ProfileStats, error) {
	account, ok, err := a.store.GetAccountByID(ctx, id)
	if err != nil {
		return domain.ProfileStats{}, fmt.Errorf("fetch account: %w", err)
	}
	if !ok {
		return domain.ProfileStats{}, ErrAccountNotFound
	}

	stats := domain.ProfileStats{Account: account}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.Posts, err = a.store.CountPostsByAuthor(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Followers, err = a.store.CountFollowers(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Following, err = a.store.CountFollowing(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ProfileStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}

func validateDisplayName(name string) error {
	if name == "" {
		return newValidationError("display_name", "display name is required")
	}
	if len(name) > maxDisplayNameLen {
		return newValidationError("display_name", fmt.Sprintf("display name must be at most %d characters", maxDisplayNameLen))
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", newValidationError("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", newValidationError("email", "email is not a valid address")
	}
	return email, nil
}
