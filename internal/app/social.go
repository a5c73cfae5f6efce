package app

import (
	"context"
	"errors"
	"fmt"

	"socialfeed/internal/store"
	"socialfeed/pkg/domain"
)

// Follow creates a follow edge. Re-issuing the same follow leaves exactly one
// edge. The followee must exist.
func (a *App) Follow(ctx context.Context, followerID, followeeID int64) (domain.FollowEdge, error) {
	_, ok, err := a.store.GetAccountByID(ctx, followeeID)
	if err != nil {
		return domain.FollowEdge{}, fmt.Errorf("fetch followee: %w", err)
	}
	if !ok {
		return domain.FollowEdge{}, ErrAccountNotFound
	}
	if err := a.store.Follow(ctx, followerID, followeeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.FollowEdge{}, ErrAccountNotFound
		}
		return domain.FollowEdge{}, fmt.Errorf("follow: %w", err)
	}
	return domain.FollowEdge{FollowerID: followerID, FolloweeID: followeeID}, nil
}

// Unfollow removes a follow edge. Unfollowing someone never followed is a
// no-op, not an error.
func (a *App) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	if err := a.store.Unfollow(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

// ListFollowees returns the accounts the given account follows.
func (a *App) ListFollowees(ctx context.Context, followerID int64) ([]domain.Account, error) {
	followees, err := a.store.ListFollowees(ctx, followerID)
	if err != nil {
		return nil, fmt.Errorf("list followees: %w", err)
	}
	return followees, nil
}
