package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"socialfeed/internal/store"
	"socialfeed/pkg/domain"
)

// Like records that the account liked the post. Re-liking is a no-op: the
// store ignores the conflicting insert, so concurrent calls leave one row.
func (a *App) Like(ctx context.Context, accountID, postID int64) error {
	_, ok, err := a.store.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("fetch post: %w", err)
	}
	if !ok {
		return ErrPostNotFound
	}
	if err := a.store.AddLike(ctx, accountID, postID); err != nil {
		// The post was just checked, so a reference failure here means the
		// liking account is gone.
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("add like: %w", err)
	}
	return nil
}

// Unlike removes the like. Unliking something never liked is a no-op.
func (a *App) Unlike(ctx context.Context, accountID, postID int64) error {
	if err := a.store.RemoveLike(ctx, accountID, postID); err != nil {
		return fmt.Errorf("remove like: %w", err)
	}
	return nil
}

// LikeSummary returns the total count and the viewer's liked state for one
// post.
func (a *App) LikeSummary(ctx context.Context, viewerID, postID int64) (domain.LikeSummary, error) {
	summary := domain.LikeSummary{PostID: postID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.Count, err = a.store.CountLikes(gctx, postID)
		return err
	})
	g.Go(func() error {
		var err error
		summary.LikedByMe, err = a.store.HasLiked(gctx, viewerID, postID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.LikeSummary{}, fmt.Errorf("like summary: %w", err)
	}
	return summary, nil
}

// BatchLikeSummary returns one summary per requested post id. An empty input
// returns an empty map without touching the store; otherwise one grouped count
// query and one membership query run concurrently and are merged, defaulting
// the count to 0 for ids with no likes.
func (a *App) BatchLikeSummary(ctx context.Context, viewerID int64, postIDs []int64) (map[int64]domain.LikeSummary, error) {
	if len(postIDs) == 0 {
		return map[int64]domain.LikeSummary{}, nil
	}

	var (
		counts map[int64]int
		liked  map[int64]struct{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = a.store.CountLikesByPost(gctx, postIDs)
		return err
	})
	g.Go(func() error {
		var err error
		liked, err = a.store.LikedPosts(gctx, viewerID, postIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch like summary: %w", err)
	}

	out := make(map[int64]domain.LikeSummary, len(postIDs))
	for _, id := range postIDs {
		_, likedByMe := liked[id]
		out[id] = domain.LikeSummary{
			PostID:    id,
			Count:     counts[id],
			LikedByMe: likedByMe,
		}
	}
	return out, nil
}
