package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"socialfeed/internal/store"
	"socialfeed/pkg/domain"
)

const maxPostLen = 280

// CreatePost validates and stores a new post, timestamped at acceptance time.
func (a *App) CreatePost(ctx context.Context, authorID int64, body string) (domain.Post, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Post{}, newValidationError("body", "post body must not be empty or only whitespace")
	}
	if utf8.RuneCountInString(body) > maxPostLen {
		return domain.Post{}, newValidationError("body", fmt.Sprintf("post body must be at most %d characters", maxPostLen))
	}
	post, err := a.store.CreatePost(ctx, authorID, body, time.Now().UTC())
	if err != nil {
		// A bearer token can outlive its account; the store rejects the
		// dangling author reference.
		if errors.Is(err, store.ErrNotFound) {
			return domain.Post{}, ErrAccountNotFound
		}
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// GetPost returns one post with its author.
func (a *App) GetPost(ctx context.Context, id int64) (domain.Post, error) {
	post, ok, err := a.store.GetPost(ctx, id)
	if err != nil {
		return domain.Post{}, fmt.Errorf("fetch post: %w", err)
	}
	if !ok {
		return domain.Post{}, ErrPostNotFound
	}
	return post, nil
}

// ListPosts returns a page of posts ordered by creation time.
func (a *App) ListPosts(ctx context.Context, limit, offset int, dir domain.SortDirection) ([]domain.Post, error) {
	limit, offset = clampPage(limit, offset)
	if dir != domain.SortAscending {
		dir = domain.SortDescending
	}
	return a.store.ListPosts(ctx, limit, offset, dir)
}

// ListPostsByAuthor returns one account's posts, newest first.
func (a *App) ListPostsByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]domain.Post, error) {
	limit, offset = clampPage(limit, offset)
	return a.store.ListPostsByAuthor(ctx, authorID, limit, offset)
}

// DeletePost removes a post after checking the requester is its author.
// The post's likes go with it.
func (a *App) DeletePost(ctx context.Context, postID, requesterID int64) error {
	post, ok, err := a.store.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("fetch post: %w", err)
	}
	if !ok {
		return ErrPostNotFound
	}
	if post.Author.ID != requesterID {
		return ErrNotPostAuthor
	}
	if err := a.store.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// Feed returns the viewer's priority-partitioned feed: posts from followed
// authors first, then everyone else, each group newest first, paginated as one
// sequence.
func (a *App) Feed(ctx context.Context, viewerID int64, limit, offset int) ([]domain.Post, error) {
	limit, offset = clampPage(limit, offset)
	return a.store.Feed(ctx, viewerID, limit, offset)
}
