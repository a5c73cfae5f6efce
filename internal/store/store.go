package store

import (
	"context"
	"errors"
	"time"

	"socialfeed/pkg/domain"
)

var (
	// ErrDuplicateEmail is returned when a create or update would violate the
	// store-level email uniqueness constraint.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("not found")
)

// Store defines persistence operations for accounts, posts, follow edges, and
// likes. Implementations must honor the idempotency and cascade semantics
// documented per method; all calls observe ctx cancellation.
type Store interface {
	// accounts
	CreateAccount(ctx context.Context, displayName, email, passwordHash string) (domain.Account, error)
	GetAccountByID(ctx context.Context, id int64) (domain.Account, bool, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, bool, error)
	ListAccounts(ctx context.Context, limit, offset int, sort string) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, id int64, upd domain.AccountUpdate) (domain.Account, error)
	// DeleteAccount removes the account, its posts, every like made by the
	// account or sitting on its posts, and every follow edge touching it, in
	// one transaction. An unknown id returns ErrNotFound.
	DeleteAccount(ctx context.Context, id int64) error

	// social graph
	// Follow is idempotent: issuing it twice leaves exactly one edge. Both
	// endpoints must exist; a missing one returns ErrNotFound.
	Follow(ctx context.Context, followerID, followeeID int64) error
	// Unfollow is an idempotent no-op when the edge does not exist.
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	ListFollowees(ctx context.Context, followerID int64) ([]domain.Account, error)
	CountFollowers(ctx context.Context, accountID int64) (int, error)
	CountFollowing(ctx context.Context, accountID int64) (int, error)

	// posts
	// CreatePost requires the author to exist; a dangling author id returns
	// ErrNotFound.
	CreatePost(ctx context.Context, authorID int64, body string, createdAt time.Time) (domain.Post, error)
	GetPost(ctx context.Context, id int64) (domain.Post, bool, error)
	ListPosts(ctx context.Context, limit, offset int, dir domain.SortDirection) ([]domain.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]domain.Post, error)
	CountPostsByAuthor(ctx context.Context, authorID int64) (int, error)
	// DeletePost removes the post and its likes in one transaction.
	DeletePost(ctx context.Context, id int64) error
	// Feed returns posts ordered by (priority asc, created_at desc, id desc)
	// where priority is 0 for authors the viewer follows and 1 otherwise.
	// Pagination spans both partitions as one sequence.
	Feed(ctx context.Context, viewerID int64, limit, offset int) ([]domain.Post, error)

	// likes
	// AddLike is idempotent: a duplicate insert is silently ignored. A missing
	// account or post returns ErrNotFound.
	AddLike(ctx context.Context, accountID, postID int64) error
	// RemoveLike is an idempotent no-op when the like does not exist.
	RemoveLike(ctx context.Context, accountID, postID int64) error
	CountLikes(ctx context.Context, postID int64) (int, error)
	HasLiked(ctx context.Context, accountID, postID int64) (bool, error)
	// CountLikesByPost returns like counts grouped by post id; ids with no
	// likes are absent from the result.
	CountLikesByPost(ctx context.Context, postIDs []int64) (map[int64]int, error)
	// LikedPosts returns the subset of postIDs the account has liked.
	LikedPosts(ctx context.Context, accountID int64, postIDs []int64) (map[int64]struct{}, error)
}
