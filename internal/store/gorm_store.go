package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"socialfeed/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&AccountModel{}, &PostModel{}, &FollowModel{}, &LikeModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// postRow is the scan target for post queries joined with the author.
type postRow struct {
	ID         int64
	Body       string
	CreatedAt  time.Time
	AuthorID   int64
	AuthorName string
}

func (r postRow) toDomain() domain.Post {
	return domain.Post{
		ID:        r.ID,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
		Author: domain.AccountRef{
			ID:          r.AuthorID,
			DisplayName: r.AuthorName,
		},
	}
}

const postColumns = "posts.id, posts.body, posts.created_at, accounts.id AS author_id, accounts.display_name AS author_name"

func (s *GormStore) postQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("posts").
		Select(postColumns).
		Joins("JOIN accounts ON accounts.id = posts.author_id")
}

// CreateAccount inserts a new account, surfacing duplicate emails as
// ErrDuplicateEmail via the store-level unique index.
func (s *GormStore) CreateAccount(ctx context.Context, displayName, email, passwordHash string) (domain.Account, error) {
	model := AccountModel{
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Account{}, ErrDuplicateEmail
		}
		return domain.Account{}, err
	}
	return accountFromModel(model), nil
}

// GetAccountByID returns an account by id.
func (s *GormStore) GetAccountByID(ctx context.Context, id int64) (domain.Account, bool, error) {
	var model AccountModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	return accountFromModel(model), true, nil
}

// GetAccountByEmail looks up an account by email.
func (s *GormStore) GetAccountByEmail(ctx context.Context, email string) (domain.Account, bool, error) {
	var model AccountModel
	if err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	return accountFromModel(model), true, nil
}

// ListAccounts returns a page of accounts. sort accepts name, -name, id, -id;
// unknown values fall back to name ascending.
func (s *GormStore) ListAccounts(ctx context.Context, limit, offset int, sort string) ([]domain.Account, error) {
	var order string
	switch sort {
	case "-name":
		order = "display_name DESC"
	case "id":
		order = "id ASC"
	case "-id":
		order = "id DESC"
	default:
		order = "display_name ASC"
	}
	var models []AccountModel
	err := s.db.WithContext(ctx).
		Order(order).
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Account, 0, len(models))
	for _, m := range models {
		res = append(res, accountFromModel(m))
	}
	return res, nil
}

// UpdateAccount applies a partial profile update and returns the new state.
func (s *GormStore) UpdateAccount(ctx context.Context, id int64, upd domain.AccountUpdate) (domain.Account, error) {
	values := map[string]any{}
	if upd.DisplayName != nil {
		values["display_name"] = *upd.DisplayName
	}
	if upd.Email != nil {
		values["email"] = *upd.Email
	}
	if upd.PasswordHash != nil {
		values["password_hash"] = *upd.PasswordHash
	}

	var model AccountModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if len(values) == 0 {
			return nil
		}
		if err := tx.Model(&AccountModel{}).Where("id = ?", id).Updates(values).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateEmail
			}
			return err
		}
		return tx.First(&model, "id = ?", id).Error
	})
	if err != nil {
		return domain.Account{}, err
	}
	return accountFromModel(model), nil
}

// DeleteAccount tears down the account and every dependent row in one
// transaction so observers never see a half-deleted account. An unknown id
// rolls back with ErrNotFound.
func (s *GormStore) DeleteAccount(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id IN (SELECT id FROM posts WHERE author_id = ?)", id).Delete(&LikeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&LikeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&PostModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).Delete(&FollowModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&AccountModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Follow inserts an edge, ignoring the conflict when it already exists. A
// foreign-key violation means one endpoint is gone and surfaces as ErrNotFound.
func (s *GormStore) Follow(ctx context.Context, followerID, followeeID int64) error {
	model := FollowModel{FollowerID: followerID, FolloweeID: followeeID}
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrNotFound
	}
	return err
}

// Unfollow removes the edge whether or not it exists.
func (s *GormStore) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	return s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&FollowModel{}).Error
}

// ListFollowees returns the accounts the follower follows.
func (s *GormStore) ListFollowees(ctx context.Context, followerID int64) ([]domain.Account, error) {
	var models []AccountModel
	err := s.db.WithContext(ctx).
		Where("id IN (SELECT followee_id FROM follows WHERE follower_id = ?)", followerID).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Account, 0, len(models))
	for _, m := range models {
		res = append(res, accountFromModel(m))
	}
	return res, nil
}

// CountFollowers counts edges pointing at the account.
func (s *GormStore) CountFollowers(ctx context.Context, accountID int64) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&FollowModel{}).Where("followee_id = ?", accountID).Count(&count).Error
	return int(count), err
}

// CountFollowing counts edges originating from the account.
func (s *GormStore) CountFollowing(ctx context.Context, accountID int64) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&FollowModel{}).Where("follower_id = ?", accountID).Count(&count).Error
	return int(count), err
}

// CreatePost inserts a post and reads it back joined with the author, in one
// transaction so a failed read-back leaves no stranded row. An author id with
// no account behind it violates the foreign key and surfaces as ErrNotFound.
func (s *GormStore) CreatePost(ctx context.Context, authorID int64, body string, createdAt time.Time) (domain.Post, error) {
	model := PostModel{
		Body:      body,
		AuthorID:  authorID,
		CreatedAt: createdAt,
	}
	var row postRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrNotFound
			}
			return err
		}
		result := tx.Table("posts").
			Select(postColumns).
			Joins("JOIN accounts ON accounts.id = posts.author_id").
			Where("posts.id = ?", model.ID).
			Limit(1).
			Scan(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return domain.Post{}, err
	}
	return row.toDomain(), nil
}

// GetPost retrieves one post with its author.
func (s *GormStore) GetPost(ctx context.Context, id int64) (domain.Post, bool, error) {
	var row postRow
	result := s.postQuery(ctx).Where("posts.id = ?", id).Limit(1).Scan(&row)
	if result.Error != nil {
		return domain.Post{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Post{}, false, nil
	}
	return row.toDomain(), true, nil
}

// ListPosts returns a page of posts ordered by creation time.
func (s *GormStore) ListPosts(ctx context.Context, limit, offset int, dir domain.SortDirection) ([]domain.Post, error) {
	order := "posts.created_at DESC, posts.id DESC"
	if dir == domain.SortAscending {
		order = "posts.created_at ASC, posts.id ASC"
	}
	var rows []postRow
	err := s.postQuery(ctx).
		Order(order).
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToPosts(rows), nil
}

// ListPostsByAuthor returns one author's posts, newest first.
func (s *GormStore) ListPostsByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]domain.Post, error) {
	var rows []postRow
	err := s.postQuery(ctx).
		Where("posts.author_id = ?", authorID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToPosts(rows), nil
}

// CountPostsByAuthor counts an author's posts.
func (s *GormStore) CountPostsByAuthor(ctx context.Context, authorID int64) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&PostModel{}).Where("author_id = ?", authorID).Count(&count).Error
	return int(count), err
}

// DeletePost removes the post and its likes in one transaction.
func (s *GormStore) DeletePost(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&LikeModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&PostModel{}, "id = ?", id).Error
	})
}

// Feed composes the priority-partitioned feed in a single ordering pass so a
// page near the boundary contains posts from both partitions. The id tie-break
// keeps pagination stable for posts sharing a timestamp.
func (s *GormStore) Feed(ctx context.Context, viewerID int64, limit, offset int) ([]domain.Post, error) {
	const feedQuery = `
SELECT posts.id, posts.body, posts.created_at,
       accounts.id AS author_id, accounts.display_name AS author_name,
       CASE WHEN posts.author_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)
            THEN 0 ELSE 1 END AS priority
FROM posts
JOIN accounts ON accounts.id = posts.author_id
ORDER BY priority ASC, posts.created_at DESC, posts.id DESC
LIMIT ? OFFSET ?`
	var rows []postRow
	err := s.db.WithContext(ctx).Raw(feedQuery, viewerID, limit, offset).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToPosts(rows), nil
}

// AddLike inserts the (account, post) pair, ignoring the conflict on the
// composite primary key. Two concurrent calls leave exactly one row. A
// foreign-key violation means the account or post is gone and surfaces as
// ErrNotFound.
func (s *GormStore) AddLike(ctx context.Context, accountID, postID int64) error {
	model := LikeModel{AccountID: accountID, PostID: postID}
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrNotFound
	}
	return err
}

// RemoveLike deletes the pair whether or not it exists.
func (s *GormStore) RemoveLike(ctx context.Context, accountID, postID int64) error {
	return s.db.WithContext(ctx).
		Where("account_id = ? AND post_id = ?", accountID, postID).
		Delete(&LikeModel{}).Error
}

// CountLikes returns the total likes for one post.
func (s *GormStore) CountLikes(ctx context.Context, postID int64) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&LikeModel{}).Where("post_id = ?", postID).Count(&count).Error
	return int(count), err
}

// HasLiked reports whether the account liked the post.
func (s *GormStore) HasLiked(ctx context.Context, accountID, postID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&LikeModel{}).
		Where("account_id = ? AND post_id = ?", accountID, postID).
		Count(&count).Error
	return count > 0, err
}

// CountLikesByPost runs one grouped count query over the given ids.
func (s *GormStore) CountLikesByPost(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	if len(postIDs) == 0 {
		return map[int64]int{}, nil
	}
	var rows []struct {
		PostID int64
		Cnt    int
	}
	err := s.db.WithContext(ctx).Model(&LikeModel{}).
		Select("post_id, COUNT(*) AS cnt").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.Cnt
	}
	return counts, nil
}

// LikedPosts returns which of the given posts the account has liked.
func (s *GormStore) LikedPosts(ctx context.Context, accountID int64, postIDs []int64) (map[int64]struct{}, error) {
	if len(postIDs) == 0 {
		return map[int64]struct{}{}, nil
	}
	var ids []int64
	err := s.db.WithContext(ctx).Model(&LikeModel{}).
		Where("account_id = ? AND post_id IN ?", accountID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	liked := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		liked[id] = struct{}{}
	}
	return liked, nil
}

func rowsToPosts(rows []postRow) []domain.Post {
	res := make([]domain.Post, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toDomain())
	}
	return res
}

func accountFromModel(m AccountModel) domain.Account {
	return domain.Account{
		ID:           m.ID,
		DisplayName:  m.DisplayName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
	}
}
