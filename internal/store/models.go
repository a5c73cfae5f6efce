package store

import "time"

// GORM models used for persistence. The models own the schema; auto-migration
// creates the tables, indexes, uniqueness constraints, and foreign keys.

type AccountModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	DisplayName  string `gorm:"size:100;not null"`
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:200;not null"`
}

func (AccountModel) TableName() string { return "accounts" }

type PostModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Body      string    `gorm:"size:280;not null"`
	AuthorID  int64     `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`

	Author AccountModel `gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:RESTRICT"`
}

func (PostModel) TableName() string { return "posts" }

// FollowModel has a composite primary key so re-issuing the same follow can
// never create a duplicate edge. Both endpoints must reference live accounts.
type FollowModel struct {
	FollowerID int64 `gorm:"primaryKey;autoIncrement:false"`
	FolloweeID int64 `gorm:"primaryKey;autoIncrement:false"`

	Follower AccountModel `gorm:"foreignKey:FollowerID;references:ID;constraint:OnDelete:RESTRICT"`
	Followee AccountModel `gorm:"foreignKey:FolloweeID;references:ID;constraint:OnDelete:RESTRICT"`
}

func (FollowModel) TableName() string { return "follows" }

// LikeModel's (account_id, post_id) pair is the primary key itself; an account
// can like a given post at most once.
type LikeModel struct {
	AccountID int64 `gorm:"primaryKey;autoIncrement:false"`
	PostID    int64 `gorm:"primaryKey;autoIncrement:false;index"`

	Account AccountModel `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
	Post    PostModel    `gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE"`
}

func (LikeModel) TableName() string { return "likes" }
