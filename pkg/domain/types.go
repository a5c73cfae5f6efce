package domain

import "time"

// SortDirection orders post listings by creation time.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Account is a registered user. PasswordHash never leaves the process.
type Account struct {
	ID           int64  `json:"id"`
	DisplayName  string `json:"display_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// AccountRef is the author projection embedded in post responses.
type AccountRef struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// AccountUpdate carries a partial profile update. Nil fields are untouched.
type AccountUpdate struct {
	DisplayName  *string
	Email        *string
	PasswordHash *string
}

// Post is an immutable authored content item.
type Post struct {
	ID        int64      `json:"id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	Author    AccountRef `json:"author"`
}

// FollowEdge is a directed "follower follows followee" relationship.
type FollowEdge struct {
	FollowerID int64 `json:"follower_id"`
	FolloweeID int64 `json:"followee_id"`
}

// LikeSummary reports like aggregates for one post from a viewer's perspective.
type LikeSummary struct {
	PostID    int64 `json:"post_id"`
	Count     int   `json:"count"`
	LikedByMe bool  `json:"liked_by_me"`
}

// ProfileStats holds aggregate counters for an account's public profile.
type ProfileStats struct {
	Account   Account `json:"account"`
	Posts     int     `json:"posts"`
	Followers int     `json:"followers"`
	Following int     `json:"following"`
}
