package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"socialfeed/pkg/domain"
)

type likeKey struct {
	accountID int64
	postID    int64
}

type memoryPost struct {
	id        int64
	body      string
	authorID  int64
	createdAt time.Time
}

// MemoryStore keeps everything in-process. It mirrors the GormStore semantics
// (idempotent like/follow, transactional cascade, feed ordering) and backs
// handler and app tests.
type MemoryStore struct {
	mu            sync.RWMutex
	nextAccountID int64
	nextPostID    int64
	accounts      map[int64]domain.Account
	emails        map[string]int64
	posts         map[int64]memoryPost
	follows       map[int64]map[int64]struct{} // follower -> set of followees
	likes         map[likeKey]struct{}
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]domain.Account),
		emails:   make(map[string]int64),
		posts:    make(map[int64]memoryPost),
		follows:  make(map[int64]map[int64]struct{}),
		likes:    make(map[likeKey]struct{}),
	}
}

func (m *MemoryStore) CreateAccount(_ context.Context, displayName, email, passwordHash string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.emails[email]; exists {
		return domain.Account{}, ErrDuplicateEmail
	}
	m.nextAccountID++
	account := domain.Account{
		ID:           m.nextAccountID,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: passwordHash,
	}
	m.accounts[account.ID] = account
	m.emails[email] = account.ID
	return account, nil
}

func (m *MemoryStore) GetAccountByID(_ context.Context, id int64) (domain.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	return account, ok, nil
}

func (m *MemoryStore) GetAccountByEmail(_ context.Context, email string) (domain.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return domain.Account{}, false, nil
	}
	return m.accounts[id], true, nil
}

func (m *MemoryStore) ListAccounts(_ context.Context, limit, offset int, sortKey string) ([]domain.Account, error) {
	m.mu.RLock()
	accounts := make([]domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	m.mu.RUnlock()
	sort.Slice(accounts, func(i, j int) bool {
		switch sortKey {
		case "-name":
			return accounts[i].DisplayName > accounts[j].DisplayName
		case "id":
			return accounts[i].ID < accounts[j].ID
		case "-id":
			return accounts[i].ID > accounts[j].ID
		default:
			return accounts[i].DisplayName < accounts[j].DisplayName
		}
	})
	return paginate(accounts, limit, offset), nil
}

func (m *MemoryStore) UpdateAccount(_ context.Context, id int64, upd domain.AccountUpdate) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return domain.Account{}, ErrNotFound
	}
	if upd.Email != nil && *upd.Email != account.Email {
		if _, taken := m.emails[*upd.Email]; taken {
			return domain.Account{}, ErrDuplicateEmail
		}
		delete(m.emails, account.Email)
		account.Email = *upd.Email
		m.emails[account.Email] = id
	}
	if upd.DisplayName != nil {
		account.DisplayName = *upd.DisplayName
	}
	if upd.PasswordHash != nil {
		account.PasswordHash = *upd.PasswordHash
	}
	m.accounts[id] = account
	return account, nil
}

func (m *MemoryStore) DeleteAccount(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	for postID, p := range m.posts {
		if p.authorID != id {
			continue
		}
		for key := range m.likes {
			if key.postID == postID {
				delete(m.likes, key)
			}
		}
		delete(m.posts, postID)
	}
	for key := range m.likes {
		if key.accountID == id {
			delete(m.likes, key)
		}
	}
	delete(m.follows, id)
	for _, followees := range m.follows {
		delete(followees, id)
	}
	delete(m.emails, account.Email)
	delete(m.accounts, id)
	return nil
}

func (m *MemoryStore) Follow(_ context.Context, followerID, followeeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[followerID]; !exists {
		return ErrNotFound
	}
	if _, exists := m.accounts[followeeID]; !exists {
		return ErrNotFound
	}
	set, ok := m.follows[followerID]
	if !ok {
		set = make(map[int64]struct{})
		m.follows[followerID] = set
	}
	set[followeeID] = struct{}{}
	return nil
}

func (m *MemoryStore) Unfollow(_ context.Context, followerID, followeeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.follows[followerID], followeeID)
	return nil
}

func (m *MemoryStore) ListFollowees(_ context.Context, followerID int64) ([]domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Account, 0, len(m.follows[followerID]))
	for followeeID := range m.follows[followerID] {
		if account, ok := m.accounts[followeeID]; ok {
			res = append(res, account)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *MemoryStore) CountFollowers(_ context.Context, accountID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, followees := range m.follows {
		if _, ok := followees[accountID]; ok {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountFollowing(_ context.Context, accountID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.follows[accountID]), nil
}

func (m *MemoryStore) CreatePost(_ context.Context, authorID int64, body string, createdAt time.Time) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[authorID]; !exists {
		return domain.Post{}, ErrNotFound
	}
	m.nextPostID++
	post := memoryPost{
		id:        m.nextPostID,
		body:      body,
		authorID:  authorID,
		createdAt: createdAt,
	}
	m.posts[post.id] = post
	return m.toDomainPost(post), nil
}

func (m *MemoryStore) GetPost(_ context.Context, id int64) (domain.Post, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	post, ok := m.posts[id]
	if !ok {
		return domain.Post{}, false, nil
	}
	return m.toDomainPost(post), true, nil
}

func (m *MemoryStore) ListPosts(_ context.Context, limit, offset int, dir domain.SortDirection) ([]domain.Post, error) {
	m.mu.RLock()
	posts := m.allPosts()
	m.mu.RUnlock()
	sort.Slice(posts, func(i, j int) bool {
		if dir == domain.SortAscending {
			return lessPostAsc(posts[i], posts[j])
		}
		return lessPostDesc(posts[i], posts[j])
	})
	return paginate(posts, limit, offset), nil
}

func (m *MemoryStore) ListPostsByAuthor(_ context.Context, authorID int64, limit, offset int) ([]domain.Post, error) {
	m.mu.RLock()
	posts := make([]domain.Post, 0)
	for _, p := range m.posts {
		if p.authorID == authorID {
			posts = append(posts, m.toDomainPost(p))
		}
	}
	m.mu.RUnlock()
	sort.Slice(posts, func(i, j int) bool { return lessPostDesc(posts[i], posts[j]) })
	return paginate(posts, limit, offset), nil
}

func (m *MemoryStore) CountPostsByAuthor(_ context.Context, authorID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, p := range m.posts {
		if p.authorID == authorID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.likes {
		if key.postID == id {
			delete(m.likes, key)
		}
	}
	delete(m.posts, id)
	return nil
}

func (m *MemoryStore) Feed(_ context.Context, viewerID int64, limit, offset int) ([]domain.Post, error) {
	m.mu.RLock()
	followees := m.follows[viewerID]
	type ranked struct {
		post     domain.Post
		priority int
	}
	posts := make([]ranked, 0, len(m.posts))
	for _, p := range m.posts {
		priority := 1
		if _, ok := followees[p.authorID]; ok {
			priority = 0
		}
		posts = append(posts, ranked{post: m.toDomainPost(p), priority: priority})
	}
	m.mu.RUnlock()
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].priority != posts[j].priority {
			return posts[i].priority < posts[j].priority
		}
		return lessPostDesc(posts[i].post, posts[j].post)
	})
	res := make([]domain.Post, 0, len(posts))
	for _, r := range posts {
		res = append(res, r.post)
	}
	return paginate(res, limit, offset), nil
}

func (m *MemoryStore) AddLike(_ context.Context, accountID, postID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[accountID]; !exists {
		return ErrNotFound
	}
	if _, exists := m.posts[postID]; !exists {
		return ErrNotFound
	}
	m.likes[likeKey{accountID: accountID, postID: postID}] = struct{}{}
	return nil
}

func (m *MemoryStore) RemoveLike(_ context.Context, accountID, postID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.likes, likeKey{accountID: accountID, postID: postID})
	return nil
}

func (m *MemoryStore) CountLikes(_ context.Context, postID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for key := range m.likes {
		if key.postID == postID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) HasLiked(_ context.Context, accountID, postID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.likes[likeKey{accountID: accountID, postID: postID}]
	return ok, nil
}

func (m *MemoryStore) CountLikesByPost(_ context.Context, postIDs []int64) (map[int64]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[int64]struct{}, len(postIDs))
	for _, id := range postIDs {
		wanted[id] = struct{}{}
	}
	counts := make(map[int64]int)
	for key := range m.likes {
		if _, ok := wanted[key.postID]; ok {
			counts[key.postID]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) LikedPosts(_ context.Context, accountID int64, postIDs []int64) (map[int64]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	liked := make(map[int64]struct{})
	for _, id := range postIDs {
		if _, ok := m.likes[likeKey{accountID: accountID, postID: id}]; ok {
			liked[id] = struct{}{}
		}
	}
	return liked, nil
}

// toDomainPost joins the post with its author. Callers must hold m.mu. The
// author is always present: CreatePost requires one and the account cascade
// removes its posts.
func (m *MemoryStore) toDomainPost(p memoryPost) domain.Post {
	author := m.accounts[p.authorID]
	return domain.Post{
		ID:        p.id,
		Body:      p.body,
		CreatedAt: p.createdAt,
		Author: domain.AccountRef{
			ID:          author.ID,
			DisplayName: author.DisplayName,
		},
	}
}

func (m *MemoryStore) allPosts() []domain.Post {
	posts := make([]domain.Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, m.toDomainPost(p))
	}
	return posts
}

func lessPostDesc(a, b domain.Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func lessPostAsc(a, b domain.Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
