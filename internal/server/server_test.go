package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"socialfeed/internal/app"
	"socialfeed/internal/store"
	"socialfeed/internal/usertoken"
	"socialfeed/pkg/domain"
)

type testEnv struct {
	ts    *httptest.Server
	store *store.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	redis := miniredis.RunT(t)
	tokens, err := usertoken.New(usertoken.Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	memStore := store.NewMemoryStore()
	appCore, err := app.New(app.Config{Store: memStore, Tokens: tokens})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	srv, err := New(Config{
		App:                      appCore,
		Tokens:                   tokens,
		RedisAddr:                redis.Addr(),
		SignupRateLimitPerMinute: 100,
		LoginRateLimitPerMinute:  100,
		AllowedOrigins:           []string{"*"},
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, store: memStore}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// signup registers an account and logs it in, returning the account and token.
func (e *testEnv) signup(t *testing.T, name, email string) (domain.Account, string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/account", "", map[string]string{
		"display_name": name,
		"email":        email,
		"password":     "s3cret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	account := decodeBody[domain.Account](t, resp)

	resp = e.do(t, http.MethodPost, "/account/login", "", map[string]string{
		"email":    email,
		"password": "s3cret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	login := decodeBody[struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}](t, resp)
	if login.TokenType != "bearer" || login.AccessToken == "" {
		t.Fatalf("unexpected login response: %+v", login)
	}
	return account, login.AccessToken
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	account, token := env.signup(t, "alice", "alice@example.com")
	if account.ID == 0 || account.Email != "alice@example.com" {
		t.Fatalf("unexpected account: %+v", account)
	}

	resp := env.do(t, http.MethodGet, "/account/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get me: status %d", resp.StatusCode)
	}
	me := decodeBody[domain.Account](t, resp)
	if me.ID != account.ID {
		t.Fatalf("me.ID = %d, want %d", me.ID, account.ID)
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "alice@example.com")
	resp := env.do(t, http.MethodPost, "/account", "", map[string]string{
		"display_name": "other",
		"email":        "alice@example.com",
		"password":     "pw",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/account/9999", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	envelope := decodeBody[errorEnvelope](t, resp)
	if envelope.Error.Code != http.StatusNotFound {
		t.Fatalf("envelope code = %d, want 404", envelope.Error.Code)
	}
	if envelope.Error.Path != "/account/9999" {
		t.Fatalf("envelope path = %q", envelope.Error.Path)
	}
	if envelope.Error.Message == "" {
		t.Fatalf("envelope message must not be empty")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "alice@example.com")
	resp := env.do(t, http.MethodPost, "/account/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/account/me"},
		{http.MethodPost, "/post"},
		{http.MethodGet, "/post/feed"},
		{http.MethodPost, "/social-graph"},
		{http.MethodGet, "/like/batch"},
	}
	for _, p := range paths {
		resp := env.do(t, p.method, p.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: status %d, want 401", p.method, p.path, resp.StatusCode)
		}
	}

	resp := env.do(t, http.MethodGet, "/account/me", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", resp.StatusCode)
	}
}

func TestCreatePostValidationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup(t, "alice", "alice@example.com")
	resp := env.do(t, http.MethodPost, "/post", token, map[string]string{"body": "   "})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	envelope := decodeBody[errorEnvelope](t, resp)
	details, ok := envelope.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected field details in the envelope, got %T", envelope.Error.Details)
	}
	if _, ok := details["body"]; !ok {
		t.Fatalf("expected a body field error, got %v", details)
	}
}

func TestFeedOrderingOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, viewerToken := env.signup(t, "viewer", "viewer@example.com")
	b, bToken := env.signup(t, "b", "b@example.com")
	_, cToken := env.signup(t, "c", "c@example.com")

	post := func(token, body string) domain.Post {
		resp := env.do(t, http.MethodPost, "/post", token, map[string]string{"body": body})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create post: status %d", resp.StatusCode)
		}
		return decodeBody[domain.Post](t, resp)
	}
	pb1 := post(bToken, "b first")
	pc := post(cToken, "c post")
	pb2 := post(bToken, "b second")

	resp := env.do(t, http.MethodPost, "/social-graph", viewerToken, map[string]int64{"followee_id": b.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("follow: status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/post/feed", viewerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feed: status %d", resp.StatusCode)
	}
	feed := decodeBody[[]domain.Post](t, resp)
	want := []int64{pb2.ID, pb1.ID, pc.ID}
	if len(feed) != len(want) {
		t.Fatalf("feed has %d posts, want %d", len(feed), len(want))
	}
	for i, id := range want {
		if feed[i].ID != id {
			t.Fatalf("feed[%d].ID = %d, want %d", i, feed[i].ID, id)
		}
	}
}

func TestLikeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signup(t, "alice", "alice@example.com")
	_, bobToken := env.signup(t, "bob", "bob@example.com")

	resp := env.do(t, http.MethodPost, "/post", aliceToken, map[string]string{"body": "hello"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post: status %d", resp.StatusCode)
	}
	post := decodeBody[domain.Post](t, resp)
	likePath := fmt.Sprintf("/like/%d", post.ID)

	// Repeated likes stay idempotent.
	for i := 0; i < 2; i++ {
		resp = env.do(t, http.MethodPost, likePath, bobToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("like: status %d", resp.StatusCode)
		}
	}

	resp = env.do(t, http.MethodGet, likePath, bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: status %d", resp.StatusCode)
	}
	summary := decodeBody[domain.LikeSummary](t, resp)
	if summary.Count != 1 || !summary.LikedByMe {
		t.Fatalf("summary = %+v, want count 1 liked", summary)
	}

	// The same summary from alice's perspective is not liked.
	resp = env.do(t, http.MethodGet, likePath, aliceToken, nil)
	summary = decodeBody[domain.LikeSummary](t, resp)
	if summary.Count != 1 || summary.LikedByMe {
		t.Fatalf("summary = %+v, want count 1 not liked", summary)
	}

	resp = env.do(t, http.MethodDelete, likePath, bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unlike: status %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, likePath, bobToken, nil)
	summary = decodeBody[domain.LikeSummary](t, resp)
	if summary.Count != 0 || summary.LikedByMe {
		t.Fatalf("summary after unlike = %+v", summary)
	}

	// Liking a missing post is a 404.
	resp = env.do(t, http.MethodPost, "/like/99999", bobToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("like missing post: status %d, want 404", resp.StatusCode)
	}
}

func TestBatchLikeSummaryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signup(t, "alice", "alice@example.com")
	_, bobToken := env.signup(t, "bob", "bob@example.com")

	resp := env.do(t, http.MethodPost, "/post", aliceToken, map[string]string{"body": "one"})
	p1 := decodeBody[domain.Post](t, resp)
	resp = env.do(t, http.MethodPost, "/post", aliceToken, map[string]string{"body": "two"})
	p2 := decodeBody[domain.Post](t, resp)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/like/%d", p1.ID), bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("like: status %d", resp.StatusCode)
	}

	path := fmt.Sprintf("/like/batch?post_ids=%d,%d", p1.ID, p2.ID)
	resp = env.do(t, http.MethodGet, path, bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("batch summary: status %d", resp.StatusCode)
	}
	summaries := decodeBody[map[int64]domain.LikeSummary](t, resp)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if s := summaries[p1.ID]; s.Count != 1 || !s.LikedByMe {
		t.Fatalf("p1 summary = %+v", s)
	}
	if s := summaries[p2.ID]; s.Count != 0 || s.LikedByMe {
		t.Fatalf("p2 summary = %+v", s)
	}

	resp = env.do(t, http.MethodGet, "/like/batch?post_ids=abc", bobToken, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("malformed post_ids: status %d, want 422", resp.StatusCode)
	}
}

func TestDeletePostForbiddenForNonAuthor(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signup(t, "alice", "alice@example.com")
	_, bobToken := env.signup(t, "bob", "bob@example.com")

	resp := env.do(t, http.MethodPost, "/post", aliceToken, map[string]string{"body": "mine"})
	post := decodeBody[domain.Post](t, resp)
	path := fmt.Sprintf("/post/%d", post.ID)

	resp = env.do(t, http.MethodDelete, path, bobToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-author delete: status %d, want 403", resp.StatusCode)
	}
	resp = env.do(t, http.MethodDelete, path, aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("author delete: status %d", resp.StatusCode)
	}
}

func TestUnfollowIsIdempotentOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signup(t, "alice", "alice@example.com")
	bob, _ := env.signup(t, "bob", "bob@example.com")

	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodDelete, "/social-graph", aliceToken, map[string]int64{"followee_id": bob.ID})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unfollow: status %d", resp.StatusCode)
		}
	}
}

func TestFollowUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup(t, "alice", "alice@example.com")
	resp := env.do(t, http.MethodPost, "/social-graph", token, map[string]int64{"followee_id": 9999})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPaginationValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup(t, "alice", "alice@example.com")

	for _, query := range []string{"limit=0", "limit=201", "limit=abc", "offset=-1"} {
		resp := env.do(t, http.MethodGet, "/post?"+query, token, nil)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status %d, want 422", query, resp.StatusCode)
		}
	}
	resp := env.do(t, http.MethodGet, "/post?limit=200&offset=0", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("limit=200: status %d", resp.StatusCode)
	}
}

func TestAccountStatsAndPosts(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.signup(t, "alice", "alice@example.com")
	_, bobToken := env.signup(t, "bob", "bob@example.com")

	resp := env.do(t, http.MethodPost, "/post", aliceToken, map[string]string{"body": "hello"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post: status %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, "/social-graph", bobToken, map[string]int64{"followee_id": alice.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("follow: status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/account/%d/stats", alice.ID), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: status %d", resp.StatusCode)
	}
	stats := decodeBody[domain.ProfileStats](t, resp)
	if stats.Posts != 1 || stats.Followers != 1 || stats.Following != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/account/%d/posts", alice.ID), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("account posts: status %d", resp.StatusCode)
	}
	posts := decodeBody[[]domain.Post](t, resp)
	if len(posts) != 1 || posts[0].Author.ID != alice.ID {
		t.Fatalf("posts = %+v", posts)
	}
}

func TestDeleteMeCascades(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.signup(t, "alice", "alice@example.com")
	_, bobToken := env.signup(t, "bob", "bob@example.com")

	resp := env.do(t, http.MethodPost, "/post", aliceToken, map[string]string{"body": "mine"})
	post := decodeBody[domain.Post](t, resp)
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/like/%d", post.ID), bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("like: status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/account/me", aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete me: status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/account/%d", alice.ID), "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted account lookup: status %d, want 404", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/like/%d", post.ID), bobToken, nil)
	summary := decodeBody[domain.LikeSummary](t, resp)
	if summary.Count != 0 {
		t.Fatalf("likes should vanish with the account's posts, got %+v", summary)
	}
}

func TestStaleTokenAfterAccountDeleted(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signup(t, "alice", "alice@example.com")
	_, bobToken := env.signup(t, "bob", "bob@example.com")

	resp := env.do(t, http.MethodPost, "/post", bobToken, map[string]string{"body": "hello"})
	post := decodeBody[domain.Post](t, resp)

	resp = env.do(t, http.MethodDelete, "/account/me", aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete me: status %d", resp.StatusCode)
	}

	// The token is still within its TTL but the account is gone.
	resp = env.do(t, http.MethodDelete, "/account/me", aliceToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, "/post", aliceToken, map[string]string{"body": "ghost"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("post with stale token: status %d, want 404", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/like/%d", post.ID), aliceToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("like with stale token: status %d, want 404", resp.StatusCode)
	}
}

func TestSignupRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	tokens, err := usertoken.New(usertoken.Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	appCore, err := app.New(app.Config{Store: store.NewMemoryStore(), Tokens: tokens})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	srv, err := New(Config{
		App:                      appCore,
		Tokens:                   tokens,
		RedisAddr:                redis.Addr(),
		SignupRateLimitPerMinute: 2,
		LoginRateLimitPerMinute:  2,
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	env := &testEnv{ts: ts}

	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodPost, "/account", "", map[string]string{
			"display_name": "u",
			"email":        fmt.Sprintf("u%d@example.com", i),
			"password":     "pw",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("register %d: status %d", i, resp.StatusCode)
		}
	}
	resp := env.do(t, http.MethodPost, "/account", "", map[string]string{
		"display_name": "u",
		"email":        "u3@example.com",
		"password":     "pw",
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exhausting the window, got %d", resp.StatusCode)
	}
}
