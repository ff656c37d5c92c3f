package auth

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/store"
)

type loginCounter struct {
	mu      sync.Mutex
	success int
	failure int
}

func (c *loginCounter) RecordLogin(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.success++
	} else {
		c.failure++
	}
}

// newTestService はalice（一般）とroot（管理者）が登録されたServiceを生成する。
func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileBackend returned error: %v", err)
	}
	st := store.New(b)

	h := SHA256Hasher{}
	alicePass, _ := h.Hash("alice-pass")
	rootPass, _ := h.Hash("root-pass")
	users := []model.User{
		{ID: "u_alice", Name: "alice", DisplayName: "Alice", Password: alicePass},
		{ID: "u_root", Name: "root", DisplayName: "Root", Password: rootPass, IsAdmin: true},
	}
	if err := store.Save(context.Background(), st, store.Users, users); err != nil {
		t.Fatalf("failed to seed users: %v", err)
	}
	return NewService(st, h), st
}

func TestLogin_ValidCredentials_IssuesToken(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "root", "root-pass")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.UserID != "u_root" || !res.IsAdmin {
		t.Errorf("unexpected login result: %+v", res)
	}
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(res.Token) {
		t.Errorf("token = %q, want 64 hex characters", res.Token)
	}

	tokens, err := store.Load[model.Token](ctx, st, store.Tokens)
	if err != nil {
		t.Fatalf("Load tokens returned error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Token != res.Token || tokens[0].CreatedAt == "" {
		t.Errorf("unexpected tokens document: %+v", tokens)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	counter := &loginCounter{}
	svc.SetObserver(counter)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"パスワード誤り", "alice", "wrong-pass"},
		{"存在しないユーザー", "mallory", "alice-pass"},
	}
	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.username, tt.password)
			if model.CodeOf(err) != model.ErrCodeInvalidCredentials {
				t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
			}
			messages = append(messages, err.Error())
		})
	}

	if len(messages) == 2 && messages[0] != messages[1] {
		t.Errorf("failure messages should not reveal which field was wrong: %q vs %q", messages[0], messages[1])
	}
	if counter.failure != 2 || counter.success != 0 {
		t.Errorf("observer counts = success:%d failure:%d", counter.success, counter.failure)
	}
}

func TestLogin_Twice_KeepsSingleToken(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "alice", "alice-pass")
	if err != nil {
		t.Fatalf("first Login returned error: %v", err)
	}
	if _, err := svc.Login(ctx, "root", "root-pass"); err != nil {
		t.Fatalf("root Login returned error: %v", err)
	}
	second, err := svc.Login(ctx, "alice", "alice-pass")
	if err != nil {
		t.Fatalf("second Login returned error: %v", err)
	}
	if first.Token == second.Token {
		t.Fatal("expected a fresh token on second login")
	}

	tokens, _ := store.Load[model.Token](ctx, st, store.Tokens)
	count := 0
	for _, tok := range tokens {
		if tok.UserID == "u_alice" {
			count++
			if tok.Token != second.Token {
				t.Errorf("stale token kept for alice: %q", tok.Token)
			}
		}
	}
	if count != 1 {
		t.Errorf("alice has %d tokens, want exactly 1", count)
	}
	if len(tokens) != 2 {
		t.Errorf("expected tokens for two users, got %d", len(tokens))
	}

	old, err := svc.Resolve(ctx, first.Token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if old != nil {
		t.Errorf("revoked token still resolves to %q", old.ID)
	}
}

func TestResolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice", "alice-pass")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	u, err := svc.Resolve(ctx, res.Token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if u == nil || u.ID != "u_alice" {
		t.Fatalf("Resolve() = %+v, want alice", u)
	}

	for _, tok := range []string{"", "unknown-token"} {
		u, err := svc.Resolve(ctx, tok)
		if err != nil || u != nil {
			t.Errorf("Resolve(%q) = (%v, %v), want (nil, nil)", tok, u, err)
		}
	}
}

func TestResolve_TokenOfDeletedUser_ReturnsNil(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	orphan := []model.Token{{UserID: "u_gone", Token: "orphan"}}
	if err := store.Save(ctx, st, store.Tokens, orphan); err != nil {
		t.Fatalf("failed to seed tokens: %v", err)
	}

	u, err := svc.Resolve(ctx, "orphan")
	if err != nil || u != nil {
		t.Errorf("Resolve() = (%v, %v), want (nil, nil)", u, err)
	}
}

func TestLogout_RemovesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice", "alice-pass")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	u, _ := svc.Resolve(ctx, res.Token)
	if u != nil {
		t.Error("token still resolves after logout")
	}

	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Errorf("second Logout should be a no-op, got %v", err)
	}
	if err := svc.Logout(ctx, ""); model.CodeOf(err) != model.ErrCodeUnauthorized {
		t.Errorf("Logout with empty token: expected UNAUTHORIZED, got %v", err)
	}
}

func TestHashers(t *testing.T) {
	tests := []struct {
		name   string
		hasher PasswordHasher
	}{
		{"sha256", SHA256Hasher{}},
		{"bcrypt", BcryptHasher{Cost: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := tt.hasher.Hash("s3cret!")
			if err != nil {
				t.Fatalf("Hash returned error: %v", err)
			}
			if hash == "s3cret!" {
				t.Fatal("hash must not equal the plaintext")
			}
			if !tt.hasher.Verify(hash, "s3cret!") {
				t.Error("Verify rejected the correct password")
			}
			if tt.hasher.Verify(hash, "wrong") {
				t.Error("Verify accepted a wrong password")
			}
		})
	}
}

func TestSHA256Hasher_MatchesKnownDigest(t *testing.T) {
	got, _ := SHA256Hasher{}.Hash("password")
	want := "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if got != want {
		t.Errorf("Hash(password) = %q, want %q", got, want)
	}
}

func TestNewHasher(t *testing.T) {
	if _, err := NewHasher("sha256", 0); err != nil {
		t.Errorf("sha256: unexpected error %v", err)
	}
	h, err := NewHasher("bcrypt", 12)
	if err != nil {
		t.Fatalf("bcrypt: unexpected error %v", err)
	}
	if b, ok := h.(BcryptHasher); !ok || b.Cost != 12 {
		t.Errorf("NewHasher(bcrypt) = %#v", h)
	}
	if _, err := NewHasher("md5", 0); err == nil {
		t.Error("expected error for unknown hasher")
	}
}

func TestMintToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok := MintToken("u_alice")
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}
