// Package auth はパスワード認証とトークンによるセッション管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/store"
)

// LoginObserver はログイン結果を受け取る。
type LoginObserver interface {
	RecordLogin(success bool)
}

// LoginResult はログイン成功時の応答。
type LoginResult struct {
	Token   string `json:"token"`
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	store    store.Transactor
	hasher   PasswordHasher
	observer LoginObserver
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(st store.Transactor, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = SHA256Hasher{}
	}
	return &Service{
		store:  st,
		hasher: hasher,
		now:    time.Now,
	}
}

// SetObserver はログイン結果の送り先を設定する。
func (s *Service) SetObserver(o LoginObserver) {
	s.observer = o
}

// Login は名前とパスワードで認証し、新しいトークンを発行する。
// 同じユーザーの既存トークンはすべて失効する。
func (s *Service) Login(ctx context.Context, name, password string) (*LoginResult, error) {
	var result *LoginResult
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		users, err := tx.Users()
		if err != nil {
			return err
		}

		var matched *model.User
		for i := range users {
			if users[i].Name == name && s.hasher.Verify(users[i].Password, password) {
				matched = &users[i]
				break
			}
		}
		if matched == nil {
			return model.NewInvalidCredentialsError()
		}

		tokens, err := tx.Tokens()
		if err != nil {
			return err
		}
		kept := tokens[:0]
		for _, t := range tokens {
			if t.UserID != matched.ID {
				kept = append(kept, t)
			}
		}

		token := MintToken(matched.ID)
		kept = append(kept, model.Token{
			UserID:    matched.ID,
			Token:     token,
			CreatedAt: s.now().UTC().Format(time.RFC3339),
		})
		if err := tx.PutTokens(kept); err != nil {
			return err
		}

		result = &LoginResult{Token: token, UserID: matched.ID, IsAdmin: matched.IsAdmin}
		return nil
	}, store.Users, store.Tokens)

	if s.observer != nil {
		s.observer.RecordLogin(err == nil)
	}
	if err != nil {
		if model.CodeOf(err) == model.ErrCodeInvalidCredentials {
			slog.Info("login failed", slog.String("name", name))
			return nil, err
		}
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", result.UserID))
	return result, nil
}

// Resolve はトークンに対応するユーザーを返す。
// トークンまたはユーザーが存在しない場合は (nil, nil) を返す。
func (s *Service) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	var user *model.User
	err := s.store.View(ctx, func(tx *store.Tx) error {
		tokens, err := tx.Tokens()
		if err != nil {
			return err
		}
		userID := ""
		for _, t := range tokens {
			if t.Token == token {
				userID = t.UserID
				break
			}
		}
		if userID == "" {
			return nil
		}

		users, err := tx.Users()
		if err != nil {
			return err
		}
		for i := range users {
			if users[i].ID == userID {
				u := users[i]
				user = &u
				return nil
			}
		}
		return nil
	}, store.Tokens, store.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}
	return user, nil
}

// Logout はトークンを失効させる。存在しないトークンの場合は何もしない。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return model.NewUnauthorizedError()
	}

	removed := ""
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		tokens, err := tx.Tokens()
		if err != nil {
			return err
		}
		kept := tokens[:0]
		for _, t := range tokens {
			if t.Token == token {
				removed = t.UserID
				continue
			}
			kept = append(kept, t)
		}
		if removed == "" {
			return nil
		}
		return tx.PutTokens(kept)
	}, store.Tokens)
	if err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	if removed != "" {
		slog.Info("user logged out", slog.String("user_id", removed))
	}
	return nil
}
