// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/store"
)

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// CreateUserInput はユーザー登録の入力。
type CreateUserInput struct {
	Name        string
	DisplayName string
	Password    string
	Description string
	IsAdmin     bool
}

// UpdateUserInput はユーザー更新の入力。
// Nameは変更できず、空の場合は未指定として扱う。
type UpdateUserInput struct {
	ID          string
	Name        string
	DisplayName *string
}

// Service はユーザー管理のサービス層。
type Service struct {
	store  store.Transactor
	hasher PasswordHasher
	now    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(st store.Transactor, hasher PasswordHasher) *Service {
	return &Service{
		store:  st,
		hasher: hasher,
		now:    time.Now,
	}
}

// CreateUser はユーザーを登録し、採番したIDを返す。認証は不要。
// 管理者は1名のみ登録できる。
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (string, error) {
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	var id string
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		users, err := tx.Users()
		if err != nil {
			return err
		}

		ids := make(map[string]bool, len(users))
		for _, u := range users {
			if u.Name == in.Name {
				return model.NewUsernameExistsError(in.Name)
			}
			if in.IsAdmin && u.IsAdmin {
				return model.NewAdminExistsError()
			}
			ids[u.ID] = true
		}

		id = store.NewID(store.UserIDPrefix, func(c string) bool { return ids[c] })
		users = append(users, model.User{
			ID:           id,
			Name:         in.Name,
			DisplayName:  in.DisplayName,
			Description:  in.Description,
			IsAdmin:      in.IsAdmin,
			Password:     hashed,
			CreationTime: s.now().UTC().Format(time.RFC3339),
		})
		return tx.PutUsers(users)
	}, store.Users)
	if err != nil {
		return "", err
	}

	slog.Info("user created",
		slog.String("user_id", id),
		slog.Bool("is_admin", in.IsAdmin),
	)
	return id, nil
}

// ListUsers は全ユーザーを返す。管理者のみ。
func (s *Service) ListUsers(ctx context.Context, actor policy.Actor) ([]model.UserView, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var views []model.UserView
	err := s.store.View(ctx, func(tx *store.Tx) error {
		users, err := tx.Users()
		if err != nil {
			return err
		}
		views = make([]model.UserView, 0, len(users))
		for _, u := range users {
			views = append(views, u.Public())
		}
		return nil
	}, store.Users)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// DescribeUser はユーザー情報を返す。管理者または本人のみ。
func (s *Service) DescribeUser(ctx context.Context, actor policy.Actor, userID string) (*model.UserView, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	var view *model.UserView
	err := s.store.View(ctx, func(tx *store.Tx) error {
		users, err := tx.Users()
		if err != nil {
			return err
		}
		u := findUser(users, userID)
		if u == nil {
			return model.NewUserNotFoundError(userID)
		}
		if err := policy.RequireSelfOrAdmin(actor, userID); err != nil {
			return err
		}
		v := u.Public()
		view = &v
		return nil
	}, store.Users)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateUser は表示名を更新する。管理者または本人のみ。
func (s *Service) UpdateUser(ctx context.Context, actor policy.Actor, in UpdateUserInput) error {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return err
	}

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		users, err := tx.Users()
		if err != nil {
			return err
		}
		u := findUser(users, in.ID)
		if u == nil {
			return model.NewUserNotFoundError(in.ID)
		}
		if err := policy.RequireSelfOrAdmin(actor, in.ID); err != nil {
			return err
		}
		if in.Name != "" && in.Name != u.Name {
			return model.NewUsernameImmutableError()
		}
		if in.DisplayName == nil {
			return nil
		}
		u.DisplayName = *in.DisplayName
		return tx.PutUsers(users)
	}, store.Users)
	if err != nil {
		return err
	}

	slog.Info("user updated",
		slog.String("user_id", in.ID),
		slog.String("actor", actor.UserID),
	)
	return nil
}

// ListUserTeams はユーザーが所属するチームの一覧を返す。管理者または本人のみ。
func (s *Service) ListUserTeams(ctx context.Context, actor policy.Actor, userID string) ([]model.TeamSummary, error) {
	if err := policy.RequireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}

	var summaries []model.TeamSummary
	err := s.store.View(ctx, func(tx *store.Tx) error {
		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		summaries = []model.TeamSummary{}
		for _, t := range teams {
			if t.HasMember(userID) {
				summaries = append(summaries, model.TeamSummary{ID: t.ID, Name: t.Name})
			}
		}
		return nil
	}, store.Teams)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// findUser はIDが一致するユーザーへのポインタを返す。
// 返り値を書き換えるとスライスの要素が更新される。
func findUser(users []model.User, id string) *model.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}
