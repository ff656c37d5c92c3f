// Package team はチームとメンバーシップ管理のドメインロジックを提供する。
package team

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/store"
)

// CreateTeamInput はチーム作成の入力。
type CreateTeamInput struct {
	Name        string
	Description string
	Admin       string
}

// UpdateTeamInput はチーム更新の入力。
type UpdateTeamInput struct {
	Name        string
	Description string
	Admin       string
}

// Service はチーム管理のサービス層。
type Service struct {
	store store.Transactor
	now   func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(st store.Transactor) *Service {
	return &Service{store: st, now: time.Now}
}

// CreateTeam はチームを作成し、採番したIDを返す。管理者のみ。
// 指定された管理者が最初のメンバーになる。
func (s *Service) CreateTeam(ctx context.Context, actor policy.Actor, in CreateTeamInput) (string, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return "", err
	}

	var id string
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		users, err := tx.Users()
		if err != nil {
			return err
		}

		ids := make(map[string]bool, len(teams))
		for _, t := range teams {
			if t.Name == in.Name {
				return model.NewTeamNameExistsError(in.Name)
			}
			ids[t.ID] = true
		}
		if !userExists(users, in.Admin) {
			return model.NewAdminNotFoundError(in.Admin)
		}

		id = store.NewID(store.TeamIDPrefix, func(c string) bool { return ids[c] })
		teams = append(teams, model.Team{
			ID:           id,
			Name:         in.Name,
			Description:  in.Description,
			CreationTime: s.now().UTC().Format(time.RFC3339),
			Admin:        in.Admin,
			CreatedBy:    in.Admin,
			Members:      []string{in.Admin},
		})
		return tx.PutTeams(teams)
	}, store.Teams, store.Users)
	if err != nil {
		return "", err
	}

	slog.Info("team created",
		slog.String("team_id", id),
		slog.String("admin", in.Admin),
	)
	return id, nil
}

// ListTeams は全チームを返す。管理者のみ。
func (s *Service) ListTeams(ctx context.Context, actor policy.Actor) ([]model.Team, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var teams []model.Team
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		teams, err = tx.Teams()
		return err
	}, store.Teams)
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// AddMembers はユーザーをチームに追加する。管理者のみ。
// 既存メンバーの順序を保ったまま未所属のユーザーを末尾に追加するため、何度呼んでも結果は同じ。
func (s *Service) AddMembers(ctx context.Context, actor policy.Actor, teamID string, userIDs []string) error {
	if err := policy.RequireAdmin(actor); err != nil {
		return err
	}

	added := 0
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		users, err := tx.Users()
		if err != nil {
			return err
		}

		t := findTeam(teams, teamID)
		if t == nil {
			return model.NewTeamNotFoundError(teamID)
		}
		for _, uid := range userIDs {
			if !userExists(users, uid) {
				return model.NewUserNotFoundError(uid)
			}
		}

		for _, uid := range userIDs {
			if !t.HasMember(uid) {
				t.Members = append(t.Members, uid)
				added++
			}
		}
		if added == 0 {
			return nil
		}
		return tx.PutTeams(teams)
	}, store.Teams, store.Users)
	if err != nil {
		return err
	}

	slog.Info("team members added",
		slog.String("team_id", teamID),
		slog.Int("added", added),
	)
	return nil
}

// RemoveMembers はユーザーをチームから外す。管理者のみ。
// 1件でも不正なIDがあれば何も変更しない。
func (s *Service) RemoveMembers(ctx context.Context, actor policy.Actor, teamID string, userIDs []string) error {
	if err := policy.RequireAdmin(actor); err != nil {
		return err
	}

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		users, err := tx.Users()
		if err != nil {
			return err
		}

		t := findTeam(teams, teamID)
		if t == nil {
			return model.NewTeamNotFoundError(teamID)
		}
		remove := make(map[string]bool, len(userIDs))
		for _, uid := range userIDs {
			if !userExists(users, uid) {
				return model.NewUserNotFoundError(uid)
			}
			if !t.HasMember(uid) {
				return model.NewNotAMemberError(uid)
			}
			remove[uid] = true
		}

		kept := make([]string, 0, len(t.Members))
		for _, m := range t.Members {
			if !remove[m] {
				kept = append(kept, m)
			}
		}
		t.Members = kept
		return tx.PutTeams(teams)
	}, store.Teams, store.Users)
	if err != nil {
		return err
	}

	slog.Info("team members removed",
		slog.String("team_id", teamID),
		slog.Int("removed", len(userIDs)),
	)
	return nil
}

// ListMembers はチームメンバーの一覧を返す。管理者またはメンバーのみ。
func (s *Service) ListMembers(ctx context.Context, actor policy.Actor, teamID string) ([]model.TeamMember, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	var members []model.TeamMember
	err := s.store.View(ctx, func(tx *store.Tx) error {
		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		t := findTeam(teams, teamID)
		if t == nil {
			return model.NewTeamNotFoundError(teamID)
		}
		if err := policy.RequireTeamViewer(actor, t.Members); err != nil {
			return err
		}

		users, err := tx.Users()
		if err != nil {
			return err
		}
		members = []model.TeamMember{}
		for _, u := range users {
			if t.HasMember(u.ID) {
				members = append(members, model.TeamMember{
					UserID:      u.ID,
					Name:        u.Name,
					DisplayName: u.DisplayName,
				})
			}
		}
		return nil
	}, store.Teams, store.Users)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// DescribeTeam はチームの全情報を返す。管理者またはメンバーのみ。
func (s *Service) DescribeTeam(ctx context.Context, actor policy.Actor, teamID string) (*model.Team, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	var team *model.Team
	err := s.store.View(ctx, func(tx *store.Tx) error {
		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		t := findTeam(teams, teamID)
		if t == nil {
			return model.NewTeamNotFoundError(teamID)
		}
		if err := policy.RequireTeamViewer(actor, t.Members); err != nil {
			return err
		}
		team = t
		return nil
	}, store.Teams)
	if err != nil {
		return nil, err
	}
	return team, nil
}

// UpdateTeam はチーム名・説明・管理者を更新する。管理者のみ。
// 新しい管理者がメンバーかどうかは検証せず、メンバーにも追加しない。
func (s *Service) UpdateTeam(ctx context.Context, actor policy.Actor, teamID string, in UpdateTeamInput) error {
	if err := policy.RequireAdmin(actor); err != nil {
		return err
	}

	adminIsMember := true
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		users, err := tx.Users()
		if err != nil {
			return err
		}

		t := findTeam(teams, teamID)
		if t == nil {
			return model.NewTeamNotFoundError(teamID)
		}
		for _, other := range teams {
			if other.ID != teamID && other.Name == in.Name {
				return model.NewTeamNameExistsError(in.Name)
			}
		}
		if !userExists(users, in.Admin) {
			return model.NewAdminNotFoundError(in.Admin)
		}

		t.Name = in.Name
		t.Description = in.Description
		t.Admin = in.Admin
		adminIsMember = t.HasMember(in.Admin)
		return tx.PutTeams(teams)
	}, store.Teams, store.Users)
	if err != nil {
		return err
	}

	if !adminIsMember {
		slog.Warn("team admin is not a member of the team",
			slog.String("team_id", teamID),
			slog.String("admin", in.Admin),
		)
	}
	slog.Info("team updated", slog.String("team_id", teamID))
	return nil
}

func findTeam(teams []model.Team, id string) *model.Team {
	for i := range teams {
		if teams[i].ID == id {
			return &teams[i]
		}
	}
	return nil
}

func userExists(users []model.User, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}
