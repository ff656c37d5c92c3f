// Package board はボードとタスクのライフサイクルを管理する。
package board

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/store"
)

// Observer はボードとタスクのイベントを受け取る。
type Observer interface {
	RecordBoardClosed()
	RecordTaskCreated()
	RecordClosedBoardRegression()
}

// CreateBoardInput はボード作成の入力。
// CreationTimeが空の場合は現在時刻を使う。
type CreateBoardInput struct {
	Name         string
	Description  string
	TeamID       string
	CreationTime string
}

// Service はボードとタスクのサービス層。
type Service struct {
	store     store.Transactor
	exportDir string
	observer  Observer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// exportDirはExportBoardの出力先ディレクトリ。
func NewService(st store.Transactor, exportDir string) *Service {
	return &Service{
		store:     st,
		exportDir: exportDir,
		now:       time.Now,
	}
}

// SetObserver はイベントの送り先を設定する。
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// CreateBoard はチームにボードを作成し、採番したIDを返す。管理者のみ。
// ボード名はチーム内で一意。
func (s *Service) CreateBoard(ctx context.Context, actor policy.Actor, in CreateBoardInput) (string, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return "", err
	}

	var id string
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		boards, err := tx.Boards()
		if err != nil {
			return err
		}
		teams, err := tx.Teams()
		if err != nil {
			return err
		}

		ids := make(map[string]bool, len(boards))
		for _, b := range boards {
			if b.TeamID == in.TeamID && b.Name == in.Name {
				return model.NewBoardNameExistsError(in.Name)
			}
			ids[b.ID] = true
		}
		if !teamExists(teams, in.TeamID) {
			return model.NewTeamNotFoundError(in.TeamID)
		}

		created := in.CreationTime
		if created == "" {
			created = s.timestamp()
		}
		id = store.NewID(store.BoardIDPrefix, func(c string) bool { return ids[c] })
		boards = append(boards, model.Board{
			ID:           id,
			Name:         in.Name,
			Description:  in.Description,
			TeamID:       in.TeamID,
			CreationTime: created,
			Status:       model.BoardStatusOpen,
		})
		return tx.PutBoards(boards)
	}, store.Boards, store.Teams)
	if err != nil {
		return "", err
	}

	slog.Info("board created",
		slog.String("board_id", id),
		slog.String("team_id", in.TeamID),
	)
	return id, nil
}

// ListBoards はチームのボード一覧を返す。
func (s *Service) ListBoards(ctx context.Context, actor policy.Actor, teamID string) ([]model.BoardSummary, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	var summaries []model.BoardSummary
	err := s.store.View(ctx, func(tx *store.Tx) error {
		boards, err := tx.Boards()
		if err != nil {
			return err
		}
		summaries = []model.BoardSummary{}
		for _, b := range boards {
			if b.TeamID == teamID && b.Status != "" {
				summaries = append(summaries, model.BoardSummary{ID: b.ID, Name: b.Name, Status: b.Status})
			}
		}
		return nil
	}, store.Boards)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// CloseBoard はボードをクローズする。
// すべてのタスクがCOMPLETEでなければクローズできない。ボードとタスクを同じロック区間で扱う。
func (s *Service) CloseBoard(ctx context.Context, actor policy.Actor, boardID string) error {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return err
	}

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		boards, err := tx.Boards()
		if err != nil {
			return err
		}
		b := findBoard(boards, boardID)
		if b == nil {
			return model.NewBoardNotFoundError(boardID)
		}
		if b.Status == model.BoardStatusClosed {
			return model.NewBoardAlreadyClosedError(boardID)
		}

		tasks, err := tx.Tasks()
		if err != nil {
			return err
		}
		incomplete := 0
		for _, t := range tasks {
			if t.BoardID == boardID && t.Status != model.TaskStatusComplete {
				incomplete++
			}
		}
		if incomplete > 0 {
			return model.NewBoardNotClosableError(incomplete)
		}

		b.Status = model.BoardStatusClosed
		b.EndTime = s.timestamp()
		return tx.PutBoards(boards)
	}, store.Boards, store.Tasks)
	if err != nil {
		return err
	}

	if s.observer != nil {
		s.observer.RecordBoardClosed()
	}
	slog.Info("board closed",
		slog.String("board_id", boardID),
		slog.String("actor", actor.UserID),
	)
	return nil
}

// ExportBoard はボードの概要をテキストファイルに書き出し、そのパスを返す。
func (s *Service) ExportBoard(ctx context.Context, actor policy.Actor, boardID string) (string, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return "", err
	}

	var summary []byte
	err := s.store.View(ctx, func(tx *store.Tx) error {
		boards, err := tx.Boards()
		if err != nil {
			return err
		}
		b := findBoard(boards, boardID)
		if b == nil {
			return model.NewBoardNotFoundError(boardID)
		}
		tasks, err := tx.Tasks()
		if err != nil {
			return err
		}
		users, err := tx.Users()
		if err != nil {
			return err
		}
		summary = RenderSummary(*b, tasks, users)
		return nil
	}, store.Boards, store.Tasks, store.Users)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(s.exportDir, boardID+"_summary.txt")
	if err := store.WriteFileAtomic(path, summary); err != nil {
		return "", fmt.Errorf("failed to write board summary: %w", err)
	}

	slog.Info("board exported",
		slog.String("board_id", boardID),
		slog.String("path", path),
	)
	return path, nil
}

func findBoard(boards []model.Board, id string) *model.Board {
	for i := range boards {
		if boards[i].ID == id {
			return &boards[i]
		}
	}
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

func teamExists(teams []model.Team, id string) bool {
	return findTeam(teams, id) != nil
}
