package board

import (
	"context"
	"log/slog"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/store"
)

// AddTaskInput はタスク追加の入力。
// CreationTimeが空の場合は現在時刻を使う。
type AddTaskInput struct {
	BoardID      string
	Title        string
	Description  string
	UserID       string
	CreationTime string
}

// AddTask はボードにタスクを追加し、採番したIDを返す。
// 操作者と担当者はともにボードを所有するチームのメンバーでなければならない。
func (s *Service) AddTask(ctx context.Context, actor policy.Actor, in AddTaskInput) (string, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return "", err
	}

	var id string
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		tasks, err := tx.Tasks()
		if err != nil {
			return err
		}
		ids := make(map[string]bool, len(tasks))
		for _, t := range tasks {
			if t.BoardID == in.BoardID && t.Title == in.Title {
				return model.NewTaskTitleExistsError(in.Title)
			}
			ids[t.ID] = true
		}

		boards, err := tx.Boards()
		if err != nil {
			return err
		}
		b := findBoard(boards, in.BoardID)
		if b == nil {
			return model.NewBoardNotFoundError(in.BoardID)
		}
		if b.Status != model.BoardStatusOpen {
			return model.NewTaskCannotBeAddedError(in.BoardID)
		}

		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		team := findTeam(teams, b.TeamID)
		if team == nil {
			return model.NewTeamNotFoundForBoardError(in.BoardID)
		}
		if !policy.IsMember(actor.UserID, team.Members) {
			return model.NewDeniedError()
		}
		if !policy.IsMember(in.UserID, team.Members) {
			return model.NewAssigneeNotInTeamError(in.UserID)
		}

		created := in.CreationTime
		if created == "" {
			created = s.timestamp()
		}
		id = store.NewID(store.TaskIDPrefix, func(c string) bool { return ids[c] })
		tasks = append(tasks, model.Task{
			ID:           id,
			BoardID:      in.BoardID,
			Title:        in.Title,
			Description:  in.Description,
			UserID:       in.UserID,
			CreationTime: created,
			Status:       model.TaskStatusOpen,
		})
		return tx.PutTasks(tasks)
	}, store.Boards, store.Tasks, store.Teams)
	if err != nil {
		return "", err
	}

	if s.observer != nil {
		s.observer.RecordTaskCreated()
	}
	slog.Info("task created",
		slog.String("task_id", id),
		slog.String("board_id", in.BoardID),
		slog.String("assignee", in.UserID),
	)
	return id, nil
}

// UpdateTaskStatus はタスクの状態を上書きする。
// クローズ済みボードのタスクも変更できる。COMPLETEから戻した場合は警告ログとメトリクスで検知する。
func (s *Service) UpdateTaskStatus(ctx context.Context, actor policy.Actor, taskID string, status model.TaskStatus) error {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return err
	}
	if !status.Valid() {
		return model.NewInvalidStatusError(string(status))
	}

	var regressed *model.Task
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		tasks, err := tx.Tasks()
		if err != nil {
			return err
		}
		var task *model.Task
		for i := range tasks {
			if tasks[i].ID == taskID {
				task = &tasks[i]
				break
			}
		}
		if task == nil {
			return model.NewTaskNotFoundError(taskID)
		}

		previous := task.Status
		task.Status = status
		if previous == model.TaskStatusComplete && status != model.TaskStatusComplete {
			boards, err := tx.Boards()
			if err != nil {
				return err
			}
			if b := findBoard(boards, task.BoardID); b != nil && b.Status == model.BoardStatusClosed {
				t := *task
				regressed = &t
			}
		}
		return tx.PutTasks(tasks)
	}, store.Boards, store.Tasks)
	if err != nil {
		return err
	}

	if regressed != nil {
		if s.observer != nil {
			s.observer.RecordClosedBoardRegression()
		}
		slog.Warn("closed board has incomplete task",
			slog.String("board_id", regressed.BoardID),
			slog.String("task_id", taskID),
			slog.String("status", string(status)),
		)
	}
	slog.Info("task status updated",
		slog.String("task_id", taskID),
		slog.String("status", string(status)),
		slog.String("actor", actor.UserID),
	)
	return nil
}
