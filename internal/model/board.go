package model

// BoardStatus はボードの状態を表す。OPEN → CLOSED の一方向のみ遷移する。
type BoardStatus string

const (
	// BoardStatusOpen はタスクを追加できる状態。
	BoardStatusOpen BoardStatus = "OPEN"
	// BoardStatusClosed はクローズ済み（終端）の状態。
	BoardStatusClosed BoardStatus = "CLOSED"
)

// Board はチームが所有するプロジェクトボードを表す。
type Board struct {
	ID           string      `json:"board_id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	TeamID       string      `json:"team_id"`
	CreationTime string      `json:"creation_time"`
	Status       BoardStatus `json:"status"`
	EndTime      string      `json:"end_time,omitempty"`
}

// BoardSummary はボード一覧の1要素。
type BoardSummary struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Status BoardStatus `json:"status"`
}

// TaskStatus はタスクの状態を表す。
// 3値の間の遷移に制約はない。
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusComplete   TaskStatus = "COMPLETE"
)

// TaskStatuses は許可されたタスク状態の一覧。
var TaskStatuses = []TaskStatus{TaskStatusOpen, TaskStatusInProgress, TaskStatusComplete}

// Valid は状態が許可された値かどうかを返す。
func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Task はボード上のタスクを表す。
type Task struct {
	ID           string     `json:"task_id"`
	BoardID      string     `json:"board_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	UserID       string     `json:"user_id"` // 担当者
	CreationTime string     `json:"creation_time"`
	Status       TaskStatus `json:"status"`
}
