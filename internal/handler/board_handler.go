package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/planner/internal/board"
	"github.com/hitoshi/planner/internal/middleware"
	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/security"
)

// BoardServiceInterface はボード・タスクハンドラーが必要とするサービスインターフェース。
type BoardServiceInterface interface {
	CreateBoard(ctx context.Context, actor policy.Actor, in board.CreateBoardInput) (string, error)
	ListBoards(ctx context.Context, actor policy.Actor, teamID string) ([]model.BoardSummary, error)
	CloseBoard(ctx context.Context, actor policy.Actor, boardID string) error
	ExportBoard(ctx context.Context, actor policy.Actor, boardID string) (string, error)
	AddTask(ctx context.Context, actor policy.Actor, in board.AddTaskInput) (string, error)
	UpdateTaskStatus(ctx context.Context, actor policy.Actor, taskID string, status model.TaskStatus) error
}

// BoardHandler はボードとタスクのHTTPハンドラー。
type BoardHandler struct {
	service   BoardServiceInterface
	sanitizer security.TextSanitizer
}

// exportResponse はエクスポートのレスポンス。
type exportResponse struct {
	OutFile string `json:"out_file"`
}

// NewBoardHandler はBoardHandlerを生成する。
func NewBoardHandler(service BoardServiceInterface, sanitizer security.TextSanitizer) *BoardHandler {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &BoardHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// CreateBoard はボード作成を処理する。管理者のみ。
// POST /api/boards
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req createBoardRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}
	req.sanitize(h.sanitizer)
	if apiErr := req.Validate(); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	id, err := h.service.CreateBoard(r.Context(), middleware.ActorFromContext(r.Context()), board.CreateBoardInput{
		Name:         req.Name,
		Description:  req.Description,
		TeamID:       req.TeamID,
		CreationTime: req.CreationTime,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// ListBoards はチームのOPENなボードを返す。
// GET /api/teams/{id}/boards
func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.service.ListBoards(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, boards)
}

// CloseBoard はボードをクローズする。
// POST /api/boards/{id}/close
func (h *BoardHandler) CloseBoard(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseBoard(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Board closed successfully"})
}

// ExportBoard はボードの概要をファイルに書き出し、そのパスを返す。
// POST /api/boards/{id}/export
func (h *BoardHandler) ExportBoard(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.ExportBoard(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exportResponse{OutFile: path})
}

// AddTask はボードにタスクを追加する。
// POST /api/boards/{id}/tasks
func (h *BoardHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}
	req.sanitize(h.sanitizer)
	if apiErr := req.Validate(); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	id, err := h.service.AddTask(r.Context(), middleware.ActorFromContext(r.Context()), board.AddTaskInput{
		BoardID:      chi.URLParam(r, "id"),
		Title:        req.Title,
		Description:  req.Description,
		UserID:       req.UserID,
		CreationTime: req.CreationTime,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// UpdateTaskStatus はタスクの状態を更新する。
// PUT /api/tasks/{id}/status
func (h *BoardHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req updateTaskStatusRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}
	if apiErr := req.Validate(); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	if err := h.service.UpdateTaskStatus(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Status); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Task status updated"})
}
