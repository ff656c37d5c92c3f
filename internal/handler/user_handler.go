package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/planner/internal/middleware"
	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/security"
	"github.com/hitoshi/planner/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	CreateUser(ctx context.Context, in user.CreateUserInput) (string, error)
	ListUsers(ctx context.Context, actor policy.Actor) ([]model.UserView, error)
	DescribeUser(ctx context.Context, actor policy.Actor, userID string) (*model.UserView, error)
	UpdateUser(ctx context.Context, actor policy.Actor, in user.UpdateUserInput) error
	ListUserTeams(ctx context.Context, actor policy.Actor, userID string) ([]model.TeamSummary, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service   UserServiceInterface
	sanitizer security.TextSanitizer
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, sanitizer security.TextSanitizer) *UserHandler {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &UserHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// CreateUser はユーザー登録を処理する。認証は不要。
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}
	req.sanitize(h.sanitizer)
	if apiErr := req.Validate(); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	id, err := h.service.CreateUser(r.Context(), user.CreateUserInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Description: req.Description,
		IsAdmin:     req.IsAdmin,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// ListUsers は全ユーザーを返す。管理者のみ。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// DescribeUser はユーザー情報を返す。
// GET /api/users/{id}
func (h *UserHandler) DescribeUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.DescribeUser(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// UpdateUser はユーザーの表示名を更新する。
// PATCH /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}
	req.sanitize(h.sanitizer)
	if apiErr := req.Validate(); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	err := h.service.UpdateUser(r.Context(), middleware.ActorFromContext(r.Context()), user.UpdateUserInput{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User updated"})
}

// ListUserTeams はユーザーが所属するチームを返す。
// GET /api/users/{id}/teams
func (h *UserHandler) ListUserTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.ListUserTeams(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, teams)
}
