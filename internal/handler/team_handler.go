package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/planner/internal/middleware"
	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/security"
	"github.com/hitoshi/planner/internal/team"
)

// TeamServiceInterface はチームハンドラーが必要とするサービスインターフェース。
type TeamServiceInterface interface {
	CreateTeam(ctx context.Context, actor policy.Actor, in team.CreateTeamInput) (string, error)
	ListTeams(ctx context.Context, actor policy.Actor) ([]model.Team, error)
	DescribeTeam(ctx context.Context, actor policy.Actor, teamID string) (*model.Team, error)
	UpdateTeam(ctx context.Context, actor policy.Actor, teamID string, in team.UpdateTeamInput) error
	AddMembers(ctx context.Context, actor policy.Actor, teamID string, userIDs []string) error
	RemoveMembers(ctx context.Context, actor policy.Actor, teamID string, userIDs []string) error
	ListMembers(ctx context.Context, actor policy.Actor, teamID string) ([]model.TeamMember, error)
}

// TeamHandler はチーム管理のHTTPハンドラー。
type TeamHandler struct {
	service   TeamServiceInterface
	sanitizer security.TextSanitizer
}

// NewTeamHandler はTeamHandlerを生成する。
func NewTeamHandler(service TeamServiceInterface, sanitizer security.TextSanitizer) *TeamHandler {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &TeamHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// decodeTeamRequest はチーム作成・更新のボディをデコードして検証する。
func (h *TeamHandler) decodeTeamRequest(w http.ResponseWriter, r *http.Request) (*teamRequest, *model.APIError) {
	var req teamRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return nil, apiErr
	}
	req.sanitize(h.sanitizer)
	if apiErr := req.Validate(); apiErr != nil {
		return nil, apiErr
	}
	return &req, nil
}

// decodeMembersRequest はメンバー追加・削除のボディをデコードして検証する。
func decodeMembersRequest(w http.ResponseWriter, r *http.Request) (*membersRequest, *model.APIError) {
	var req membersRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := req.Validate(); apiErr != nil {
		return nil, apiErr
	}
	return &req, nil
}

// CreateTeam はチーム作成を処理する。管理者のみ。
// POST /api/teams
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.decodeTeamRequest(w, r)
	if apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	id, err := h.service.CreateTeam(r.Context(), middleware.ActorFromContext(r.Context()), team.CreateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		Admin:       req.Admin,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// ListTeams は全チームを返す。
// GET /api/teams
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.ListTeams(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, teams)
}

// DescribeTeam はチーム情報を返す。
// GET /api/teams/{id}
func (h *TeamHandler) DescribeTeam(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.DescribeTeam(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// UpdateTeam はチーム情報を更新する。管理者のみ。
// PUT /api/teams/{id}
func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.decodeTeamRequest(w, r)
	if apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	err := h.service.UpdateTeam(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"), team.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		Admin:       req.Admin,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Team updated successfully"})
}

// ListMembers はチームメンバーを返す。
// GET /api/teams/{id}/members
func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

// AddMembers はチームにメンバーを追加する。
// POST /api/teams/{id}/members
func (h *TeamHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	req, apiErr := decodeMembersRequest(w, r)
	if apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	if err := h.service.AddMembers(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Users); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Users added successfully"})
}

// RemoveMembers はチームからメンバーを削除する。
// DELETE /api/teams/{id}/members
func (h *TeamHandler) RemoveMembers(w http.ResponseWriter, r *http.Request) {
	req, apiErr := decodeMembersRequest(w, r)
	if apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	if err := h.service.RemoveMembers(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Users); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Users removed from team"})
}
