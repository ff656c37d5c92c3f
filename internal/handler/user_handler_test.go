package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/user"
)

func TestUserHandler_CreateUser_Success(t *testing.T) {
	deps := testDeps(t)
	var got user.CreateUserInput
	deps.UserService = &mockUserService{
		createUserFn: func(ctx context.Context, in user.CreateUserInput) (string, error) {
			got = in
			return "u_new001", nil
		},
	}
	router := NewRouter(deps)

	w := doRequest(t, router, http.MethodPost, "/api/users", "", map[string]any{
		"name":         " bob ",
		"display_name": "<b>Bob</b> Builder",
		"password":     "secret1",
		"description":  "builder",
		"is_admin":     false,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["id"] != "u_new001" {
		t.Errorf("id = %q, want %q", body["id"], "u_new001")
	}
	if got.Name != "bob" || got.DisplayName != "Bob Builder" || got.Password != "secret1" {
		t.Errorf("CreateUserInput = %+v", got)
	}
}

func TestUserHandler_CreateUser_Conflict_Returns400(t *testing.T) {
	deps := testDeps(t)
	deps.UserService = &mockUserService{
		createUserFn: func(ctx context.Context, in user.CreateUserInput) (string, error) {
			return "", model.NewUsernameExistsError(in.Name)
		},
	}
	router := NewRouter(deps)

	w := doRequest(t, router, http.MethodPost, "/api/users", "", map[string]any{
		"name": "alice", "display_name": "Alice", "password": "secret1",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeUsernameExists {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeUsernameExists)
	}
}

func TestUserHandler_ListUsers_Denied_Returns403(t *testing.T) {
	deps := testDeps(t)
	deps.UserService = &mockUserService{
		listUsersFn: func(ctx context.Context, actor policy.Actor) ([]model.UserView, error) {
			if actor.IsAdmin {
				return []model.UserView{}, nil
			}
			return nil, model.NewDeniedError()
		},
	}
	router := NewRouter(deps)

	if w := doRequest(t, router, http.MethodGet, "/api/users", adminToken, nil); w.Code != http.StatusOK {
		t.Errorf("admin status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := doRequest(t, router, http.MethodGet, "/api/users", memberToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("member status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestUserHandler_DescribeUser_PassesPathID(t *testing.T) {
	deps := testDeps(t)
	deps.UserService = &mockUserService{
		describeUserFn: func(ctx context.Context, actor policy.Actor, userID string) (*model.UserView, error) {
			if userID != "u_alice1" {
				t.Errorf("userID = %q, want %q", userID, "u_alice1")
			}
			return &model.UserView{ID: userID, Name: "alice", DisplayName: "Alice"}, nil
		},
	}
	router := NewRouter(deps)

	w := doRequest(t, router, http.MethodGet, "/api/users/u_alice1", memberToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["user_id"] != "u_alice1" {
		t.Errorf("user_id = %v, want %q", body["user_id"], "u_alice1")
	}
	if _, ok := body["password"]; ok {
		t.Error("password hash must not be returned")
	}
}

func TestUserHandler_UpdateUser(t *testing.T) {
	deps := testDeps(t)
	var got user.UpdateUserInput
	deps.UserService = &mockUserService{
		updateUserFn: func(ctx context.Context, actor policy.Actor, in user.UpdateUserInput) error {
			got = in
			return nil
		},
	}
	router := NewRouter(deps)

	w := doRequest(t, router, http.MethodPatch, "/api/users/u_alice1", memberToken, map[string]string{"display_name": "Alice L."})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.ID != "u_alice1" || got.DisplayName == nil || *got.DisplayName != "Alice L." {
		t.Errorf("UpdateUserInput = %+v", got)
	}

	// display_nameを省略した場合はnilのまま渡す
	w = doRequest(t, router, http.MethodPatch, "/api/users/u_alice1", memberToken, map[string]string{"name": "alice"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.DisplayName != nil || got.Name != "alice" {
		t.Errorf("UpdateUserInput = %+v, want nil display name", got)
	}
}

func TestUserHandler_ListUserTeams(t *testing.T) {
	deps := testDeps(t)
	deps.UserService = &mockUserService{
		listUserTeamsFn: func(ctx context.Context, actor policy.Actor, userID string) ([]model.TeamSummary, error) {
			return []model.TeamSummary{{ID: "t_000001", Name: "core"}}, nil
		},
	}
	router := NewRouter(deps)

	w := doRequest(t, router, http.MethodGet, "/api/users/u_alice1/teams", memberToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var teams []model.TeamSummary
	if err := json.NewDecoder(w.Body).Decode(&teams); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != "t_000001" {
		t.Errorf("teams = %+v", teams)
	}
}
