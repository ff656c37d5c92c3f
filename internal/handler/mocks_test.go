package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/planner/internal/auth"
	"github.com/hitoshi/planner/internal/board"
	"github.com/hitoshi/planner/internal/middleware"
	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
	"github.com/hitoshi/planner/internal/team"
	"github.com/hitoshi/planner/internal/user"
)

// --- モック定義 ---

type mockTokenResolver struct {
	users map[string]*model.User
}

func (m *mockTokenResolver) Resolve(ctx context.Context, token string) (*model.User, error) {
	return m.users[token], nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

type mockAuthService struct {
	loginFn  func(ctx context.Context, name, password string) (*auth.LoginResult, error)
	logoutFn func(ctx context.Context, token string) error
}

func (m *mockAuthService) Login(ctx context.Context, name, password string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, name, password)
	}
	return &auth.LoginResult{}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

type mockUserService struct {
	createUserFn    func(ctx context.Context, in user.CreateUserInput) (string, error)
	listUsersFn     func(ctx context.Context, actor policy.Actor) ([]model.UserView, error)
	describeUserFn  func(ctx context.Context, actor policy.Actor, userID string) (*model.UserView, error)
	updateUserFn    func(ctx context.Context, actor policy.Actor, in user.UpdateUserInput) error
	listUserTeamsFn func(ctx context.Context, actor policy.Actor, userID string) ([]model.TeamSummary, error)
}

func (m *mockUserService) CreateUser(ctx context.Context, in user.CreateUserInput) (string, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, in)
	}
	return "", nil
}

func (m *mockUserService) ListUsers(ctx context.Context, actor policy.Actor) ([]model.UserView, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockUserService) DescribeUser(ctx context.Context, actor policy.Actor, userID string) (*model.UserView, error) {
	if m.describeUserFn != nil {
		return m.describeUserFn(ctx, actor, userID)
	}
	return nil, nil
}

func (m *mockUserService) UpdateUser(ctx context.Context, actor policy.Actor, in user.UpdateUserInput) error {
	if m.updateUserFn != nil {
		return m.updateUserFn(ctx, actor, in)
	}
	return nil
}

func (m *mockUserService) ListUserTeams(ctx context.Context, actor policy.Actor, userID string) ([]model.TeamSummary, error) {
	if m.listUserTeamsFn != nil {
		return m.listUserTeamsFn(ctx, actor, userID)
	}
	return nil, nil
}

type mockTeamService struct {
	createTeamFn    func(ctx context.Context, actor policy.Actor, in team.CreateTeamInput) (string, error)
	listTeamsFn     func(ctx context.Context, actor policy.Actor) ([]model.Team, error)
	describeTeamFn  func(ctx context.Context, actor policy.Actor, teamID string) (*model.Team, error)
	updateTeamFn    func(ctx context.Context, actor policy.Actor, teamID string, in team.UpdateTeamInput) error
	addMembersFn    func(ctx context.Context, actor policy.Actor, teamID string, userIDs []string) error
	removeMembersFn func(ctx context.Context, actor policy.Actor, teamID string, userIDs []string) error
	listMembersFn   func(ctx context.Context, actor policy.Actor, teamID string) ([]model.TeamMember, error)
}

func (m *mockTeamService) CreateTeam(ctx context.Context, actor policy.Actor, in team.CreateTeamInput) (string, error) {
	if m.createTeamFn != nil {
		return m.createTeamFn(ctx, actor, in)
	}
	return "", nil
}

func (m *mockTeamService) ListTeams(ctx context.Context, actor policy.Actor) ([]model.Team, error) {
	if m.listTeamsFn != nil {
		return m.listTeamsFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockTeamService) DescribeTeam(ctx context.Context, actor policy.Actor, teamID string) (*model.Team, error) {
	if m.describeTeamFn != nil {
		return m.describeTeamFn(ctx, actor, teamID)
	}
	return nil, nil
}

func (m *mockTeamService) UpdateTeam(ctx context.Context, actor policy.Actor, teamID string, in team.UpdateTeamInput) error {
	if m.updateTeamFn != nil {
		return m.updateTeamFn(ctx, actor, teamID, in)
	}
	return nil
}

func (m *mockTeamService) AddMembers(ctx context.Context, actor policy.Actor, teamID string, userIDs []string) error {
	if m.addMembersFn != nil {
		return m.addMembersFn(ctx, actor, teamID, userIDs)
	}
	return nil
}

func (m *mockTeamService) RemoveMembers(ctx context.Context, actor policy.Actor, teamID string, userIDs []string) error {
	if m.removeMembersFn != nil {
		return m.removeMembersFn(ctx, actor, teamID, userIDs)
	}
	return nil
}

func (m *mockTeamService) ListMembers(ctx context.Context, actor policy.Actor, teamID string) ([]model.TeamMember, error) {
	if m.listMembersFn != nil {
		return m.listMembersFn(ctx, actor, teamID)
	}
	return nil, nil
}

type mockBoardService struct {
	createBoardFn      func(ctx context.Context, actor policy.Actor, in board.CreateBoardInput) (string, error)
	listBoardsFn       func(ctx context.Context, actor policy.Actor, teamID string) ([]model.BoardSummary, error)
	closeBoardFn       func(ctx context.Context, actor policy.Actor, boardID string) error
	exportBoardFn      func(ctx context.Context, actor policy.Actor, boardID string) (string, error)
	addTaskFn          func(ctx context.Context, actor policy.Actor, in board.AddTaskInput) (string, error)
	updateTaskStatusFn func(ctx context.Context, actor policy.Actor, taskID string, status model.TaskStatus) error
}

func (m *mockBoardService) CreateBoard(ctx context.Context, actor policy.Actor, in board.CreateBoardInput) (string, error) {
	if m.createBoardFn != nil {
		return m.createBoardFn(ctx, actor, in)
	}
	return "", nil
}

func (m *mockBoardService) ListBoards(ctx context.Context, actor policy.Actor, teamID string) ([]model.BoardSummary, error) {
	if m.listBoardsFn != nil {
		return m.listBoardsFn(ctx, actor, teamID)
	}
	return nil, nil
}

func (m *mockBoardService) CloseBoard(ctx context.Context, actor policy.Actor, boardID string) error {
	if m.closeBoardFn != nil {
		return m.closeBoardFn(ctx, actor, boardID)
	}
	return nil
}

func (m *mockBoardService) ExportBoard(ctx context.Context, actor policy.Actor, boardID string) (string, error) {
	if m.exportBoardFn != nil {
		return m.exportBoardFn(ctx, actor, boardID)
	}
	return "", nil
}

func (m *mockBoardService) AddTask(ctx context.Context, actor policy.Actor, in board.AddTaskInput) (string, error) {
	if m.addTaskFn != nil {
		return m.addTaskFn(ctx, actor, in)
	}
	return "", nil
}

func (m *mockBoardService) UpdateTaskStatus(ctx context.Context, actor policy.Actor, taskID string, status model.TaskStatus) error {
	if m.updateTaskStatusFn != nil {
		return m.updateTaskStatusFn(ctx, actor, taskID, status)
	}
	return nil
}

// --- テストヘルパー ---

const (
	adminToken  = "admin-token"
	memberToken = "member-token"
)

var (
	adminUser  = &model.User{ID: "u_admin1", Name: "root", IsAdmin: true}
	memberUser = &model.User{ID: "u_alice1", Name: "alice"}
)

// testDeps はモックで依存関係を埋めたRouterDepsを返す。
// 呼び出し側で必要なサービスだけ差し替える。
func testDeps(t *testing.T) *RouterDeps {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(1000, 1000))
	t.Cleanup(rl.Stop)
	return &RouterDeps{
		TokenResolver: &mockTokenResolver{users: map[string]*model.User{
			adminToken:  adminUser,
			memberToken: memberUser,
		}},
		RateLimiter:   rl,
		HealthChecker: &mockHealthChecker{},
		AuthService:   &mockAuthService{},
		UserService:   &mockUserService{},
		TeamService:   &mockTeamService{},
		BoardService:  &mockBoardService{},
	}
}

// doRequest はルーターにリクエストを送り、レスポンスを返す。
// bodyがnilでない場合はJSONにエンコードして送る。
func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
