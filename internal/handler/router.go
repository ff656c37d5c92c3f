package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/planner/internal/middleware"
	"github.com/hitoshi/planner/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenResolver     middleware.TokenResolver
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       middleware.HTTPMetrics
	CORSAllowedOrigin string
	Sanitizer         security.TextSanitizer

	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// サービス
	AuthService  AuthServiceInterface
	UserService  UserServiceInterface
	TeamService  TeamServiceInterface
	BoardService BoardServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → (グループごと) TokenAuth → RateLimit
//
// ログインとユーザー登録はトークン認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.CORSAllowedOrigin != "" {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Sanitizer)
	userHandler := NewUserHandler(deps.UserService, deps.Sanitizer)
	teamHandler := NewTeamHandler(deps.TeamService, deps.Sanitizer)
	boardHandler := NewBoardHandler(deps.BoardService, deps.Sanitizer)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.With(deps.RateLimiter.LoginMiddleware()).Post("/api/auth/login", authHandler.Login)
	r.Post("/api/auth/logout", authHandler.Logout)
	r.Post("/api/users", userHandler.CreateUser)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: TokenAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenAuthMiddleware(deps.TokenResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー管理
		r.Get("/api/users", userHandler.ListUsers)
		r.Route("/api/users/{id}", func(r chi.Router) {
			r.Get("/", userHandler.DescribeUser)
			r.Patch("/", userHandler.UpdateUser)
			r.Get("/teams", userHandler.ListUserTeams)
		})

		// チーム管理
		r.Post("/api/teams", teamHandler.CreateTeam)
		r.Get("/api/teams", teamHandler.ListTeams)
		r.Route("/api/teams/{id}", func(r chi.Router) {
			r.Get("/", teamHandler.DescribeTeam)
			r.Put("/", teamHandler.UpdateTeam)
			r.Get("/members", teamHandler.ListMembers)
			r.Post("/members", teamHandler.AddMembers)
			r.Delete("/members", teamHandler.RemoveMembers)
			r.Get("/boards", boardHandler.ListBoards)
		})

		// ボードとタスク
		r.Post("/api/boards", boardHandler.CreateBoard)
		r.Route("/api/boards/{id}", func(r chi.Router) {
			r.Post("/close", boardHandler.CloseBoard)
			r.Post("/export", boardHandler.ExportBoard)
			r.Post("/tasks", boardHandler.AddTask)
		})
		r.Put("/api/tasks/{id}/status", boardHandler.UpdateTaskStatus)
	})

	return r
}
