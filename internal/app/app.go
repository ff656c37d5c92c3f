package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/planner/internal/auth"
	"github.com/hitoshi/planner/internal/board"
	"github.com/hitoshi/planner/internal/config"
	"github.com/hitoshi/planner/internal/database"
	"github.com/hitoshi/planner/internal/handler"
	"github.com/hitoshi/planner/internal/logger"
	"github.com/hitoshi/planner/internal/metrics"
	"github.com/hitoshi/planner/internal/middleware"
	"github.com/hitoshi/planner/internal/security"
	"github.com/hitoshi/planner/internal/store"
	"github.com/hitoshi/planner/internal/team"
	"github.com/hitoshi/planner/internal/user"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込みの失敗もJSONで出せるよう先に既定レベルで初期化する
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runServe(ctx, cfg)
}

// openBackend は設定に応じたストアバックエンドを開く。
func openBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, cfg.LockTimeout)
		if err != nil {
			return nil, err
		}
		slog.Info("sqlite store opened", slog.String("path", cfg.SQLitePath))
		return store.NewSQLBackend(db, store.SQLiteDialect), nil

	case config.BackendPostgres:
		db, err := database.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("postgres store opened", slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)))
		return store.NewSQLBackend(db, store.PostgresDialect), nil

	case config.BackendFile:
		b, err := store.NewFileBackend(cfg.DataDir, documentPaths(cfg))
		if err != nil {
			return nil, err
		}
		slog.Info("file store opened", slog.String("data_dir", cfg.DataDir))
		return b, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// documentPaths は設定で上書きされた文書ファイルのパスを返す。
func documentPaths(cfg *config.Config) map[store.Document]string {
	paths := make(map[store.Document]string)
	for doc, p := range map[store.Document]string{
		store.Users:  cfg.UserFile,
		store.Teams:  cfg.TeamFile,
		store.Boards: cfg.BoardFile,
		store.Tasks:  cfg.TaskFile,
		store.Tokens: cfg.TokenFile,
	} {
		if p != "" {
			paths[doc] = p
		}
	}
	return paths
}

// buildServer はストアを開き、全依存関係をワイヤリングしたHTTPサーバーを返す。
// 返されたcleanupはサーバー停止後に呼び出す。
func buildServer(cfg *config.Config) (*http.Server, func(), error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	hasher, err := auth.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	st := store.New(backend,
		store.WithLockTimeout(cfg.LockTimeout),
		store.WithObserver(collector),
	)

	authService := auth.NewService(st, hasher)
	authService.SetObserver(collector)
	userService := user.NewService(st, hasher)
	teamService := team.NewService(st)
	boardService := board.NewService(st, cfg.ExportDir)
	boardService.SetObserver(collector)

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		TokenResolver:     authService,
		RateLimiter:       rateLimiter,
		HTTPMetrics:       collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Sanitizer:         security.NewTextSanitizer(),
		HealthChecker:     st,
		MetricsHandler:    metrics.Handler(reg),

		AuthService:  authService,
		UserService:  userService,
		TeamService:  teamService,
		BoardService: boardService,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanup := func() {
		rateLimiter.Stop()
		if err := st.Close(); err != nil {
			slog.Error("failed to close store", slog.String("error", err.Error()))
		}
	}
	return server, cleanup, nil
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	server, cleanup, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
