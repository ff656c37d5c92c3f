// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ストアバックエンドの種類。
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend string
	DataDir      string
	LockTimeout  time.Duration

	// 文書ファイルの上書き。空の場合はDataDir配下の既定パスを使う。
	UserFile  string
	TeamFile  string
	BoardFile string
	TaskFile  string
	TokenFile string

	// Database
	SQLitePath  string
	DatabaseURL string

	// Export
	ExportDir string

	// Password
	PasswordHasher string
	BcryptCost     int

	// Rate Limit
	RateLimitGeneral int
	RateLimitLogin   int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は.envファイルと環境変数からConfigを読み込む。
// .envファイルが存在しない場合は環境変数のみを使う。
// 既に設定されている環境変数は.envの値で上書きされない。
func Load() (*Config, error) {
	envFile := getEnvString("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg := &Config{}

	cfg.StoreBackend = getEnvString("STORE_BACKEND", BackendFile)
	switch cfg.StoreBackend {
	case BackendFile, BackendSQLite, BackendPostgres:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND: %q (want file, sqlite or postgres)", cfg.StoreBackend)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	cfg.PasswordHasher = getEnvString("PASSWORD_HASHER", "sha256")
	switch cfg.PasswordHasher {
	case "sha256", "bcrypt":
	default:
		return nil, fmt.Errorf("invalid PASSWORD_HASHER: %q (want sha256 or bcrypt)", cfg.PasswordHasher)
	}

	cfg.DataDir = getEnvString("DATA_DIR", "./data")
	cfg.LockTimeout = getEnvDuration("LOCK_TIMEOUT", 5*time.Second)
	cfg.UserFile = getEnvString("USER_FILE", "")
	cfg.TeamFile = getEnvString("TEAM_FILE", "")
	cfg.BoardFile = getEnvString("BOARD_FILE", "")
	cfg.TaskFile = getEnvString("TASK_FILE", "")
	cfg.TokenFile = getEnvString("TOKEN_FILE", "")
	cfg.SQLitePath = getEnvString("SQLITE_PATH", filepath.Join(cfg.DataDir, "planner.db"))
	cfg.ExportDir = getEnvString("EXPORT_DIR", "./exports")
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
