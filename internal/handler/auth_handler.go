package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/planner/internal/auth"
	"github.com/hitoshi/planner/internal/middleware"
	"github.com/hitoshi/planner/internal/security"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login は名前とパスワードで認証し、新しいトークンを発行する。
	Login(ctx context.Context, name, password string) (*auth.LoginResult, error)
	// Logout はトークンを失効させる。
	Logout(ctx context.Context, token string) error
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	sanitizer security.TextSanitizer
}

// NewAuthHandler はAuthHandlerを生成する。
// ログイン名はユーザー登録と同じsanitizerで正規化する。
func NewAuthHandler(service AuthServiceInterface, sanitizer security.TextSanitizer) *AuthHandler {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &AuthHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}
	req.sanitize(h.sanitizer)
	if apiErr := req.Validate(); apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	result, err := h.service.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Logout はAuthorizationヘッダーのトークンを失効させる。
// 失効済みのトークンでも成功を返す。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.TokenFromRequest(r)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
