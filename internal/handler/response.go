// Package handler はHTTP境界を提供する。
//
// 各ハンドラーは型付きリクエストをデコードして検証し、サービス層へ渡す。
// 認可とビジネス規則はサービス層が判定し、ここではエラーカテゴリを
// HTTPステータスコードに変換するだけにとどめる。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/planner/internal/middleware"
	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/store"
)

// maxRequestBodySize はリクエストボディの上限（1MB）。
const maxRequestBodySize = 1 << 20

// idResponse は作成系APIのレスポンス。
type idResponse struct {
	ID string `json:"id"`
}

// messageResponse は更新系APIのレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvにデコードする。
// ボディが不正な場合はvalidationカテゴリのAPIErrorを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) *model.APIError {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewValidationError("リクエストボディが不正です。")
	}
	return nil
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	if errors.Is(err, store.ErrLockTimeout) {
		slog.Warn("store busy", slog.String("error", err.Error()))
		middleware.WriteServiceUnavailable(w)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorのカテゴリからHTTPステータスコードにマッピングする。
// 業務エラーはカテゴリに関わらず400を返す。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	}

	switch apiErr.Category {
	case model.CategoryValidation, model.CategoryNotFound, model.CategoryConflict, model.CategoryPrecondition:
		return http.StatusBadRequest
	case model.CategoryAuth:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
