// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/policy"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// actorContextKey はリクエストコンテキストにActorを格納するためのキー。
var actorContextKey = contextKey("actor")

// TokenResolver はトークンからユーザーを解決する。
// auth.Serviceの部分集合として定義する。
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*model.User, error)
}

// NewTokenAuthMiddleware はAuthorizationヘッダーのトークンを検証するミドルウェアを返す。
// "Token <t>" と "Bearer <t>" の両形式を受け付ける。
// 解決したActorをリクエストコンテキストに注入し、未認証リクエストには401を返す。
func NewTokenAuthMiddleware(resolver TokenResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			u, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				slog.Error("failed to resolve token",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if u == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			actor := policy.ActorOf(u)
			setRequestUser(r.Context(), actor.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// TokenFromRequest はAuthorizationヘッダーからトークン文字列を取り出す。
// 形式が不正な場合は空文字列を返す。
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(token)
	default:
		return ""
	}
}

// ActorFromContext はリクエストコンテキストからActorを取得する。
// トークン認証を通過していないリクエストではゼロ値のActorを返す。
func ActorFromContext(ctx context.Context) policy.Actor {
	actor, _ := ctx.Value(actorContextKey).(policy.Actor)
	return actor
}

// ContextWithActor はコンテキストにActorを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	actor := ActorFromContext(ctx)
	if !actor.Authenticated() {
		return "", fmt.Errorf("user ID not found in context")
	}
	return actor.UserID, nil
}
