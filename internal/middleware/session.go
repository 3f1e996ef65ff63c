// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pawpal/bff/internal/model"
	"github.com/pawpal/bff/internal/session"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "pawpal_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// NewSessionLoaderMiddleware はHTTP Only Cookieからセッションを解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
//
// 未認証リクエストを拒否しない点が一般的な認証ミドルウェアと異なる。
// GET /api/pets は未認証時に401ではなく空リストを返す契約のため、
// 認証要否の判断は各ハンドラーに委ねる。Cookieなし・ストア未登録・
// 期限切れのいずれもセッションnilとして通過させる。
func NewSessionLoaderMiddleware(store session.Store) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.Find(r.Context(), cookie.Value)
			if err != nil {
				// ストア障害は未認証として扱い、リクエスト自体は通す
				slog.Error("failed to load session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションローダーを通過していない、または未認証の場合はnilを返す。
func SessionFromContext(ctx context.Context) *model.Session {
	sess, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok {
		return nil
	}
	return sess
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
