package handler

import (
	"net/http"
	"time"

	"github.com/pawpal/bff/internal/middleware"
	"github.com/pawpal/bff/internal/model"
)

// newTestSession はテスト用のセッションを生成する。
func newTestSession(token string, userID int64) *model.Session {
	now := time.Now()
	return &model.Session{
		Token:     token,
		UserID:    userID,
		UserName:  "Ann",
		UserEmail: "ann@x.com",
		UserRole:  model.RoleOwner,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
}

// withSession はリクエストのコンテキストへセッションを注入する。
func withSession(req *http.Request, sess *model.Session) *http.Request {
	return req.WithContext(middleware.ContextWithSession(req.Context(), sess))
}
