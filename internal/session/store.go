// Package session はブラウザセッションの永続化を提供する。
// セッションはCookieで運ばれるトークンをキーとし、認証済みユーザーの
// 射影（id/name/email/role）をキャッシュする。BFFはセッション横断の
// インデックスを持たず、各セッションは現在のブラウザセッションに専有される。
package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/pawpal/bff/internal/model"
)

// Store はセッションストアのインターフェース。
type Store interface {
	// Find は指定トークンのセッションを取得する。
	// 未登録または期限切れの場合はnilを返す。
	Find(ctx context.Context, token string) (*model.Session, error)

	// Save はセッションを保存する。同一トークンへの再保存は上書きとなる。
	Save(ctx context.Context, sess *model.Session) error

	// Delete は指定トークンのセッションを削除する。
	// トークンが存在しない場合もエラーにしない。
	Delete(ctx context.Context, token string) error
}

// NewToken は暗号的にランダムなセッショントークンを生成する。
func NewToken() string {
	return uuid.NewString()
}
