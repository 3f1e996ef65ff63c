package model

import "time"

// Session はブラウザセッションに紐づく認証済みアイデンティティを表す。
// セッショントークンはHTTP Only Cookieで運ばれ、サーバー側のストアを参照するキーとなる。
// 認証済み属性のキャッシュであり、役割に敏感な操作では上流のデータを信頼すること。
type Session struct {
	Token     string
	UserID    int64
	UserName  string
	UserEmail string
	UserRole  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// User はセッションにキャッシュされたユーザー射影を返す。
func (s *Session) User() UserSummary {
	return UserSummary{
		ID:    s.UserID,
		Name:  s.UserName,
		Email: s.UserEmail,
		Role:  s.UserRole,
	}
}
