// Package model はドメインモデルを定義する。
package model

// Role はユーザーの役割を表す。
type Role = string

const (
	// RoleOwner は飼い主ユーザーを示す。
	RoleOwner Role = "owner"
	// RoleWalker は散歩代行ユーザーを示す。
	RoleWalker Role = "walker"
)

// IsValidRole はroleが許可された値かを判定する。
func IsValidRole(role string) bool {
	return role == RoleOwner || role == RoleWalker
}

// User はユーザーサービスが保持するユーザーを表す。
// 信頼できる情報源は常に上流のユーザーサービスであり、BFFは永続化しない。
type User struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	Phone           string  `json:"phone,omitempty"`
	Location        string  `json:"location,omitempty"`
	ProfileImageURL string  `json:"profile_image_url,omitempty"`
	Bio             string  `json:"bio,omitempty"`
	Rating          float64 `json:"rating,omitempty"`
	TotalReviews    int     `json:"total_reviews,omitempty"`
}

// UserSummary はセッションおよびログイン/サインアップ応答に含める
// ユーザーの射影（id/name/email/roleのみ）。
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Summary はUserからUserSummaryを生成する。
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
