package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// NewUser はユーザー作成リクエストのペイロード。
// フィールド名は上流ユーザーサービスの契約に一致する。
type NewUser struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Phone           string `json:"phone"`
	Location        string `json:"location"`
	ProfileImageURL string `json:"profile_image_url"`
	Bio             string `json:"bio"`
}

// NewDog は犬作成リクエストのペイロード。
type NewDog struct {
	OwnerID                 int64  `json:"owner_id"`
	Name                    string `json:"name"`
	Breed                   string `json:"breed"`
	Age                     int    `json:"age"`
	Size                    string `json:"size"`
	Temperament             string `json:"temperament"`
	EnergyLevel             string `json:"energy_level"`
	IsFriendlyWithOtherDogs bool   `json:"is_friendly_with_other_dogs"`
	IsFriendlyWithChildren  bool   `json:"is_friendly_with_children"`
	SpecialNeeds            string `json:"special_needs,omitempty"`
}

// ListUsersQuery はユーザー一覧取得のクエリパラメータ。
type ListUsersQuery struct {
	Role      string
	Location  string
	MinRating string
	Limit     int
}

// UserService はユーザーサービスの型付き操作を提供する。
// すべての操作はClientの既定タイムアウトを使用し、リトライしない。
type UserService struct {
	c *Client
}

// NewUserService はUserServiceを生成する。
func NewUserService(c *Client) *UserService {
	return &UserService{c: c}
}

// SearchUsers はメールアドレス等のクエリ文字列でユーザーを検索する。
// GET /api/users/search?q=<q>
func (s *UserService) SearchUsers(ctx context.Context, q string) (*Result, error) {
	query := url.Values{}
	query.Set("q", q)
	return s.c.Do(ctx, http.MethodGet, "/api/users/search", query, nil, 0)
}

// CreateUser はユーザーを作成する。
// POST /api/users
func (s *UserService) CreateUser(ctx context.Context, user NewUser) (*Result, error) {
	return s.c.Do(ctx, http.MethodPost, "/api/users", nil, user, 0)
}

// GetUser は指定IDのユーザーを取得する。
// GET /api/users/{id}
func (s *UserService) GetUser(ctx context.Context, id int64) (*Result, error) {
	return s.c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, nil, 0)
}

// UpdateUser は指定IDのユーザーを部分更新する。
// 渡されたフィールドのみを送信し、欠落フィールドの黙示的な上書きは行わない。
// PUT /api/users/{id}
func (s *UserService) UpdateUser(ctx context.Context, id int64, fields map[string]any) (*Result, error) {
	return s.c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/users/%d", id), nil, fields, 0)
}

// DeleteUser は指定IDのユーザーをソフトデリートする。
// DELETE /api/users/{id}
func (s *UserService) DeleteUser(ctx context.Context, id int64) (*Result, error) {
	return s.c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/users/%d", id), nil, nil, 0)
}

// GetUserStats は指定ユーザーの利用統計を取得する。
// GET /api/users/{id}/stats
func (s *UserService) GetUserStats(ctx context.Context, id int64) (*Result, error) {
	return s.c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d/stats", id), nil, nil, 0)
}

// ListUsers は条件付きでユーザー一覧を取得する。
// GET /api/users?role=&limit=&location=&min_rating=
func (s *UserService) ListUsers(ctx context.Context, q ListUsersQuery) (*Result, error) {
	query := url.Values{}
	if q.Role != "" {
		query.Set("role", q.Role)
	}
	if q.Location != "" {
		query.Set("location", q.Location)
	}
	if q.MinRating != "" {
		query.Set("min_rating", q.MinRating)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	return s.c.Do(ctx, http.MethodGet, "/api/users", query, nil, 0)
}

// CountUsers は全ユーザー数を取得する。一覧APIのtotalフィールドを利用する。
func (s *UserService) CountUsers(ctx context.Context) (*Result, error) {
	return s.ListUsers(ctx, ListUsersQuery{Limit: 1})
}

// CountOwners は飼い主数を取得する。
// GET /api/users/owners?limit=1
func (s *UserService) CountOwners(ctx context.Context) (*Result, error) {
	query := url.Values{}
	query.Set("limit", "1")
	return s.c.Do(ctx, http.MethodGet, "/api/users/owners", query, nil, 0)
}

// CountWalkers は散歩代行者数を取得する。
// GET /api/users/walkers?limit=1
func (s *UserService) CountWalkers(ctx context.Context) (*Result, error) {
	query := url.Values{}
	query.Set("limit", "1")
	return s.c.Do(ctx, http.MethodGet, "/api/users/walkers", query, nil, 0)
}

// ListDogsByOwner は指定オーナーの犬一覧を取得する。
// GET /api/dogs/owner/{id}
func (s *UserService) ListDogsByOwner(ctx context.Context, ownerID int64) (*Result, error) {
	return s.c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/dogs/owner/%d", ownerID), nil, nil, 0)
}

// CreateDog は犬を登録する。
// POST /api/dogs
func (s *UserService) CreateDog(ctx context.Context, dog NewDog) (*Result, error) {
	return s.c.Do(ctx, http.MethodPost, "/api/dogs", nil, dog, 0)
}

// UpdateDog は指定IDの犬を更新する。渡されたフィールドのみ送信する。
// PUT /api/dogs/{id}
func (s *UserService) UpdateDog(ctx context.Context, id int64, fields map[string]any) (*Result, error) {
	return s.c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/dogs/%d", id), nil, fields, 0)
}

// DeleteDog は指定IDの犬を削除する。
// DELETE /api/dogs/{id}
func (s *UserService) DeleteDog(ctx context.Context, id int64) (*Result, error) {
	return s.c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/dogs/%d", id), nil, nil, 0)
}

// BreedStats は犬種別の頭数集計を取得する。
// GET /api/dogs/stats/breeds
func (s *UserService) BreedStats(ctx context.Context) (*Result, error) {
	return s.c.Do(ctx, http.MethodGet, "/api/dogs/stats/breeds", nil, nil, 0)
}

// SizeStats はサイズ別の頭数集計を取得する。
// GET /api/dogs/stats/sizes
func (s *UserService) SizeStats(ctx context.Context) (*Result, error) {
	return s.c.Do(ctx, http.MethodGet, "/api/dogs/stats/sizes", nil, nil, 0)
}
