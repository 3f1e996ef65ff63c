package handler

import (
	"context"
	"net/http"

	"github.com/pawpal/bff/internal/model"
	"github.com/pawpal/bff/internal/upstream"
)

const (
	// walkerListLimit はウォーカー検索の取得上限。
	walkerListLimit = 20

	// walkerDisplayPrice はウォーカー表示用の固定価格。上流には価格情報がない。
	walkerDisplayPrice = 25

	// walkerDisplayAvailability はウォーカー表示用の固定ラベル。
	walkerDisplayAvailability = "Available"
)

// WalkerUpstream はウォーカー検索が必要とする上流操作のインターフェース。
type WalkerUpstream interface {
	ListUsers(ctx context.Context, q upstream.ListUsersQuery) (*upstream.Result, error)
}

// WalkerHandler はウォーカー検索のHTTPハンドラー。
type WalkerHandler struct {
	users WalkerUpstream
}

// NewWalkerHandler はWalkerHandlerを生成する。
func NewWalkerHandler(users WalkerUpstream) *WalkerHandler {
	return &WalkerHandler{users: users}
}

// List は検索条件に合うウォーカー一覧を返す。
// GET /api/walkers?location=&min_rating=
//
// locationとmin_ratingはそのまま上流のクエリパラメータへ転送する。
// 各結果には上流に存在しない表示用の価格と空き状況ラベルを付与する。
func (h *WalkerHandler) List(w http.ResponseWriter, r *http.Request) {
	q := upstream.ListUsersQuery{
		Role:      model.RoleWalker,
		Location:  r.URL.Query().Get("location"),
		MinRating: r.URL.Query().Get("min_rating"),
		Limit:     walkerListLimit,
	}

	res, err := h.users.ListUsers(r.Context(), q)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if !res.OK() {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"walkers": []model.WalkerView{},
		})
		return
	}

	var users []model.User
	if err := res.DecodeData(&users); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"walkers": []model.WalkerView{},
		})
		return
	}

	walkers := make([]model.WalkerView, 0, len(users))
	for _, u := range users {
		location := u.Location
		if location == "" {
			location = "Unknown"
		}
		walkers = append(walkers, model.WalkerView{
			ID:           u.ID,
			Name:         u.Name,
			Rating:       u.Rating,
			Reviews:      u.TotalReviews,
			Location:     location,
			Bio:          u.Bio,
			Price:        walkerDisplayPrice,
			Availability: walkerDisplayAvailability,
		})
	}

	total := res.Total()
	if total == 0 {
		total = len(walkers)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"walkers": walkers,
		"total":   total,
	})
}
