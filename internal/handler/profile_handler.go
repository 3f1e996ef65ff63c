package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pawpal/bff/internal/middleware"
	"github.com/pawpal/bff/internal/model"
	"github.com/pawpal/bff/internal/session"
	"github.com/pawpal/bff/internal/upstream"
)

// ProfileUpstream はプロフィールハンドラーが必要とする上流操作のインターフェース。
type ProfileUpstream interface {
	GetUser(ctx context.Context, id int64) (*upstream.Result, error)
	UpdateUser(ctx context.Context, id int64, fields map[string]any) (*upstream.Result, error)
	DeleteUser(ctx context.Context, id int64) (*upstream.Result, error)
	GetUserStats(ctx context.Context, id int64) (*upstream.Result, error)
	ListDogsByOwner(ctx context.Context, ownerID int64) (*upstream.Result, error)
}

// ProfileHandler はプロフィールの取得・更新・削除のHTTPハンドラー。
type ProfileHandler struct {
	users     ProfileUpstream
	store     session.Store
	sanitizer TextSanitizer
	cookies   CookieConfig
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(users ProfileUpstream, store session.Store, sanitizer TextSanitizer, cookies CookieConfig) *ProfileHandler {
	return &ProfileHandler{
		users:     users,
		store:     store,
		sanitizer: sanitizer,
		cookies:   cookies,
	}
}

// profileResponse はプロフィール取得のレスポンス。
type profileResponse struct {
	Success bool        `json:"success"`
	Data    profileData `json:"data"`
}

type profileData struct {
	User  model.User      `json:"user"`
	Dogs  []model.Dog     `json:"dogs"`
	Stats json.RawMessage `json:"stats"`
}

// Get はログインユーザーのプロフィールを返す。
// GET /api/profile
//
// ユーザー本体の取得が失敗した場合は全体の失敗として扱う。
// 犬一覧と利用統計は副次情報のため並行で取得し、
// どちらかが失敗してもそのフィールドだけを空にして成功応答を返す。
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeAPIError(w, model.NewUnauthenticatedError("Please login first"))
		return
	}

	res, err := h.users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if !res.OK() {
		writeFailure(w, res.StatusCode, "Failed to get profile")
		return
	}

	var user model.User
	if err := res.DecodeData(&user); err != nil {
		slog.Error("failed to decode user profile", slog.String("error", err.Error()))
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}

	dogs := []model.Dog{}
	stats := json.RawMessage("{}")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		dogsRes, err := h.users.ListDogsByOwner(r.Context(), sess.UserID)
		if err != nil || !dogsRes.OK() {
			return
		}
		var fetched []model.Dog
		if err := dogsRes.DecodeData(&fetched); err == nil {
			dogs = fetched
		}
	}()

	go func() {
		defer wg.Done()
		statsRes, err := h.users.GetUserStats(r.Context(), sess.UserID)
		if err != nil || !statsRes.OK() {
			return
		}
		var fetched json.RawMessage
		if err := statsRes.DecodeData(&fetched); err == nil {
			stats = fetched
		}
	}()

	wg.Wait()

	if dogs == nil {
		dogs = []model.Dog{}
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Success: true,
		Data: profileData{
			User:  user,
			Dogs:  dogs,
			Stats: stats,
		},
	})
}

// updatableProfileFields はPUTで上流へ転送を許可するフィールド。
// owner_idやrole等、クライアントからの書き換えを認めない項目は含めない。
var updatableProfileFields = []string{"name", "phone", "location", "bio"}

// Update はプロフィールを部分更新する。
// PUT /api/profile
//
// リクエストに存在するキーだけを上流へ転送する。欠落キーの黙示的な
// 上書きは行わない。名前が変わった場合はセッションのキャッシュ名も更新する。
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeAPIError(w, model.NewUnauthenticatedError("Please login first"))
		return
	}

	var body map[string]any
	if err := decodeJSONBody(r, &body); err != nil {
		writeAPIError(w, model.NewInvalidInputError("Invalid request body"))
		return
	}

	fields := make(map[string]any)
	for _, key := range updatableProfileFields {
		if v, ok := body[key]; ok {
			fields[key] = v
		}
	}
	if bio, ok := fields["bio"].(string); ok {
		fields["bio"] = h.sanitizer.Text(bio)
	}

	res, err := h.users.UpdateUser(r.Context(), sess.UserID, fields)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if !res.OK() {
		writeFailure(w, res.StatusCode, "Failed to update profile")
		return
	}

	var updated model.User
	if err := res.DecodeData(&updated); err != nil {
		slog.Error("failed to decode updated user", slog.String("error", err.Error()))
	}

	if updated.Name != "" && updated.Name != sess.UserName {
		sess.UserName = updated.Name
		if err := h.store.Save(r.Context(), sess); err != nil {
			// セッション名の更新失敗は応答を妨げない
			slog.Error("failed to refresh session name", slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile updated successfully",
		"user":    updated,
	})
}

// Delete はアカウントをソフトデリートし、セッションを破棄する。
// DELETE /api/profile
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeAPIError(w, model.NewUnauthenticatedError("Please login first"))
		return
	}

	res, err := h.users.DeleteUser(r.Context(), sess.UserID)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		writeFailure(w, res.StatusCode, "Failed to delete account")
		return
	}

	if err := h.store.Delete(r.Context(), sess.Token); err != nil {
		slog.Error("failed to delete session", slog.String("error", err.Error()))
	}
	clearSessionCookie(w, h.cookies)

	slog.Info("account deactivated", slog.Int64("user_id", sess.UserID))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Account deactivated successfully",
	})
}
