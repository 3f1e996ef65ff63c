package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pawpal/bff/internal/middleware"
	"github.com/pawpal/bff/internal/model"
	"github.com/pawpal/bff/internal/upstream"
)

// PetUpstream はペットハンドラーが必要とする上流操作のインターフェース。
type PetUpstream interface {
	ListDogsByOwner(ctx context.Context, ownerID int64) (*upstream.Result, error)
	CreateDog(ctx context.Context, dog upstream.NewDog) (*upstream.Result, error)
	UpdateDog(ctx context.Context, id int64, fields map[string]any) (*upstream.Result, error)
	DeleteDog(ctx context.Context, id int64) (*upstream.Result, error)
}

// PetHandler はペット管理のHTTPハンドラー。
type PetHandler struct {
	dogs PetUpstream
}

// NewPetHandler はPetHandlerを生成する。
func NewPetHandler(dogs PetUpstream) *PetHandler {
	return &PetHandler{dogs: dogs}
}

// List はログインユーザーのペット一覧を返す。
// GET /api/pets
//
// 未認証は401ではなく空リストを返す。未ログインでの閲覧を機能させるための
// 意図的なソフトデグレードであり、上流障害時も同様に空リストへ落とす。
func (h *PetHandler) List(w http.ResponseWriter, r *http.Request) {
	empty := map[string]any{"pets": []model.PetView{}}

	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	res, err := h.dogs.ListDogsByOwner(r.Context(), sess.UserID)
	if err != nil || !res.OK() {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	var dogs []model.Dog
	if err := res.DecodeData(&dogs); err != nil {
		slog.Error("failed to decode dog list", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, empty)
		return
	}

	pets := make([]model.PetView, 0, len(dogs))
	for _, d := range dogs {
		pets = append(pets, model.PetViewFromDog(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{"pets": pets})
}

// createPetRequest はペット登録リクエストのボディ。
// ageYearsは数値・数値文字列の両方を受け付けるためRawMessageで受ける。
type createPetRequest struct {
	Name         string          `json:"name"`
	Breed        string          `json:"breed"`
	AgeYears     json.RawMessage `json:"ageYears"`
	Size         string          `json:"size"`
	Temperament  string          `json:"temperament"`
	EnergyLevel  string          `json:"energy_level"`
	SpecialNeeds string          `json:"special_needs"`
}

// Create は新しいペットを登録する。
// POST /api/pets
//
// owner_idは常にセッションから導出し、クライアント指定値は信用しない。
func (h *PetHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeAPIError(w, model.NewUnauthenticatedError("Please login first"))
		return
	}

	var req createPetRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeAPIError(w, model.NewInvalidInputError("Invalid request body"))
		return
	}

	slog.Info("adding new pet",
		slog.String("name", req.Name),
		slog.Int64("owner_id", sess.UserID),
	)

	dog := upstream.NewDog{
		OwnerID:                 sess.UserID,
		Name:                    req.Name,
		Breed:                   defaultString(req.Breed, "Mixed"),
		Age:                     flexAge(req.AgeYears),
		Size:                    defaultString(req.Size, "medium"),
		Temperament:             defaultString(req.Temperament, "Friendly"),
		EnergyLevel:             defaultString(req.EnergyLevel, "medium"),
		IsFriendlyWithOtherDogs: true,
		IsFriendlyWithChildren:  true,
		SpecialNeeds:            strings.TrimSpace(req.SpecialNeeds),
	}

	res, err := h.dogs.CreateDog(r.Context(), dog)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if !res.OK() {
		writeFailure(w, res.StatusCode, res.Message("Failed to add pet"))
		return
	}

	var created json.RawMessage
	if err := res.DecodeData(&created); err != nil {
		// dataフィールドを持たない上流にはボディ全体で代替する
		created = json.RawMessage(res.RawBody)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Pet added successfully",
		"data":    created,
	})
}

// Update は指定IDのペットを更新する。
// PUT /api/pets/{id}
//
// ペットの所有者検証は上流サービスに委ねる。
func (h *PetHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeAPIError(w, model.NewUnauthenticatedError("Please login first"))
		return
	}

	petID, ok := petIDFromRequest(r)
	if !ok {
		writeAPIError(w, model.NewNotFoundError("Pet not found"))
		return
	}

	var fields map[string]any
	if err := decodeJSONBody(r, &fields); err != nil {
		writeAPIError(w, model.NewInvalidInputError("Invalid request body"))
		return
	}
	// owner_idの付け替えは認めない
	delete(fields, "owner_id")

	res, err := h.dogs.UpdateDog(r.Context(), petID, fields)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if !res.OK() {
		writeFailure(w, res.StatusCode, "Failed to update pet")
		return
	}

	var updated json.RawMessage
	if err := res.DecodeData(&updated); err != nil {
		updated = json.RawMessage("{}")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Pet updated successfully",
		"data":    updated,
	})
}

// Delete は指定IDのペットを削除する。
// DELETE /api/pets/{id}
func (h *PetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeAPIError(w, model.NewUnauthenticatedError("Please login first"))
		return
	}

	petID, ok := petIDFromRequest(r)
	if !ok {
		writeAPIError(w, model.NewNotFoundError("Pet not found"))
		return
	}

	res, err := h.dogs.DeleteDog(r.Context(), petID)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		writeFailure(w, res.StatusCode, "Failed to delete pet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Pet deleted successfully",
	})
}

// petIDFromRequest はパスパラメータのペットIDを解析する。
// 整数でないIDはルート不一致として扱う。
func petIDFromRequest(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// defaultString は空文字列（空白のみを含む）をフォールバック値へ置き換える。
func defaultString(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}

// flexAge は数値または数値文字列の年齢を非負整数へ解析する。
// 欠落・解析不能・負値はすべて0に落とす。
func flexAge(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return 0
		}
		return int(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || v < 0 {
			return 0
		}
		return v
	}

	return 0
}
