package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pawpal/bff/internal/upstream"
)

// --- モック定義 ---

// mockStatsUpstream はStatsUpstreamのモック実装。
type mockStatsUpstream struct {
	countUsersFn   func(ctx context.Context) (*upstream.Result, error)
	countOwnersFn  func(ctx context.Context) (*upstream.Result, error)
	countWalkersFn func(ctx context.Context) (*upstream.Result, error)
	breedStatsFn   func(ctx context.Context) (*upstream.Result, error)
	sizeStatsFn    func(ctx context.Context) (*upstream.Result, error)
}

func totalResult(total int) *upstream.Result {
	return upstream.NewResult(http.StatusOK, []byte(
		fmt.Sprintf(`{"success":true,"data":[],"total":%d}`, total),
	))
}

func (m *mockStatsUpstream) CountUsers(ctx context.Context) (*upstream.Result, error) {
	if m.countUsersFn != nil {
		return m.countUsersFn(ctx)
	}
	return totalResult(0), nil
}

func (m *mockStatsUpstream) CountOwners(ctx context.Context) (*upstream.Result, error) {
	if m.countOwnersFn != nil {
		return m.countOwnersFn(ctx)
	}
	return totalResult(0), nil
}

func (m *mockStatsUpstream) CountWalkers(ctx context.Context) (*upstream.Result, error) {
	if m.countWalkersFn != nil {
		return m.countWalkersFn(ctx)
	}
	return totalResult(0), nil
}

func (m *mockStatsUpstream) BreedStats(ctx context.Context) (*upstream.Result, error) {
	if m.breedStatsFn != nil {
		return m.breedStatsFn(ctx)
	}
	return upstream.NewResult(http.StatusOK, []byte(`{"success":true,"data":[]}`)), nil
}

func (m *mockStatsUpstream) SizeStats(ctx context.Context) (*upstream.Result, error) {
	if m.sizeStatsFn != nil {
		return m.sizeStatsFn(ctx)
	}
	return upstream.NewResult(http.StatusOK, []byte(`{"success":true,"data":[]}`)), nil
}

type statsResponse struct {
	Success bool `json:"success"`
	Stats   struct {
		TotalUsers int              `json:"totalUsers"`
		TotalDogs  int              `json:"totalDogs"`
		Owners     int              `json:"owners"`
		Walkers    int              `json:"walkers"`
		Breeds     []map[string]any `json:"breeds"`
		Sizes      []map[string]any `json:"sizes"`
	} `json:"stats"`
}

func getStats(t *testing.T, h *StatsHandler) statsResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body statsResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

// --- GET /api/stats テスト ---

func TestStatsHandler_Get_MergesAllSources(t *testing.T) {
	users := &mockStatsUpstream{
		countUsersFn:   func(ctx context.Context) (*upstream.Result, error) { return totalResult(42), nil },
		countOwnersFn:  func(ctx context.Context) (*upstream.Result, error) { return totalResult(30), nil },
		countWalkersFn: func(ctx context.Context) (*upstream.Result, error) { return totalResult(12), nil },
		breedStatsFn: func(ctx context.Context) (*upstream.Result, error) {
			return upstream.NewResult(http.StatusOK, []byte(
				`{"success":true,"data":[{"breed":"Shiba","count":5},{"breed":"Pug","count":3}]}`,
			)), nil
		},
		sizeStatsFn: func(ctx context.Context) (*upstream.Result, error) {
			return upstream.NewResult(http.StatusOK, []byte(
				`{"success":true,"data":[{"size":"small","count":8}]}`,
			)), nil
		},
	}
	h := NewStatsHandler(users)

	body := getStats(t, h)

	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.Stats.TotalUsers != 42 {
		t.Errorf("totalUsers = %d, want 42", body.Stats.TotalUsers)
	}
	if body.Stats.Owners != 30 {
		t.Errorf("owners = %d, want 30", body.Stats.Owners)
	}
	if body.Stats.Walkers != 12 {
		t.Errorf("walkers = %d, want 12", body.Stats.Walkers)
	}
	// totalDogsは犬種ヒストグラムの合計
	if body.Stats.TotalDogs != 8 {
		t.Errorf("totalDogs = %d, want 8", body.Stats.TotalDogs)
	}
	if len(body.Stats.Breeds) != 2 {
		t.Errorf("len(breeds) = %d, want 2", len(body.Stats.Breeds))
	}
	if len(body.Stats.Sizes) != 1 {
		t.Errorf("len(sizes) = %d, want 1", len(body.Stats.Sizes))
	}
}

func TestStatsHandler_Get_PerFieldDegradation(t *testing.T) {
	// 犬種統計だけが失敗した場合、そのフィールドとtotalDogsのみゼロ値に落ちる
	users := &mockStatsUpstream{
		countUsersFn:   func(ctx context.Context) (*upstream.Result, error) { return totalResult(42), nil },
		countOwnersFn:  func(ctx context.Context) (*upstream.Result, error) { return totalResult(30), nil },
		countWalkersFn: func(ctx context.Context) (*upstream.Result, error) { return totalResult(12), nil },
		breedStatsFn: func(ctx context.Context) (*upstream.Result, error) {
			return nil, fmt.Errorf("%w: timeout", upstream.ErrUnavailable)
		},
		sizeStatsFn: func(ctx context.Context) (*upstream.Result, error) {
			return upstream.NewResult(http.StatusOK, []byte(
				`{"success":true,"data":[{"size":"small","count":8}]}`,
			)), nil
		},
	}
	h := NewStatsHandler(users)

	body := getStats(t, h)

	if !body.Success {
		t.Error("success = false, want true (per-field degradation must not fail the response)")
	}
	if body.Stats.TotalUsers != 42 {
		t.Errorf("totalUsers = %d, want 42", body.Stats.TotalUsers)
	}
	if body.Stats.TotalDogs != 0 {
		t.Errorf("totalDogs = %d, want 0", body.Stats.TotalDogs)
	}
	if body.Stats.Breeds == nil || len(body.Stats.Breeds) != 0 {
		t.Errorf("breeds = %v, want empty array", body.Stats.Breeds)
	}
	if len(body.Stats.Sizes) != 1 {
		t.Errorf("len(sizes) = %d, want 1", len(body.Stats.Sizes))
	}
}

func TestStatsHandler_Get_AllSourcesDown(t *testing.T) {
	down := func(ctx context.Context) (*upstream.Result, error) {
		return nil, fmt.Errorf("%w: connection refused", upstream.ErrUnavailable)
	}
	users := &mockStatsUpstream{
		countUsersFn:   down,
		countOwnersFn:  down,
		countWalkersFn: down,
		breedStatsFn:   down,
		sizeStatsFn:    down,
	}
	h := NewStatsHandler(users)

	body := getStats(t, h)

	// 全滅でも200で全フィールドゼロ値のスナップショットを返す
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.Stats.TotalUsers != 0 || body.Stats.TotalDogs != 0 || body.Stats.Owners != 0 || body.Stats.Walkers != 0 {
		t.Errorf("counts = %+v, want all zero", body.Stats)
	}
	if body.Stats.Breeds == nil || body.Stats.Sizes == nil {
		t.Error("breeds and sizes must be empty arrays, not null")
	}
}
