package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/pawpal/bff/internal/model"
	"github.com/pawpal/bff/internal/upstream"
)

// StatsUpstream は統計ハンドラーが必要とする上流操作のインターフェース。
type StatsUpstream interface {
	CountUsers(ctx context.Context) (*upstream.Result, error)
	CountOwners(ctx context.Context) (*upstream.Result, error)
	CountWalkers(ctx context.Context) (*upstream.Result, error)
	BreedStats(ctx context.Context) (*upstream.Result, error)
	SizeStats(ctx context.Context) (*upstream.Result, error)
}

// StatsHandler はトップページ向け統計のHTTPハンドラー。
type StatsHandler struct {
	users StatsUpstream
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(users StatsUpstream) *StatsHandler {
	return &StatsHandler{users: users}
}

// Get は統計スナップショットを返す。
// GET /api/stats
//
// 5つの独立した上流呼び出しを並行して発行し、1つのスナップショットへ
// マージする。失敗した呼び出しは対応するフィールドだけをゼロ値に落とし、
// 応答全体は常に200で返す。totalDogsは犬種ヒストグラムの合計から導出する。
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot := model.StatsSnapshot{
		Breeds: []model.BreedStat{},
		Sizes:  []model.SizeStat{},
	}

	ctx := r.Context()

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		if res, err := h.users.CountUsers(ctx); err == nil && res.OK() {
			snapshot.TotalUsers = res.Total()
		}
	}()

	go func() {
		defer wg.Done()
		res, err := h.users.BreedStats(ctx)
		if err != nil || !res.OK() {
			return
		}
		var breeds []model.BreedStat
		if err := res.DecodeData(&breeds); err != nil || breeds == nil {
			return
		}
		total := 0
		for _, b := range breeds {
			total += b.Count
		}
		snapshot.Breeds = breeds
		snapshot.TotalDogs = total
	}()

	go func() {
		defer wg.Done()
		res, err := h.users.SizeStats(ctx)
		if err != nil || !res.OK() {
			return
		}
		var sizes []model.SizeStat
		if err := res.DecodeData(&sizes); err == nil && sizes != nil {
			snapshot.Sizes = sizes
		}
	}()

	go func() {
		defer wg.Done()
		if res, err := h.users.CountOwners(ctx); err == nil && res.OK() {
			snapshot.Owners = res.Total()
		}
	}()

	go func() {
		defer wg.Done()
		if res, err := h.users.CountWalkers(ctx); err == nil && res.OK() {
			snapshot.Walkers = res.Total()
		}
	}()

	wg.Wait()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   snapshot,
	})
}
