package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pawpal/bff/internal/upstream"
)

// DependencyProber は依存サービスのヘルスプローブインターフェース。
// upstream.Clientがこれを満たす。
type DependencyProber interface {
	Health(ctx context.Context, timeout time.Duration) (*upstream.Result, error)
	BaseURL() string
}

// DependencyProbe はヘルスチェック対象の1依存サービス。
type DependencyProbe struct {
	// Name は応答のdependenciesマップのキー（例: "user_service"）。
	Name string
	// Prober はヘルスエンドポイントへの問い合わせ先。
	Prober DependencyProber
	// Timeout はこの依存へのプローブタイムアウト。
	Timeout time.Duration
}

// dependencyStatus は依存サービス1件分のヘルス状態。
type dependencyStatus struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	serviceName string
	environment string
	probes      []DependencyProbe

	// now はテストから時刻を固定するために差し替え可能にしてある。
	now func() time.Time
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(serviceName, environment string, probes []DependencyProbe) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		environment: environment,
		probes:      probes,
		now:         time.Now,
	}
}

// Get は依存サービスのヘルス状態を返す。
// GET /api/health
//
// 各依存を並行にプローブし、依存の状態にかかわらず自身は常に200を返す。
// 依存ごとの状態はhealthy（200応答）、unhealthy（非200応答）、
// unavailable（到達不能）の3値で表す。
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	dependencies := make(map[string]dependencyStatus, len(h.probes))

	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(len(h.probes))

	for _, probe := range h.probes {
		go func(p DependencyProbe) {
			defer wg.Done()

			status := dependencyStatus{URL: p.Prober.BaseURL()}

			res, err := p.Prober.Health(r.Context(), p.Timeout)
			switch {
			case err != nil:
				status.Status = "unavailable"
				status.Error = err.Error()
			case res.OK():
				status.Status = "healthy"
			default:
				status.Status = "unhealthy"
			}

			mu.Lock()
			dependencies[p.Name] = status
			mu.Unlock()
		}(probe)
	}

	wg.Wait()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"timestamp":    h.now().Format(time.RFC3339),
		"service":      h.serviceName,
		"environment":  h.environment,
		"dependencies": dependencies,
	})
}
