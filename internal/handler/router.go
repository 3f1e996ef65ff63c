package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pawpal/bff/internal/middleware"
	"github.com/pawpal/bff/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionStore      session.Store
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// 認証・プロフィール
	AuthUpstream    AuthUpstream
	ProfileUpstream ProfileUpstream
	Sanitizer       TextSanitizer
	Cookies         CookieConfig

	// ペット・統計・ウォーカー
	PetUpstream    PetUpstream
	StatsUpstream  StatsUpstream
	WalkerUpstream WalkerUpstream

	// ヘルスチェック
	ServiceName  string
	Environment  string
	HealthProbes []DependencyProbe

	// サービス情報
	UserServiceURL      string
	CompositeServiceURL string

	// /metrics エンドポイント（nilの場合は公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → CSRF → Logging → SessionLoader → RateLimit(General)
//
// /metrics はAPI向けミドルウェアチェーン（CSRF・レート制限）の外に配置する。
// サインアップにはAPI全般とは独立のレート制限バケットを追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通ミドルウェア
	// CORSはOPTIONSプリフライトへルート照合の前に応答する必要があるため、
	// グループ内ではなく最上位に適用する
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthUpstream, deps.SessionStore, deps.Sanitizer, deps.Cookies)
	profileHandler := NewProfileHandler(deps.ProfileUpstream, deps.SessionStore, deps.Sanitizer, deps.Cookies)
	petHandler := NewPetHandler(deps.PetUpstream)
	statsHandler := NewStatsHandler(deps.StatsUpstream)
	walkerHandler := NewWalkerHandler(deps.WalkerUpstream)
	healthHandler := NewHealthHandler(deps.ServiceName, deps.Environment, deps.HealthProbes)
	serviceInfoHandler := NewServiceInfoHandler(deps.UserServiceURL, deps.CompositeServiceURL)

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))
		r.Use(middleware.NewSessionLoaderMiddleware(deps.SessionStore))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api", func(r chi.Router) {
			// 認証
			r.Post("/login", authHandler.Login)
			// POST /api/signup - サインアップ専用レート制限を追加
			r.With(deps.RateLimiter.SignupMiddleware()).Post("/signup", authHandler.Signup)
			r.Post("/logout", authHandler.Logout)
			r.Get("/current-user", authHandler.CurrentUser)
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

			// プロフィール
			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Put("/", profileHandler.Update)
				r.Delete("/", profileHandler.Delete)
			})

			// ペット管理
			r.Route("/pets", func(r chi.Router) {
				r.Get("/", petHandler.List)
				r.Post("/", petHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", petHandler.Update)
					r.Delete("/", petHandler.Delete)
				})
			})

			// 統計とウォーカー検索
			r.Get("/stats", statsHandler.Get)
			r.Get("/walkers", walkerHandler.List)

			// 運用系
			r.Get("/health", healthHandler.Get)
			r.Get("/service-info", serviceInfoHandler.Get)
		})
	})

	return r
}

// NewHealthProbe はDependencyProbeを組み立てる小さなヘルパー。
func NewHealthProbe(name string, prober DependencyProber, timeout time.Duration) DependencyProbe {
	return DependencyProbe{Name: name, Prober: prober, Timeout: timeout}
}
