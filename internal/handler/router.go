package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/thriftease/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 認証・ユーザー
	Authenticator Authenticator
	UserService   UserServiceInterface

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	HTTPMetrics    middleware.HTTPMetricsRecorder
	Logger         *slog.Logger

	// ミドルウェア設定
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig
	CORSAllowedOrigin string
	HSTS              bool
	TrustProxyHeaders bool
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP(任意) → Logging → Metrics → Recovery → SecurityHeaders → CSRF → RateLimit(POST /login, /register) → RequireUser(保護ページ)
//
// /health と /metrics はCSRFの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	if deps.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))

	authHandler := NewAuthHandler(deps.Authenticator)
	userHandler := NewUserHandler(deps.UserService, deps.Authenticator)
	pageHandler := NewPageHandler(deps.Authenticator)
	limit := deps.RateLimiter.Middleware()

	// --- 運用エンドポイント ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		// --- 認証不要のルート ---
		r.Get("/", pageHandler.Home)

		r.Get("/login", authHandler.LoginPage)
		r.With(limit).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Get("/register", userHandler.RegisterPage)
		r.With(limit).Post("/register", userHandler.Register)

		// OAuthフロー
		r.Route("/auth/google", func(r chi.Router) {
			r.Get("/", authHandler.GoogleBegin)
			r.Post("/", authHandler.GoogleBegin)
			r.Get("/callback", authHandler.GoogleCallback)
		})

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
			r.Get("/session", authHandler.SessionStatus)
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler())
		})

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireUserMiddleware(deps.Authenticator, loginPath))

			r.Get("/protected", pageHandler.Protected)
			r.Get("/user", userHandler.List)
			r.Get("/user/new", userHandler.NewPage)
			r.Post("/user/new", userHandler.Create)
		})
	})

	return r
}
