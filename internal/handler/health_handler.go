package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// HealthChecker はデータベースの疎通を確認する。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckerFunc は関数をHealthCheckerとして扱うアダプタ。
type HealthCheckerFunc func(ctx context.Context) error

// Ping はf(ctx)を呼ぶ。
func (f HealthCheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// NewHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// GET /health
// DBに到達できれば200、できなければ503を返す。
func NewHealthHandler(checker HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok", "database": "ok"}

		if err := checker.Ping(r.Context()); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			status = http.StatusServiceUnavailable
			body = map[string]string{"status": "unavailable", "database": "unreachable"}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})
}
