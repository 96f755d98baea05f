package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

const panicPage = `<!DOCTYPE html><html lang="pt-BR"><head><meta charset="utf-8"><title>Algo deu errado | Ignite Call</title></head>` +
	`<body><h1>Algo deu errado</h1><p>Aguarde alguns instantes e tente novamente.</p></body></html>`

// NewRecoveryMiddleware はpanicを500レスポンスに変換するミドルウェアを返す。
// ブラウザのページ遷移にはHTML、APIにはJSONのエラーを返す。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				}
				if entry, ok := r.Context().Value(requestLogContextKey).(*requestLog); ok && entry.userID != "" {
					attrs = append(attrs, slog.String("user_id", entry.userID))
				}
				slog.Error("panic recovered", attrs...)

				if wantsHTML(r) {
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(panicPage))
					return
				}
				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wantsHTML はブラウザのページ遷移かどうかをAcceptヘッダーで判定する。
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
