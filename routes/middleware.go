package routes

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"clipstitch/logger"
)

// requestLogger emits one structured event per request once the
// response is written.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		l := logger.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", chimw.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Logger()
		l.Info().
			Msg("request")
	})
}
