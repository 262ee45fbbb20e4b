package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per request; 5xx responses are logged at warn level
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		var evt *zerolog.Event
		if status >= http.StatusInternalServerError {
			evt = log.Warn()
		} else {
			evt = log.Debug()
		}
		evt.Str("request_id", chimw.GetReqID(r.Context())).
			Dur("latency", time.Since(start)).
			Str("remote_ip", r.RemoteAddr).
			Str("method", r.Method).
			Str("uri", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Msg("request")
	})
}
