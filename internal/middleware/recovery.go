package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/scanpay/scanpay-api/internal/handler"
	"github.com/scanpay/scanpay-api/internal/logging"
)

// Recovery is the outermost middleware, so the request id is read back from
// the response header Tracing set rather than from the context.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logging.FromContext(r.Context()).Error("panic recovered",
				"error", rec,
				"request_id", w.Header().Get(RequestIDHeader),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			handler.RespondAppError(w, handler.ErrInternalError, nil)
		}()
		next.ServeHTTP(w, r)
	})
}
