package observability

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dom/authroutes/internal/logging"
	"github.com/getsentry/sentry-go"
)

// Recover turns a panic into a 500 JSON response and reports it to Sentry.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			stack := string(debug.Stack())
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetExtra("panic", fmt.Sprint(rec))
				scope.SetExtra("stack", stack)
				scope.SetTag("path", r.URL.Path)
				sentry.CaptureMessage("panic in request")
			})

			logging.From(r.Context()).Error("panic recovered",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", fmt.Sprint(rec),
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Internal server error"})
		}()

		next.ServeHTTP(w, r)
	})
}
