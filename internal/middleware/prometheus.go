package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/challenge-tracker/internal/metrics"
)

// Metrics records request count, latency and in-flight requests.
//
// The route label is chi's route pattern ("/leaderboard"), read after the
// handler ran, so path parameters and junk URLs do not explode the label
// cardinality. Unmatched requests are labelled "unmatched".
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	})
}
