package serve

import (
	"net/http"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
)

// serveMetrics serves the prometheus metrics of the process on endpoint until the process exits
func serveMetrics(endpoint string) {
	mux := http.NewServeMux()

	if serveCmdConfig.LogLevel == "debug" {
		mux.HandleFunc("GET /metrics", loggerMiddleware(handleMetrics))
	} else {
		mux.HandleFunc("GET /metrics", handleMetrics)
	}

	Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
	if err := http.ListenAndServe(endpoint, mux); err != nil {
		Logger.Errorf("Metrics endpoint stopped: %v", err)
	}
}

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	common.WriteMetrics(w, true)
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		Logger.Debugf("%s %s %d %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
