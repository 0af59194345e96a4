package middleware

import (
	"log"
	"net/http"
	"time"
)

// statusRecorder captures the response status and body size for the access
// log. The first WriteHeader wins; later calls are dropped, matching
// net/http semantics.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w}
}

func (sr *statusRecorder) Status() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status != 0 {
		return
	}
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Logging writes one access-log line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		log.Printf(
			"%s %s %d %dB %s",
			r.Method,
			r.URL.Path,
			rec.Status(),
			rec.bytes,
			time.Since(start),
		)
	})
}
