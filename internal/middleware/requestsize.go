package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize caps request bodies at 1 MiB. The largest legitimate
// payload is a note body, which sits well under this.
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize rejects oversized bodies. Declared lengths are checked up
// front; chunked uploads are cut off by MaxBytesReader mid-read.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
