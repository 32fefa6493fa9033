package middleware

import (
	"net/http"
	"strings"
)

// ContentType rejects non-JSON bodies on mutating requests. Body-less POSTs
// (pomodoro controls, notification dismissal by key) pass through untouched.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut:
			if r.ContentLength == 0 {
				break
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				http.Error(w, "Content-Type header is required", http.StatusBadRequest)
				return
			}
			// Accept charset suffixes like application/json; charset=utf-8.
			if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
