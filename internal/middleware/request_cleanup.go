package middleware

import (
	"io"
	"net/http"
)

// maxDrainBytes caps what is read from an unconsumed body. Bodies here are
// small JSON payloads, anything larger is closed without reading it.
const maxDrainBytes = 64 << 10

// DrainAndCloseRequest drains what the handler left of the request body so
// the connection can be reused, then closes the body.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil || r.Body == http.NoBody {
				return
			}
			_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
			_ = r.Body.Close()
		})
	}
}
