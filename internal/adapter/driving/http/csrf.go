package httphandler

import (
	"mime"
	"net/http"
)

// crossOriginMiddleware rejects state-changing requests sent by a browser
// from another origin. The API listens on loopback, so any page the user
// visits could otherwise POST to it. Non-browser clients send neither
// Sec-Fetch-Site nor Origin and pass through.
func crossOriginMiddleware(next http.Handler) http.Handler {
	cop := http.NewCrossOriginProtection()
	cop.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusForbidden, "cross-origin request rejected")
	}))
	return cop.Handler(next)
}

// isJSONRequest reports whether the body is declared as JSON. A simple
// cross-site form post cannot set this content type without a preflight.
func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
