package opaqueid

import (
	"net/http"
	"regexp"
)

// Header is the header Elasticsearch and OpenSearch use to tag a request in
// slow logs, tasks and deprecation warnings. Servers echo it back.
const Header = "X-Opaque-Id"

const maxIDLength = 128

var validID = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// IsValid reports whether id can be sent as a header value.
func IsValid(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return validID.MatchString(id)
}

// Set writes id into h when it is valid and reports whether it did.
func Set(h http.Header, id string) bool {
	if !IsValid(id) {
		return false
	}
	h.Set(Header, id)
	return true
}

// Middleware echoes a valid X-Opaque-Id request header in the response and
// stores it in the request context, the way a search cluster node does.
// Requests without the header pass through untouched.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !IsValid(id) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}
