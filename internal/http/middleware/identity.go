package middleware

import (
	"context"
	"net"
	"net/http"

	scs "github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

const sessionClientKey = "client_id"

// ClientID resolves the rate-limit identity for a request: a stable
// per-browser token from the anonymous session when sessions are enabled,
// otherwise the remote address. This is identity, not authentication.
func ClientID(sess *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if sess != nil {
				id = sess.GetString(r.Context(), sessionClientKey)
				if id == "" {
					id = uuid.NewString()
					sess.Put(r.Context(), sessionClientKey, id)
				}
			}
			if id == "" {
				id = remoteHost(r)
			}
			ctx := context.WithValue(r.Context(), ClientIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIDFromContext returns the resolved identity, or "anonymous" when
// the middleware did not run.
func ClientIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ClientIDKey).(string); ok && id != "" {
		return id
	}
	return "anonymous"
}

// remoteHost strips the port; chi's RealIP has already rewritten
// RemoteAddr from forwarding headers where present.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
