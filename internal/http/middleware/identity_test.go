package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	scs "github.com/alexedwards/scs/v2"
)

func TestClientIDFallsBackToRemoteAddr(t *testing.T) {
	var got string
	h := ClientID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "203.0.113.7" {
		t.Errorf("client id = %q, want the remote host", got)
	}
}

func TestClientIDUsesSessionWhenEnabled(t *testing.T) {
	sess := scs.New()
	var first, second string

	h := sess.LoadAndSave(ClientID(sess)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ClientIDFromContext(r.Context())
		if first == "" {
			first = id
		} else {
			second = id
		}
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:1"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// replay the session cookie; the identity must be stable
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "198.51.100.9:2" // address change must not matter
	for _, c := range rec.Result().Cookies() {
		req2.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req2)

	if first == "" || first != second {
		t.Errorf("session identity not stable: first=%q second=%q", first, second)
	}
	if first == "203.0.113.7" {
		t.Error("session-enabled identity fell back to the remote host")
	}
}

func TestClientIDFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := ClientIDFromContext(req.Context()); got != "anonymous" {
		t.Errorf("default = %q, want anonymous", got)
	}
}
