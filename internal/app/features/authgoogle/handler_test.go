package authgoogle

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const testSessionKey = "0123456789abcdef0123456789abcdef"

// newTestHandler builds a Handler without a database; none of these
// paths reach the member store.
func newTestHandler() *Handler {
	return &Handler{
		Log:          zap.NewNop(),
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://lab.example/auth/google/callback",
		stateCodec:   securecookie.New([]byte(testSessionKey), nil),
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	h := &Handler{Log: zap.NewNop()}

	req := httptest.NewRequest("GET", "/auth/google", nil)
	rec := httptest.NewRecorder()
	h.ServeLogin(rec, req)

	if rec.Code != 303 {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "google_not_configured") {
		t.Fatalf("redirect = %q, want google_not_configured error", loc)
	}
}

func TestServeLogin_RedirectsToGoogle(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("GET", "/auth/google", nil)
	rec := httptest.NewRecorder()
	h.ServeLogin(rec, req)

	if rec.Code != 307 {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "accounts.google.com") {
		t.Fatalf("redirect = %q, want Google consent URL", loc)
	}
	if !strings.Contains(loc, "state=") {
		t.Fatalf("redirect = %q, missing state parameter", loc)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected sealed state cookie to be set")
	}
}

func TestServeCallback_StateMismatch(t *testing.T) {
	h := newTestHandler()

	// Start a flow to get a valid sealed cookie.
	startReq := httptest.NewRequest("GET", "/auth/google", nil)
	startRec := httptest.NewRecorder()
	h.ServeLogin(startRec, startReq)

	req := httptest.NewRequest("GET", "/auth/google/callback?state=tampered&code=abc", nil)
	for _, c := range startRec.Result().Cookies() {
		if c.Name == stateCookieName {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeCallback(rec, req)

	if rec.Code != 303 {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
		t.Fatalf("redirect = %q, want invalid_state error", loc)
	}
}

func TestServeCallback_MissingStateCookie(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("GET", "/auth/google/callback?state=abc&code=def", nil)
	rec := httptest.NewRecorder()
	h.ServeCallback(rec, req)

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
		t.Fatalf("redirect = %q, want invalid_state error", loc)
	}
}
