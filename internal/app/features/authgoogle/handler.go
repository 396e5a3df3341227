// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/auditlog"
	"github.com/saecell/labportal/internal/app/system/auth"
	"github.com/saecell/labportal/internal/app/system/timeouts"
)

const stateCookieName = "labportal-oauth-state"

// Handler handles Google OAuth sign-in for existing members.
type Handler struct {
	Members  *memberstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string

	// stateCodec seals the state cookie so the callback can verify the
	// flow started here.
	stateCodec *securecookie.SecureCookie
}

// NewHandler creates a new Google OAuth handler. sessionKey is reused
// to seal the short-lived state cookie.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, clientID, clientSecret, baseURL, sessionKey string, logger *zap.Logger) *Handler {
	return &Handler{
		Members:      memberstore.New(db),
		AuditLog:     audit,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		stateCodec:   securecookie.New([]byte(sessionKey), nil),
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

type statePayload struct {
	State     string `json:"state"`
	ReturnURL string `json:"return"`
}

// ServeLogin handles GET /auth/google and redirects to Google's
// consent screen.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("google oauth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("generate oauth state failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	payload := statePayload{State: state, ReturnURL: query.Get(r, "return")}
	sealed, err := h.stateCodec.Encode(stateCookieName, payload)
	if err != nil {
		h.Log.Error("seal oauth state failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    sealed,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth2Config().AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("google oauth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	payload, ok := h.readStateCookie(w, r)
	if !ok {
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}
	if state := r.URL.Query().Get("state"); state == "" || state != payload.State {
		h.Log.Warn("oauth state mismatch")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("oauth code exchange failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	googleUser, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("fetch google user info failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=user_info", http.StatusSeeOther)
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByEmail(lookupCtx, googleUser.Email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		// Google sign-in never creates accounts; registration goes
		// through /signup.
		h.AuditLog.LoginFailedUserNotFound(ctx, r, googleUser.Email)
		http.Redirect(w, r, "/login?error=no_account", http.StatusSeeOther)
		return
	case err != nil:
		h.Log.Error("google oauth: member lookup failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	if !m.IsApproved() {
		h.AuditLog.LoginFailedNotApproved(ctx, r, m.ID, m.Email, m.AccountStatus)
		http.Redirect(w, r, "/login?error=not_approved", http.StatusSeeOther)
		return
	}

	saeID := ""
	if m.SAEID != nil {
		saeID = *m.SAEID
	}
	u := &auth.SessionUser{
		ID:    m.ID.Hex(),
		Name:  m.FullName,
		Email: m.Email,
		Role:  m.Role,
		SAEID: saeID,
	}
	if err := auth.SignIn(w, r, u); err != nil {
		h.Log.Error("google oauth: save session failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, m.ID, "google", m.Email)

	dest := urlutil.SafeReturn(payload.ReturnURL, "", "/register")
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (h *Handler) readStateCookie(w http.ResponseWriter, r *http.Request) (statePayload, bool) {
	var payload statePayload

	c, err := r.Cookie(stateCookieName)
	if err != nil {
		h.Log.Warn("oauth state cookie missing")
		return payload, false
	}
	// One-shot cookie; clear it regardless of outcome.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Path:   "/auth/google",
		MaxAge: -1,
	})

	if err := h.stateCodec.Decode(stateCookieName, c.Value, &payload); err != nil {
		h.Log.Warn("oauth state cookie invalid", zap.Error(err))
		return payload, false
	}
	return payload, true
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
