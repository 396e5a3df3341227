// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	uierrors "github.com/saecell/labportal/internal/app/features/errors"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/auditlog"
	"github.com/saecell/labportal/internal/app/system/auth"
	"github.com/saecell/labportal/internal/app/system/normalize"
	"github.com/saecell/labportal/internal/app/system/ratelimit"
	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
	"github.com/saecell/labportal/internal/domain/models"
)

type Handler struct {
	Members       *memberstore.Store
	ErrLog        *uierrors.ErrorLogger
	AuditLog      *auditlog.Logger
	Limiter       *ratelimit.LoginLimiter
	GoogleEnabled bool
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, googleEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{
		Members:       memberstore.New(db),
		ErrLog:        errLog,
		AuditLog:      audit,
		Limiter:       ratelimit.NewLoginLimiter(),
		GoogleEnabled: googleEnabled,
		Log:           logger,
	}
}

type loginFormData struct {
	viewdata.BaseVM
	Error         string
	Email         string
	ReturnURL     string
	GoogleEnabled bool
}

// ServeLogin handles GET /login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Sign in", "/"),
		ReturnURL:     query.Get(r, "return"),
		GoogleEnabled: h.GoogleEnabled,
	})
}

// HandleLoginPost handles POST /login: email and password sign-in for
// approved members.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse login form failed", err, "Invalid form data.", "/login")
		return
	}

	email := normalize.Email(r.FormValue("email"))
	password := r.FormValue("password")
	ret := strings.TrimSpace(r.FormValue("return"))

	if email == "" || password == "" {
		h.renderFormWithError(w, r, "Please enter your email and password.", email, ret)
		return
	}

	if ok, msg := h.Limiter.Check(r, email); !ok {
		h.AuditLog.LoginFailedRateLimit(r.Context(), r, email)
		h.renderFormWithError(w, r, msg, email, ret)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
		h.renderFormWithError(w, r, "No account found for that email.", email, ret)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "login: find member", err, "A server error occurred.", "/login")
		return
	}

	if m.AuthMethod == "google" {
		h.renderFormWithError(w, r, "This account signs in with Google. Use the Google button below.", email, ret)
		return
	}

	if m.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*m.PasswordHash), []byte(password)) != nil {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, m.ID, email)
		h.renderFormWithError(w, r, "Incorrect email or password.", email, ret)
		return
	}

	// Pending and rejected registrants cannot sign in until an admin
	// approves them.
	if !m.IsApproved() {
		h.AuditLog.LoginFailedNotApproved(ctx, r, m.ID, email, m.AccountStatus)
		h.renderFormWithError(w, r, notApprovedMessage(m.AccountStatus), email, ret)
		return
	}

	if err := auth.SignIn(w, r, sessionUserFor(m)); err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session", err, "Unable to create session. Please try again.", "/login")
		return
	}

	h.Limiter.ResetEmail(email)
	h.AuditLog.LoginSuccess(r.Context(), r, m.ID, "internal", email)

	dest := urlutil.SafeReturn(ret, "", "/register")
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, email, ret string) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Sign in", "/"),
		Error:         msg,
		Email:         email,
		ReturnURL:     ret,
		GoogleEnabled: h.GoogleEnabled,
	})
}

func notApprovedMessage(status string) string {
	if status == models.StatusRejected {
		return "Your registration was not approved. Contact a club admin for details."
	}
	return "Your registration is still awaiting admin approval."
}

func sessionUserFor(m *models.Member) *auth.SessionUser {
	saeID := ""
	if m.SAEID != nil {
		saeID = *m.SAEID
	}
	return &auth.SessionUser{
		ID:    m.ID.Hex(),
		Name:  m.FullName,
		Email: m.Email,
		Role:  m.Role,
		SAEID: saeID,
	}
}
