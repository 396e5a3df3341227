// internal/app/features/signup/handler.go
package signup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	uierrors "github.com/saecell/labportal/internal/app/features/errors"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/auditlog"
	"github.com/saecell/labportal/internal/app/system/htmlsanitize"
	"github.com/saecell/labportal/internal/app/system/normalize"
	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
	"github.com/saecell/labportal/internal/domain/models"
	"github.com/saecell/labportal/internal/domain/saeid"
)

const minPasswordLen = 8

type Handler struct {
	Members  *memberstore.Store
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Members:  memberstore.New(db),
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
	}
}

type signupFormData struct {
	viewdata.BaseVM
	Error    string
	Faculty  bool
	Branches []string
	Years    []string
	Form     formValues
}

type formValues struct {
	FullName      string
	Email         string
	Phone         string
	Branch        string
	JoinYear      string
	Semester      string
	Team          string
	BloodGroup    string
	GuardianPhone string
}

type successPageData struct {
	viewdata.BaseVM
	FullName string
	Faculty  bool
}

// joinYearOptions lists the selectable four-digit join years, newest
// first.
func joinYearOptions() []string {
	year := time.Now().Year()
	out := make([]string, 0, 6)
	for y := year; y > year-6; y-- {
		out = append(out, strconv.Itoa(y))
	}
	return out
}

// ServeStudentForm handles GET /signup.
func (h *Handler) ServeStudentForm(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "signup", signupFormData{
		BaseVM:   viewdata.NewBaseVM(r, "Join the club", "/"),
		Branches: saeid.Branches,
		Years:    joinYearOptions(),
	})
}

// ServeFacultyForm handles GET /signup/faculty.
func (h *Handler) ServeFacultyForm(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "signup", signupFormData{
		BaseVM:  viewdata.NewBaseVM(r, "Faculty registration", "/"),
		Faculty: true,
	})
}

// HandleStudentPost handles POST /signup.
func (h *Handler) HandleStudentPost(w http.ResponseWriter, r *http.Request) {
	h.handlePost(w, r, false)
}

// HandleFacultyPost handles POST /signup/faculty.
func (h *Handler) HandleFacultyPost(w http.ResponseWriter, r *http.Request) {
	h.handlePost(w, r, true)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request, faculty bool) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse signup form failed", err, "Invalid form data.", "/signup")
		return
	}

	form := formValues{
		FullName:      htmlsanitize.StripTags(r.FormValue("full_name")),
		Email:         normalize.Email(r.FormValue("email")),
		Phone:         r.FormValue("phone"),
		Branch:        normalize.Branch(r.FormValue("branch")),
		JoinYear:      strings.TrimSpace(r.FormValue("join_year")),
		Semester:      htmlsanitize.StripTags(r.FormValue("semester")),
		Team:          htmlsanitize.StripTags(r.FormValue("team")),
		BloodGroup:    htmlsanitize.StripTags(r.FormValue("blood_group")),
		GuardianPhone: r.FormValue("guardian_phone"),
	}
	password := r.FormValue("password")

	if msg := h.validateForm(form, password, faculty); msg != "" {
		h.renderFormWithError(w, r, msg, form, faculty)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "signup: hash password", err, "A server error occurred.", "/signup")
		return
	}
	hashStr := string(hash)

	m := models.Member{
		FullName:      form.FullName,
		Email:         form.Email,
		Phone:         form.Phone,
		Branch:        form.Branch,
		Semester:      form.Semester,
		Team:          form.Team,
		BloodGroup:    form.BloodGroup,
		GuardianPhone: form.GuardianPhone,
		Role:          "member",
		AuthMethod:    "internal",
		PasswordHash:  &hashStr,
	}
	if faculty {
		// Faculty register with an admin role and no join year; the
		// branch field holds their department.
		m.Role = "admin"
		m.DisplayTitle = "Faculty"
		m.GuardianPhone = ""
	} else {
		yy := form.JoinYear[len(form.JoinYear)-2:]
		m.JoinYear = &yy
		m.JoinYearFull = &form.JoinYear
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Members.Create(ctx, m)
	switch {
	case errors.Is(err, memberstore.ErrDuplicateEmail):
		h.renderFormWithError(w, r, "An account with that email already exists.", form, faculty)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "signup: create member", err, "A server error occurred. Please try again.", "/signup")
		return
	}

	h.AuditLog.SignupSubmitted(ctx, r, created.ID, created.Email, created.Branch)

	templates.Render(w, r, "signup_success", successPageData{
		BaseVM:   viewdata.NewBaseVM(r, "Registration submitted", "/"),
		FullName: created.FullName,
		Faculty:  faculty,
	})
}

func (h *Handler) validateForm(form formValues, password string, faculty bool) string {
	if form.FullName == "" {
		return "Please enter your full name."
	}
	if !validate.SimpleEmailValid(form.Email) {
		return "Please enter a valid email address."
	}
	if len(password) < minPasswordLen {
		return fmt.Sprintf("Password must be at least %d characters.", minPasswordLen)
	}
	if faculty {
		if form.Branch == "" {
			return "Please enter your department."
		}
		return ""
	}
	if !saeid.IsValidBranch(form.Branch) {
		return "Please choose your branch."
	}
	if len(form.JoinYear) != 4 {
		return "Please choose your year of joining."
	}
	if _, err := strconv.Atoi(form.JoinYear); err != nil {
		return "Please choose your year of joining."
	}
	return ""
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg string, form formValues, faculty bool) {
	title := "Join the club"
	if faculty {
		title = "Faculty registration"
	}
	templates.Render(w, r, "signup", signupFormData{
		BaseVM:   viewdata.NewBaseVM(r, title, "/"),
		Error:    msg,
		Faculty:  faculty,
		Branches: saeid.Branches,
		Years:    joinYearOptions(),
		Form:     form,
	})
}
