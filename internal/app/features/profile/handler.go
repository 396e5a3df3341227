// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	uierrors "github.com/saecell/labportal/internal/app/features/errors"
	attendancestore "github.com/saecell/labportal/internal/app/store/attendance"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/authz"
	"github.com/saecell/labportal/internal/app/system/htmlsanitize"
	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
	"github.com/saecell/labportal/internal/domain/models"
)

const historyLimit = 30

type Handler struct {
	Members    *memberstore.Store
	Attendance *attendancestore.Store
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Members:    memberstore.New(db),
		Attendance: attendancestore.New(db),
		ErrLog:     errLog,
		Log:        logger,
	}
}

type profilePageData struct {
	viewdata.BaseVM
	Member     *models.Member
	History    []models.AttendanceRecord
	HistoryDay string
	Notice     string
}

type editPageData struct {
	viewdata.BaseVM
	Member *models.Member
	Error  string
}

// ServeProfile handles GET /profile: the member's own details plus
// their recent lab visits.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/profile", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Members.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "profile: load member", err, "Could not load your profile.", "/")
		return
	}

	// An explicit ?date= narrows the history to one day; otherwise the
	// most recent visits are shown.
	var history []models.AttendanceRecord
	day := r.URL.Query().Get("date")
	if _, perr := time.Parse("2006-01-02", day); perr != nil {
		day = ""
	}
	if day != "" {
		history, err = h.Attendance.ListByMemberDay(ctx, uid, day)
	} else {
		history, err = h.Attendance.ListByMember(ctx, uid, historyLimit)
	}
	if err != nil {
		h.Log.Warn("profile: load attendance history failed", zap.Error(err))
	}

	templates.Render(w, r, "profile", profilePageData{
		BaseVM:     viewdata.NewBaseVM(r, "My Profile", "/"),
		Member:     m,
		History:    history,
		HistoryDay: day,
		Notice:     noticeFor(r.URL.Query().Get("saved")),
	})
}

func noticeFor(saved string) string {
	if saved == "1" {
		return "Profile updated."
	}
	return ""
}

// ServeEdit handles GET /profile/edit.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/profile", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "profile: load member for edit", err, "Could not load your profile.", "/profile")
		return
	}

	templates.Render(w, r, "profile_edit", editPageData{
		BaseVM: viewdata.NewBaseVM(r, "Edit Profile", "/profile"),
		Member: m,
	})
}

// HandleEditPost handles POST /profile/edit. Email, branch, role and
// the issued ID are not editable here.
func (h *Handler) HandleEditPost(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/profile", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse profile form failed", err, "Invalid form data.", "/profile")
		return
	}

	upd := memberstore.ProfileUpdate{
		FullName:      htmlsanitize.StripTags(r.FormValue("full_name")),
		Phone:         r.FormValue("phone"),
		Semester:      htmlsanitize.StripTags(r.FormValue("semester")),
		Team:          htmlsanitize.StripTags(r.FormValue("team")),
		BloodGroup:    htmlsanitize.StripTags(r.FormValue("blood_group")),
		GuardianPhone: r.FormValue("guardian_phone"),
		PhotoURL:      r.FormValue("photo_url"),
	}
	if upd.FullName == "" {
		h.renderEditWithError(w, r, "Please enter your full name.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Members.UpdateProfile(ctx, uid, upd); err != nil {
		h.ErrLog.LogServerError(w, r, "profile: update", err, "Could not save your profile.", "/profile/edit")
		return
	}

	http.Redirect(w, r, "/profile?saved=1", http.StatusSeeOther)
}

func (h *Handler) renderEditWithError(w http.ResponseWriter, r *http.Request, msg string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, _, id, _ := authz.UserCtx(r)
	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "profile: reload member", err, "Could not load your profile.", "/profile")
		return
	}
	templates.Render(w, r, "profile_edit", editPageData{
		BaseVM: viewdata.NewBaseVM(r, "Edit Profile", "/profile"),
		Member: m,
		Error:  msg,
	})
}
