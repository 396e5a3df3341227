// internal/app/features/checkin/handler.go
package checkin

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	uierrors "github.com/saecell/labportal/internal/app/features/errors"
	"github.com/saecell/labportal/internal/app/register"
	attendancestore "github.com/saecell/labportal/internal/app/store/attendance"
	labstatusstore "github.com/saecell/labportal/internal/app/store/labstatus"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/auditlog"
	"github.com/saecell/labportal/internal/app/system/authz"
	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
)

// Handler serves the lab register: the page members use to check in
// and out, and the closure confirmation that follows the last
// check-out.
type Handler struct {
	Register *register.Service
	Members  *memberstore.Store
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(client *mongo.Client, db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	members := memberstore.New(db)
	return &Handler{
		Register: register.NewService(client, members, attendancestore.New(db), labstatusstore.New(db), logger),
		Members:  members,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
	}
}

type registerPageData struct {
	viewdata.BaseVM
	Error   string
	Notice  string
	Warning string

	IsLabOpen   bool
	Occupancy   int
	IsCheckedIn bool
	Present     []presentRow

	// AskClosure is set right after the viewer's departure emptied the
	// lab; the page then shows the close-the-lab prompt.
	AskClosure bool
}

type presentRow struct {
	Name  string
	SAEID string
}

// ServeRegister handles GET /register.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/register", http.StatusSeeOther)
		return
	}
	h.renderRegister(w, r, uid, pageFlash{})
}

type pageFlash struct {
	Error      string
	Notice     string
	Warning    string
	AskClosure bool
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, uid primitive.ObjectID, flash pageFlash) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := registerPageData{
		BaseVM:     viewdata.NewBaseVM(r, "Lab Register", "/"),
		Error:      flash.Error,
		Notice:     flash.Notice,
		Warning:    flash.Warning,
		AskClosure: flash.AskClosure,
	}

	status, err := h.Register.Status(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: load lab status", err, "Could not load the lab register.", "/")
		return
	}
	data.IsLabOpen = status.IsLabOpen
	data.Occupancy = status.Occupancy()

	if m, err := h.Members.GetByID(ctx, uid); err == nil {
		data.IsCheckedIn = m.IsCheckedIn
	}

	present, err := h.Register.PresentMembers(ctx)
	if err != nil {
		h.Log.Warn("register: resolve present members failed", zap.Error(err))
	}
	for _, m := range present {
		row := presentRow{Name: m.FullName}
		if m.SAEID != nil {
			row.SAEID = *m.SAEID
		}
		data.Present = append(data.Present, row)
	}

	templates.Render(w, r, "lab_register", data)
}

// HandleCheckIn handles POST /register/check-in.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/register", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Register.CheckIn(ctx, uid)
	switch {
	case errors.Is(err, register.ErrAlreadyCheckedIn):
		h.renderRegister(w, r, uid, pageFlash{Warning: "You are already checked in."})
		return
	case errors.Is(err, register.ErrNotApproved):
		h.renderRegister(w, r, uid, pageFlash{Error: "Your account is not approved for lab access."})
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "register: check-in", err, "Check-in failed. Please try again.", "/register")
		return
	}

	h.AuditLog.CheckIn(ctx, r, uid, res.Occupancy)
	h.renderRegister(w, r, uid, pageFlash{Notice: "Checked in. Welcome to the lab."})
}

// HandleCheckOut handles POST /register/check-out. When this departure
// empties the lab the page comes back with the closure prompt; the lab
// stays marked open until the member answers it.
func (h *Handler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/register", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Register.CheckOut(ctx, uid)
	switch {
	case errors.Is(err, register.ErrNoOpenRecord):
		h.AuditLog.CheckOutHealed(ctx, r, uid)
		h.renderRegister(w, r, uid, pageFlash{Warning: "You had no open visit; your status has been reset."})
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "register: check-out", err, "Check-out failed. Please try again.", "/register")
		return
	}

	h.AuditLog.CheckOut(ctx, r, uid, res.LastPersonOut)

	if res.LastPersonOut {
		h.renderRegister(w, r, uid, pageFlash{
			Notice:     "Checked out. You are the last person in the lab.",
			AskClosure: true,
		})
		return
	}
	h.renderRegister(w, r, uid, pageFlash{Notice: "Checked out. See you next time."})
}

// HandleClosureConfirm handles POST /register/closure/confirm.
func (h *Handler) HandleClosureConfirm(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/register", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.Register.ConfirmClosure(ctx, uid)
	switch {
	case errors.Is(err, register.ErrLabNotEmpty):
		h.renderRegister(w, r, uid, pageFlash{Warning: "Someone checked in again; the lab stays open."})
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "register: confirm closure", err, "Could not close the lab. Please try again.", "/register")
		return
	}

	h.AuditLog.ClosureConfirmed(ctx, r, uid)
	h.renderRegister(w, r, uid, pageFlash{Notice: "Lab marked closed. Thanks for locking up."})
}

// HandleClosureDecline handles POST /register/closure/decline. The lab
// stays marked open, which is the honest state when someone remains
// inside without a check-in or the closer cannot lock up.
func (h *Handler) HandleClosureDecline(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/register", http.StatusSeeOther)
		return
	}

	h.AuditLog.ClosureDeclined(r.Context(), r, uid)
	h.renderRegister(w, r, uid, pageFlash{Notice: "Noted. The lab stays marked open."})
}
