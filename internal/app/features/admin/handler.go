// internal/app/features/admin/handler.go
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saecell/labportal/internal/app/approval"
	uierrors "github.com/saecell/labportal/internal/app/features/errors"
	attendancestore "github.com/saecell/labportal/internal/app/store/attendance"
	counterstore "github.com/saecell/labportal/internal/app/store/counters"
	labstatusstore "github.com/saecell/labportal/internal/app/store/labstatus"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/auditlog"
	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
	"github.com/saecell/labportal/internal/domain/models"
)

// Handler serves the admin area: the approval queue, the member
// roster, attendance history and the live occupancy view.
type Handler struct {
	Approval   *approval.Service
	Members    *memberstore.Store
	Attendance *attendancestore.Store
	LabStatus  *labstatusstore.Store
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(client *mongo.Client, db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	members := memberstore.New(db)
	return &Handler{
		Approval:   approval.NewService(client, members, counterstore.New(db), logger),
		Members:    members,
		Attendance: attendancestore.New(db),
		LabStatus:  labstatusstore.New(db),
		ErrLog:     errLog,
		AuditLog:   audit,
		Log:        logger,
	}
}

type dashboardData struct {
	viewdata.BaseVM
	PendingCount  int64
	ApprovedCount int64
	IsLabOpen     bool
	Occupancy     int
	TodayVisits   int64
	TodayKey      string
}

// ServeDashboard handles GET /admin.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := dashboardData{
		BaseVM:   viewdata.NewBaseVM(r, "Admin", "/"),
		TodayKey: models.DayKey(time.Now()),
	}

	var err error
	if data.PendingCount, err = h.Members.CountByStatus(ctx, models.StatusPending); err != nil {
		h.ErrLog.LogServerError(w, r, "admin: count pending", err, "Could not load the admin dashboard.", "/")
		return
	}
	if data.ApprovedCount, err = h.Members.CountByStatus(ctx, models.StatusApproved); err != nil {
		h.ErrLog.LogServerError(w, r, "admin: count approved", err, "Could not load the admin dashboard.", "/")
		return
	}
	if status, err := h.LabStatus.Get(ctx); err == nil {
		data.IsLabOpen = status.IsLabOpen
		data.Occupancy = status.Occupancy()
	}
	if n, err := h.Attendance.CountByDay(ctx, data.TodayKey); err == nil {
		data.TodayVisits = n
	}

	templates.Render(w, r, "admin_dashboard", data)
}
