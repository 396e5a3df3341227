// internal/app/features/admin/attendance.go
package admin

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/google/uuid"

	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
	"github.com/saecell/labportal/internal/domain/models"
)

type attendancePageData struct {
	viewdata.BaseVM
	Date    string
	Records []models.AttendanceRecord
	Total   int64
}

// dayKeyParam returns the requested day, defaulting to today. Bad
// input falls back to today rather than erroring.
func dayKeyParam(r *http.Request) string {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return models.DayKey(time.Now())
	}
	return date
}

// ServeAttendance handles GET /admin/attendance?date=YYYY-MM-DD.
func (h *Handler) ServeAttendance(w http.ResponseWriter, r *http.Request) {
	date := dayKeyParam(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	records, err := h.Attendance.ListByDay(ctx, date)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "admin: list attendance", err, "Could not load attendance records.", "/admin")
		return
	}

	templates.Render(w, r, "admin_attendance", attendancePageData{
		BaseVM:  viewdata.NewBaseVM(r, "Attendance "+date, "/admin"),
		Date:    date,
		Records: records,
		Total:   int64(len(records)),
	})
}

// ServeAttendanceCSV handles GET /admin/attendance.csv?date=YYYY-MM-DD
// and streams the day's register as a spreadsheet.
func (h *Handler) ServeAttendanceCSV(w http.ResponseWriter, r *http.Request) {
	date := dayKeyParam(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	records, err := h.Attendance.ListByDay(ctx, date)
	if err != nil {
		http.Error(w, "could not load attendance records", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("attendance-%s-%s.csv", date, uuid.New().String()[:8])
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	// UTF-8 BOM for Excel
	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	defer cw.Flush()

	_ = cw.Write([]string{"date", "name", "sae_id", "check_in", "check_out", "minutes"})
	for _, rec := range records {
		saeID := ""
		if rec.SAEID != nil {
			saeID = *rec.SAEID
		}
		out := ""
		minutes := ""
		if rec.CheckOutTime != nil {
			out = rec.CheckOutTime.Local().Format("15:04:05")
			minutes = fmt.Sprintf("%.0f", rec.CheckOutTime.Sub(rec.CheckInTime).Minutes())
		}
		_ = cw.Write([]string{
			rec.Date,
			rec.MemberName,
			saeID,
			rec.CheckInTime.Local().Format("15:04:05"),
			out,
			minutes,
		})
	}
}
