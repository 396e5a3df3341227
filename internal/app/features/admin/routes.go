// internal/app/features/admin/routes.go
package admin

import (
	"github.com/go-chi/chi/v5"

	"github.com/saecell/labportal/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole("admin", "superadmin"))

	r.Get("/", h.ServeDashboard)

	r.Get("/approvals", h.ServeApprovals)
	r.Post("/approvals/{id}/approve", h.HandleApprove)
	r.Post("/approvals/{id}/reject", h.HandleReject)

	r.Get("/members", h.ServeRoster)
	r.Post("/members/{id}/role", h.HandleRoleChange)
	r.Post("/members/{id}/title", h.HandleTitleChange)
	r.Post("/members/{id}/delete", h.HandleDelete)

	r.Get("/attendance", h.ServeAttendance)
	r.Get("/attendance.csv", h.ServeAttendanceCSV)

	r.Get("/occupancy/stream", h.ServeOccupancyStream)

	return r
}
