// internal/app/features/checkin/routes.go
package checkin

import (
	"github.com/go-chi/chi/v5"

	"github.com/saecell/labportal/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeRegister)
	r.Post("/check-in", h.HandleCheckIn)
	r.Post("/check-out", h.HandleCheckOut)
	r.Post("/closure/confirm", h.HandleClosureConfirm)
	r.Post("/closure/decline", h.HandleClosureDecline)
	return r
}
