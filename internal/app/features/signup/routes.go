// internal/app/features/signup/routes.go
package signup

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeStudentForm)
	r.Post("/", h.HandleStudentPost)
	r.Get("/faculty", h.ServeFacultyForm)
	r.Post("/faculty", h.HandleFacultyPost)
	return r
}
