// internal/app/features/home/handler.go
package home

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	labstatusstore "github.com/saecell/labportal/internal/app/store/labstatus"
	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	DB        *mongo.Database
	LabStatus *labstatusstore.Store
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		LabStatus: labstatusstore.New(db),
		Log:       logger,
	}
}

type homePageData struct {
	viewdata.BaseVM
	IsLabOpen bool
	Occupancy int
}

// ServeRoot handles GET / and shows the landing page with the current
// lab state.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	data := homePageData{
		BaseVM: viewdata.NewBaseVM(r, "Welcome", "/"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if status, err := h.LabStatus.Get(ctx); err == nil {
		data.IsLabOpen = status.IsLabOpen
		data.Occupancy = status.Occupancy()
	} else {
		h.Log.Warn("home: load lab status failed", zap.Error(err))
	}

	templates.Render(w, r, "home", data)
}
