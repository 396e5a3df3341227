// internal/app/features/admin/occupancy.go
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	labstatusstore "github.com/saecell/labportal/internal/app/store/labstatus"
	"github.com/saecell/labportal/internal/domain/models"
)

const occupancyPollInterval = 5 * time.Second

type occupancyEvent struct {
	IsLabOpen bool     `json:"is_lab_open"`
	Occupancy int      `json:"occupancy"`
	Present   []string `json:"present"`
}

// ServeOccupancyStream handles GET /admin/occupancy/stream as
// server-sent events. It prefers a change stream on the status
// document; on deployments without one it polls.
func (h *Handler) ServeOccupancyStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()

	// Initial snapshot so the page renders immediately.
	if status, err := h.LabStatus.Get(ctx); err == nil {
		h.writeOccupancyEvent(w, flusher, status)
	}

	cs, err := h.LabStatus.Watch(ctx)
	if err != nil {
		if !errors.Is(err, labstatusstore.ErrWatchNotSupported) {
			h.Log.Warn("occupancy stream: watch failed, polling instead", zap.Error(err))
		}
		h.pollOccupancy(ctx, w, flusher)
		return
	}
	defer cs.Close(context.Background())

	for cs.Next(ctx) {
		var change struct {
			FullDocument models.LabStatus `bson:"fullDocument"`
		}
		if err := cs.Decode(&change); err != nil {
			h.Log.Warn("occupancy stream: decode change failed", zap.Error(err))
			continue
		}
		h.writeOccupancyEvent(w, flusher, &change.FullDocument)
	}
}

func (h *Handler) pollOccupancy(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) {
	ticker := time.NewTicker(occupancyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := h.LabStatus.Get(ctx)
			if err != nil {
				return
			}
			h.writeOccupancyEvent(w, flusher, status)
		}
	}
}

func (h *Handler) writeOccupancyEvent(w http.ResponseWriter, flusher http.Flusher, status *models.LabStatus) {
	payload, err := json.Marshal(occupancyEvent{
		IsLabOpen: status.IsLabOpen,
		Occupancy: status.Occupancy(),
		Present:   status.Present,
	})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: occupancy\ndata: %s\n\n", payload)
	flusher.Flush()
}
