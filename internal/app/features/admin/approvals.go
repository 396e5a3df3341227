// internal/app/features/admin/approvals.go
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saecell/labportal/internal/app/approval"
	"github.com/saecell/labportal/internal/app/system/authz"
	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
	"github.com/saecell/labportal/internal/domain/models"
	"github.com/saecell/labportal/internal/domain/saeid"
)

type approvalsPageData struct {
	viewdata.BaseVM
	Pending []models.Member
	Notice  string
	Error   string
}

// ServeApprovals handles GET /admin/approvals: the queue of pending
// registrations, oldest first.
func (h *Handler) ServeApprovals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	pending, err := h.Members.ListPending(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "admin: list pending", err, "Could not load the approval queue.", "/admin")
		return
	}

	q := r.URL.Query()
	data := approvalsPageData{
		BaseVM:  viewdata.NewBaseVM(r, "Approval Queue", "/admin"),
		Pending: pending,
	}
	if id := q.Get("approved"); id != "" {
		data.Notice = "Approved. Issued ID: " + id
	}
	if q.Get("rejected") == "1" {
		data.Notice = "Registration rejected."
	}

	templates.Render(w, r, "admin_approvals", data)
}

// HandleApprove handles POST /admin/approvals/{id}/approve. On success
// the member gets the next sequential ID for their category.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(r)
	if !ok {
		http.Error(w, "bad member id", http.StatusBadRequest)
		return
	}
	_, _, actorID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	issuedID, err := h.Approval.Approve(ctx, memberID)
	switch {
	case errors.Is(err, approval.ErrNotPending):
		http.Redirect(w, r, "/admin/approvals", http.StatusSeeOther)
		return
	case errors.Is(err, approval.ErrMissingJoinYear) || errors.Is(err, saeid.ErrUnknownBranch):
		h.ErrLog.LogBadRequest(w, r, "admin: approve rejected", err,
			"This registration is missing a valid branch or join year and cannot be approved.", "/admin/approvals")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "admin: approve", err, "Approval failed. Please try again.", "/admin/approvals")
		return
	}

	h.AuditLog.MemberApproved(ctx, r, actorID, memberID, issuedID)
	http.Redirect(w, r, "/admin/approvals?approved="+issuedID, http.StatusSeeOther)
}

// HandleReject handles POST /admin/approvals/{id}/reject. The pending
// registration is removed so the email can be reused.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(r)
	if !ok {
		http.Error(w, "bad member id", http.StatusBadRequest)
		return
	}
	_, _, actorID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Members.GetByID(ctx, memberID)
	if err != nil {
		http.Redirect(w, r, "/admin/approvals", http.StatusSeeOther)
		return
	}

	if err := h.Approval.Reject(ctx, memberID); err != nil {
		if errors.Is(err, approval.ErrNotPending) {
			http.Redirect(w, r, "/admin/approvals", http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "admin: reject", err, "Rejection failed. Please try again.", "/admin/approvals")
		return
	}

	h.AuditLog.MemberRejected(ctx, r, actorID, memberID, m.Email)
	http.Redirect(w, r, "/admin/approvals?rejected=1", http.StatusSeeOther)
}

func pathID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
