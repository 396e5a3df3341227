// internal/app/features/admin/roster.go
package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"

	"github.com/saecell/labportal/internal/app/system/authz"
	"github.com/saecell/labportal/internal/app/system/htmlsanitize"
	"github.com/saecell/labportal/internal/app/system/timeouts"
	"github.com/saecell/labportal/internal/app/system/viewdata"
	"github.com/saecell/labportal/internal/domain/models"
)

type rosterPageData struct {
	viewdata.BaseVM
	Members      []models.Member
	CanEditRoles bool
	Notice       string
}

// ServeRoster handles GET /admin/members: all approved members sorted
// by name.
func (h *Handler) ServeRoster(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	members, err := h.Members.ListApproved(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "admin: list approved", err, "Could not load the roster.", "/admin")
		return
	}

	data := rosterPageData{
		BaseVM:       viewdata.NewBaseVM(r, "Member Roster", "/admin"),
		Members:      members,
		CanEditRoles: authz.IsSuperAdmin(r),
	}
	switch r.URL.Query().Get("done") {
	case "role":
		data.Notice = "Role updated."
	case "title":
		data.Notice = "Title updated."
	case "deleted":
		data.Notice = "Member removed."
	}

	templates.Render(w, r, "admin_roster", data)
}

// HandleRoleChange handles POST /admin/members/{id}/role. Only the
// superadmin can change roles.
func (h *Handler) HandleRoleChange(w http.ResponseWriter, r *http.Request) {
	if !authz.IsSuperAdmin(r) {
		http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
		return
	}
	memberID, ok := pathID(r)
	if !ok {
		http.Error(w, "bad member id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse role form failed", err, "Invalid form data.", "/admin/members")
		return
	}
	newRole := r.FormValue("role")
	_, _, actorID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Members.GetByID(ctx, memberID)
	if err != nil {
		http.Redirect(w, r, "/admin/members", http.StatusSeeOther)
		return
	}
	// The superadmin cannot demote themselves; that would leave the
	// portal without one.
	if m.ID == actorID {
		h.ErrLog.LogBadRequest(w, r, "admin: self role change", nil, "You cannot change your own role.", "/admin/members")
		return
	}

	if err := h.Members.SetRole(ctx, memberID, newRole); err != nil {
		h.ErrLog.LogBadRequest(w, r, "admin: set role", err, "That role is not valid.", "/admin/members")
		return
	}

	h.AuditLog.MemberRoleChanged(ctx, r, actorID, memberID, m.Role, newRole)
	http.Redirect(w, r, "/admin/members?done=role", http.StatusSeeOther)
}

// HandleTitleChange handles POST /admin/members/{id}/title. Any admin
// can set the display title shown on the roster.
func (h *Handler) HandleTitleChange(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(r)
	if !ok {
		http.Error(w, "bad member id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse title form failed", err, "Invalid form data.", "/admin/members")
		return
	}
	title := htmlsanitize.StripTags(r.FormValue("display_title"))
	_, _, actorID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Members.SetDisplayTitle(ctx, memberID, title); err != nil {
		h.ErrLog.LogBadRequest(w, r, "admin: set title", err, "Could not update the title.", "/admin/members")
		return
	}

	h.AuditLog.MemberUpdated(ctx, r, actorID, memberID, "display_title", title)
	http.Redirect(w, r, "/admin/members?done=title", http.StatusSeeOther)
}

// HandleDelete handles POST /admin/members/{id}/delete. Only the
// superadmin can remove accounts, and not their own. The form must echo
// the member's SAE ID (their email when none is issued) so a removal
// cannot happen by a stray click.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !authz.IsSuperAdmin(r) {
		http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
		return
	}
	memberID, ok := pathID(r)
	if !ok {
		http.Error(w, "bad member id", http.StatusBadRequest)
		return
	}
	_, _, actorID, _ := authz.UserCtx(r)
	if memberID == actorID {
		h.ErrLog.LogBadRequest(w, r, "admin: self delete", nil, "You cannot delete your own account.", "/admin/members")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Members.GetByID(ctx, memberID)
	if err != nil {
		http.Redirect(w, r, "/admin/members", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse delete form failed", err, "Invalid form data.", "/admin/members")
		return
	}
	expected := m.Email
	if m.SAEID != nil {
		expected = *m.SAEID
	}
	if strings.TrimSpace(r.FormValue("confirm")) != expected {
		h.ErrLog.LogBadRequest(w, r, "admin: delete confirmation mismatch", nil,
			"The confirmation did not match the member's ID.", "/admin/members")
		return
	}

	if _, err := h.Members.Delete(ctx, memberID); err != nil {
		h.ErrLog.LogServerError(w, r, "admin: delete member", err, "Could not remove the member.", "/admin/members")
		return
	}

	h.AuditLog.MemberDeleted(ctx, r, actorID, memberID, m.Email)
	http.Redirect(w, r, "/admin/members?done=deleted", http.StatusSeeOther)
}
