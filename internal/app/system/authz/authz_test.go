package authz_test

import (
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saecell/labportal/internal/app/system/auth"
	"github.com/saecell/labportal/internal/app/system/authz"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want authz.Role
	}{
		{"member", authz.RoleMember},
		{" Admin ", authz.RoleAdmin},
		{"SUPERADMIN", authz.RoleSuperAdmin},
		{"visitor", authz.RoleVisitor},
		{"coordinator", authz.RoleVisitor},
		{"", authz.RoleVisitor},
	}
	for _, tt := range tests {
		if got := authz.ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUserCtx_NoUser(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	role, _, id, ok := authz.UserCtx(r)
	if ok {
		t.Fatal("expected ok=false without a session user")
	}
	if role != authz.RoleVisitor || id != primitive.NilObjectID {
		t.Errorf("got role %q id %v, want visitor and NilObjectID", role, id)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r = auth.WithTestUser(r, &auth.SessionUser{ID: "not-a-hex-id", Role: "admin"})
	if _, _, _, ok := authz.UserCtx(r); ok {
		t.Error("malformed ObjectID should fail closed")
	}
}

func TestIsAdmin(t *testing.T) {
	for role, want := range map[string]bool{
		"admin":      true,
		"superadmin": true,
		"member":     false,
		"":           false,
	} {
		r := httptest.NewRequest("GET", "/", nil)
		r = auth.WithTestUser(r, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: role})
		if got := authz.IsAdmin(r); got != want {
			t.Errorf("IsAdmin with role %q = %v, want %v", role, got, want)
		}
	}
}

func TestIsSuperAdmin(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r = auth.WithTestUser(r, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "admin"})
	if authz.IsSuperAdmin(r) {
		t.Error("admin is not a superadmin")
	}
}

func TestCanCloseLab(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r = auth.WithTestUser(r, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "member"})
	if authz.CanCloseLab(r) {
		t.Error("plain member cannot force the lab closed")
	}
}
