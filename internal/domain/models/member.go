package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account status values for Member.AccountStatus.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Member represents a registered user of the portal: students, faculty
// admins, and the superadmin.
//
// NOTE:
//   - SAEID is nil until an admin approves the registration; the ID is
//     minted from the per-category sequence counter at approval time.
//   - For faculty registrants Branch holds the department and the join-year
//     fields are nil (faculty IDs carry no year component).
type Member struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`

	Branch        string  `bson:"branch" json:"branch"`
	Semester      string  `bson:"semester,omitempty" json:"semester,omitempty"`
	Team          string  `bson:"team,omitempty" json:"team,omitempty"`
	BloodGroup    string  `bson:"blood_group,omitempty" json:"blood_group,omitempty"`
	GuardianPhone string  `bson:"guardian_phone,omitempty" json:"guardian_phone,omitempty"`
	PhotoURL      string  `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	JoinYear      *string `bson:"join_year,omitempty" json:"join_year,omitempty"`           // two-digit, e.g. "25"
	JoinYearFull  *string `bson:"join_year_full,omitempty" json:"join_year_full,omitempty"` // four-digit, for display

	Role          string  `bson:"permission_role" json:"permission_role"` // member | admin | superadmin
	DisplayTitle  string  `bson:"display_title,omitempty" json:"display_title,omitempty"`
	AccountStatus string  `bson:"account_status" json:"account_status"` // pending | approved | rejected
	SAEID         *string `bson:"sae_id,omitempty" json:"sae_id,omitempty"`

	IsCheckedIn bool `bson:"is_checked_in" json:"is_checked_in"`

	AuthMethod   string  `bson:"auth_method,omitempty" json:"auth_method,omitempty"` // internal | google
	PasswordHash *string `bson:"password_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsApproved reports whether the member may sign in and use the portal.
func (m *Member) IsApproved() bool {
	return m.AccountStatus == StatusApproved
}

// IsFaculty reports whether the member registered through the faculty flow.
// Faculty carry an admin role from registration and no join year.
func (m *Member) IsFaculty() bool {
	return m.JoinYear == nil && m.Role != "member"
}
