package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttendanceRecord is one lab visit: created at check-in with a nil
// check-out time ("open"), closed exactly once at check-out, immutable
// afterward. At most one open record may exist per member.
//
// MemberName and SAEID are denormalized so history views render without a
// join; the member_id is authoritative.
type AttendanceRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID     primitive.ObjectID `bson:"member_id" json:"member_id"`
	MemberName   string             `bson:"member_name" json:"member_name"`
	SAEID        *string            `bson:"sae_id,omitempty" json:"sae_id,omitempty"`
	CheckInTime  time.Time          `bson:"check_in_time" json:"check_in_time"`
	CheckOutTime *time.Time         `bson:"check_out_time" json:"check_out_time"`
	Date         string             `bson:"date" json:"date"` // day key, YYYY-MM-DD
}

// IsOpen reports whether the visit has not been checked out yet.
func (a *AttendanceRecord) IsOpen() bool {
	return a.CheckOutTime == nil
}

// Duration returns the visit length, or the time since check-in for an
// open record.
func (a *AttendanceRecord) Duration() time.Duration {
	if a.CheckOutTime != nil {
		return a.CheckOutTime.Sub(a.CheckInTime)
	}
	return time.Since(a.CheckInTime)
}

// DayKey formats a timestamp as the attendance day key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
