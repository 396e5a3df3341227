// Package auditlog records who did what to both MongoDB and the
// structured log, with per-category switches so deployments can turn
// either sink off.
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/saecell/labportal/internal/app/store/audit"
	"github.com/saecell/labportal/internal/app/system/ratelimit"
)

// Config selects the sink per category: "all" (Mongo + zap), "db",
// "log", or "off".
type Config struct {
	Auth       string
	Admin      string
	Attendance string
}

// Logger writes audit events. A nil Logger is a no-op, which lets
// handler tests skip audit wiring entirely.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates an audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// Log records one event according to its category's config setting.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryAttendance:
		setting = l.config.Attendance
	default:
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.MemberID != nil {
		fields = append(fields, zap.String("member_id", event.MemberID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// --- Authentication events ---

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, memberID primitive.ObjectID, authMethod, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		MemberID:  &memberID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"auth_method": authMethod,
			"email":       email,
		},
	})
}

// LoginFailedUserNotFound logs a sign-in attempt for an unknown address.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	})
}

// LoginFailedWrongPassword logs a sign-in with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, memberID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		MemberID:      &memberID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	})
}

// LoginFailedNotApproved logs a sign-in on an account that is still
// pending or was rejected.
func (l *Logger) LoginFailedNotApproved(ctx context.Context, r *http.Request, memberID primitive.ObjectID, email, status string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedNotApproved,
		MemberID:      &memberID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "account not approved",
		Details: map[string]string{
			"email":  email,
			"status": status,
		},
	})
}

// LoginFailedRateLimit logs a throttled sign-in attempt.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "rate limit exceeded",
		Details:       map[string]string{"email": email},
	})
}

// Logout logs a sign-out. Accepts the hex ID from the session.
func (l *Logger) Logout(ctx context.Context, r *http.Request, memberIDHex string) {
	var memberID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(memberIDHex); err == nil {
		memberID = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		MemberID:  memberID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// SignupSubmitted logs a new registration entering the pending queue.
func (l *Logger) SignupSubmitted(ctx context.Context, r *http.Request, memberID primitive.ObjectID, email, branch string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignupSubmitted,
		MemberID:  &memberID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"email":  email,
			"branch": branch,
		},
	})
}

// --- Admin events ---

// MemberApproved logs an approval together with the ID that was issued.
func (l *Logger) MemberApproved(ctx context.Context, r *http.Request, actorID, memberID primitive.ObjectID, issuedID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventMemberApproved,
		MemberID:  &memberID,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"sae_id": issuedID},
	})
}

// MemberRejected logs a rejection; the pending record is gone afterwards.
func (l *Logger) MemberRejected(ctx context.Context, r *http.Request, actorID, memberID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventMemberRejected,
		MemberID:  &memberID,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// MemberRoleChanged logs a permission role change.
func (l *Logger) MemberRoleChanged(ctx context.Context, r *http.Request, actorID, memberID primitive.ObjectID, oldRole, newRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventMemberRoleChanged,
		MemberID:  &memberID,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"old_role": oldRole,
			"new_role": newRole,
		},
	})
}

// MemberUpdated logs an admin edit to a member record, with the
// changed field and its new value.
func (l *Logger) MemberUpdated(ctx context.Context, r *http.Request, actorID, memberID primitive.ObjectID, field, value string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventMemberUpdated,
		MemberID:  &memberID,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"field": field,
			"value": value,
		},
	})
}

// MemberDeleted logs removal of a member account.
func (l *Logger) MemberDeleted(ctx context.Context, r *http.Request, actorID, memberID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventMemberDeleted,
		MemberID:  &memberID,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// --- Attendance events ---

// CheckIn logs a member entering the lab.
func (l *Logger) CheckIn(ctx context.Context, r *http.Request, memberID primitive.ObjectID, occupancy int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAttendance,
		EventType: audit.EventCheckIn,
		MemberID:  &memberID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"occupancy": strconv.Itoa(occupancy)},
	})
}

// CheckOut logs a member leaving; lastOut marks the trailing departure
// that triggers the closure prompt.
func (l *Logger) CheckOut(ctx context.Context, r *http.Request, memberID primitive.ObjectID, lastOut bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAttendance,
		EventType: audit.EventCheckOut,
		MemberID:  &memberID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"last_person_out": boolToString(lastOut)},
	})
}

// CheckOutHealed logs a checkout that found no open attendance record
// and only repaired the member's flag.
func (l *Logger) CheckOutHealed(ctx context.Context, r *http.Request, memberID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAttendance,
		EventType:     audit.EventCheckOutHealed,
		MemberID:      &memberID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "no open attendance record",
	})
}

// ClosureConfirmed logs the last person out marking the lab closed.
func (l *Logger) ClosureConfirmed(ctx context.Context, r *http.Request, memberID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAttendance,
		EventType: audit.EventClosureConfirmed,
		MemberID:  &memberID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// ClosureDeclined logs the last person out leaving the lab marked open.
func (l *Logger) ClosureDeclined(ctx context.Context, r *http.Request, memberID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAttendance,
		EventType: audit.EventClosureDeclined,
		MemberID:  &memberID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
