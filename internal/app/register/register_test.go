package register_test

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saecell/labportal/internal/app/register"
	attendancestore "github.com/saecell/labportal/internal/app/store/attendance"
	labstatusstore "github.com/saecell/labportal/internal/app/store/labstatus"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/indexes"
	"github.com/saecell/labportal/internal/testutil"
)

func newService(t *testing.T) (*register.Service, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	if err := indexes.EnsureAll(testutil.TestContext(t), db); err != nil {
		t.Fatalf("ensuring indexes: %v", err)
	}
	svc := register.NewService(db.Client(),
		memberstore.New(db),
		attendancestore.New(db),
		labstatusstore.New(db),
		zap.NewNop())
	return svc, testutil.NewFixtures(t, db), db
}

func TestCheckIn_OpensLabAndVisit(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")

	res, err := svc.CheckIn(ctx, m.ID)
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if res.Occupancy != 1 {
		t.Errorf("occupancy = %d, want 1", res.Occupancy)
	}
	if !res.Record.IsOpen() {
		t.Error("expected an open attendance record")
	}
	if res.Record.MemberName != "Ada Lovelace" {
		t.Errorf("denormalized name = %q", res.Record.MemberName)
	}

	status, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsLabOpen {
		t.Error("lab should be open after first check-in")
	}

	got, err := memberstore.New(fx.DB()).GetByID(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsCheckedIn {
		t.Error("member flag should be checked in")
	}
}

func TestCheckIn_RejectsPending(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := testutil.TestContext(t)

	m := fx.CreatePendingStudent(ctx, "Pending Person", "pending@example.com", "ME", "25")
	if _, err := svc.CheckIn(ctx, m.ID); !errors.Is(err, register.ErrNotApproved) {
		t.Errorf("CheckIn error = %v, want ErrNotApproved", err)
	}
}

func TestCheckIn_Twice(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")
	if _, err := svc.CheckIn(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CheckIn(ctx, m.ID); !errors.Is(err, register.ErrAlreadyCheckedIn) {
		t.Errorf("second CheckIn error = %v, want ErrAlreadyCheckedIn", err)
	}
}

func TestCheckOut_NotLastPersonOut(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := testutil.TestContext(t)

	a := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")
	b := fx.CreateApprovedStudent(ctx, "Grace Hopper", "grace@example.com", "EEE", "24", "SAEEEE24001")

	if _, err := svc.CheckIn(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CheckIn(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	res, err := svc.CheckOut(ctx, a.ID)
	if err != nil {
		t.Fatalf("CheckOut failed: %v", err)
	}
	if res.LastPersonOut {
		t.Error("one member still inside; should not prompt for closure")
	}
	if res.Occupancy != 1 {
		t.Errorf("occupancy = %d, want 1", res.Occupancy)
	}
	if res.Record.CheckOutTime == nil {
		t.Error("record should carry a checkout time")
	}
}

func TestCheckOut_LastPersonOutThenClosure(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")
	if _, err := svc.CheckIn(ctx, m.ID); err != nil {
		t.Fatal(err)
	}

	res, err := svc.CheckOut(ctx, m.ID)
	if err != nil {
		t.Fatalf("CheckOut failed: %v", err)
	}
	if !res.LastPersonOut {
		t.Fatal("sole member leaving should be flagged last person out")
	}

	// The flag lags the empty set until the member confirms.
	status, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsLabOpen {
		t.Error("lab should stay open until closure is confirmed")
	}

	if err := svc.ConfirmClosure(ctx, m.ID); err != nil {
		t.Fatalf("ConfirmClosure failed: %v", err)
	}
	status, err = svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.IsLabOpen {
		t.Error("lab should be closed after confirmation")
	}
}

func TestConfirmClosure_RejectedWhileOccupied(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")
	if _, err := svc.CheckIn(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.ConfirmClosure(ctx, m.ID); !errors.Is(err, register.ErrLabNotEmpty) {
		t.Errorf("ConfirmClosure error = %v, want ErrLabNotEmpty", err)
	}
}

func TestCheckOut_HealsStaleState(t *testing.T) {
	svc, fx, db := newService(t)
	ctx := testutil.TestContext(t)

	// Member flagged as inside with a presence entry but no open record.
	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")
	if err := memberstore.New(db).SetCheckedIn(ctx, m.ID, true); err != nil {
		t.Fatal(err)
	}
	fx.SeedLabStatus(ctx, true, m.ID.Hex())

	_, err := svc.CheckOut(ctx, m.ID)
	if !errors.Is(err, register.ErrNoOpenRecord) {
		t.Fatalf("CheckOut error = %v, want ErrNoOpenRecord", err)
	}

	got, err := memberstore.New(db).GetByID(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsCheckedIn {
		t.Error("stale checked-in flag should be repaired")
	}
	status, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Occupancy() != 0 {
		t.Errorf("present set should be emptied, got %d", status.Occupancy())
	}
}

func TestPresentMembers_SkipsDanglingEntries(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")
	if _, err := svc.CheckIn(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	// A deleted member leaves a dangling hex in the present set.
	if _, err := svc.Status(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.DB().Collection("lab_status").UpdateOne(ctx,
		bson.M{"_id": "current"},
		bson.M{"$addToSet": bson.M{"present": "64b000000000000000000000"}},
	); err != nil {
		t.Fatal(err)
	}

	members, err := svc.PresentMembers(ctx)
	if err != nil {
		t.Fatalf("PresentMembers failed: %v", err)
	}
	if len(members) != 1 || members[0].FullName != "Ada Lovelace" {
		t.Errorf("got %d members, want only the real one", len(members))
	}
}
