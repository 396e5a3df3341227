package attendancestore_test

import (
	"errors"
	"testing"
	"time"

	attendancestore "github.com/saecell/labportal/internal/app/store/attendance"
	"github.com/saecell/labportal/internal/app/system/indexes"
	"github.com/saecell/labportal/internal/testutil"
)

func TestStore_CreateOpenAndClose(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := attendancestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")

	in := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	rec, err := store.CreateOpen(ctx, &m, in)
	if err != nil {
		t.Fatalf("CreateOpen failed: %v", err)
	}
	if !rec.IsOpen() {
		t.Error("new record should be open")
	}
	if rec.Date != "2026-08-30" {
		t.Errorf("day key = %q", rec.Date)
	}
	if rec.SAEID == nil || *rec.SAEID != "SAECS25001" {
		t.Errorf("denormalized sae_id = %v", rec.SAEID)
	}

	open, err := store.FindOpenByMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("FindOpenByMember failed: %v", err)
	}
	if open.ID != rec.ID {
		t.Error("found a different record")
	}

	out := in.Add(2 * time.Hour)
	closed, err := store.CloseOpen(ctx, m.ID, out)
	if err != nil {
		t.Fatalf("CloseOpen failed: %v", err)
	}
	if closed.CheckOutTime == nil || !closed.CheckOutTime.Equal(out) {
		t.Errorf("checkout time = %v", closed.CheckOutTime)
	}
	if closed.Duration() != 2*time.Hour {
		t.Errorf("duration = %v", closed.Duration())
	}

	if _, err := store.FindOpenByMember(ctx, m.ID); !errors.Is(err, attendancestore.ErrNoOpenRecord) {
		t.Errorf("after close: error = %v, want ErrNoOpenRecord", err)
	}
	if _, err := store.CloseOpen(ctx, m.ID, out); !errors.Is(err, attendancestore.ErrNoOpenRecord) {
		t.Errorf("double close: error = %v, want ErrNoOpenRecord", err)
	}
}

func TestStore_SecondOpenRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	if err := indexes.EnsureAll(testutil.TestContext(t), db); err != nil {
		t.Fatalf("ensuring indexes: %v", err)
	}
	store := attendancestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")

	if _, err := store.CreateOpen(ctx, &m, time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateOpen(ctx, &m, time.Now()); !errors.Is(err, attendancestore.ErrAlreadyOpen) {
		t.Errorf("second open: error = %v, want ErrAlreadyOpen", err)
	}

	// A closed visit frees the slot for the next day.
	if _, err := store.CloseOpen(ctx, m.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateOpen(ctx, &m, time.Now()); err != nil {
		t.Errorf("reopen after close failed: %v", err)
	}
}

func TestStore_ListByDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := attendancestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	a := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")
	b := fx.CreateApprovedStudent(ctx, "Grace Hopper", "grace@example.com", "EEE", "24", "SAEEEE24001")

	day := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	fx.CreateOpenVisit(ctx, b, day.Add(time.Hour))
	fx.CreateOpenVisit(ctx, a, day)
	fx.CreateOpenVisit(ctx, a, day.AddDate(0, 0, 1)) // next day

	recs, err := store.ListByDay(ctx, "2026-08-30")
	if err != nil {
		t.Fatalf("ListByDay failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].MemberName != "Ada Lovelace" {
		t.Errorf("records not in check-in order: first is %q", recs[0].MemberName)
	}

	n, err := store.CountByDay(ctx, "2026-08-30")
	if err != nil || n != 2 {
		t.Errorf("CountByDay = (%d, %v), want (2, nil)", n, err)
	}
}

func TestStore_ListByMember_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := attendancestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		fx.CreateOpenVisit(ctx, m, base.AddDate(0, 0, i))
	}

	recs, err := store.ListByMember(ctx, m.ID, 2)
	if err != nil {
		t.Fatalf("ListByMember failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want limit 2", len(recs))
	}
	if !recs[0].CheckInTime.After(recs[1].CheckInTime) {
		t.Error("records should be newest first")
	}
}
