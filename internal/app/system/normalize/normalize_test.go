package normalize

import "testing"

func TestEmail(t *testing.T) {
	if got := Email("  Ada.Lovelace@Example.COM "); got != "ada.lovelace@example.com" {
		t.Errorf("Email = %q", got)
	}
}

func TestName(t *testing.T) {
	if got := Name("  Ada   Lovelace\t"); got != "Ada Lovelace" {
		t.Errorf("Name = %q", got)
	}
	if got := Name(""); got != "" {
		t.Errorf("Name(empty) = %q", got)
	}
}

func TestBranch(t *testing.T) {
	if got := Branch(" cs "); got != "CS" {
		t.Errorf("Branch = %q", got)
	}
}

func TestPhone(t *testing.T) {
	if got := Phone("+91 (98765) 432-10"); got != "+919876543210" {
		t.Errorf("Phone = %q", got)
	}
}

func TestStatus(t *testing.T) {
	if got := Status(" Approved "); got != "approved" {
		t.Errorf("Status = %q", got)
	}
}
