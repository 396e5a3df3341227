package saeid

import (
	"errors"
	"testing"
)

func TestStudentCategory(t *testing.T) {
	tests := []struct {
		name    string
		branch  string
		year    string
		want    string
		wantErr error
	}{
		{"plain", "CS", "25", "CS25", nil},
		{"lowercase branch", "ece", "24", "ECE24", nil},
		{"padded input", " me ", "23", "ME23", nil},
		{"unknown branch", "AI", "25", "", ErrUnknownBranch},
		{"empty branch", "", "25", "", ErrUnknownBranch},
		{"four digit year", "CS", "2025", "", ErrBadYear},
		{"empty year", "CS", "", "", ErrBadYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StudentCategory(tt.branch, tt.year)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("StudentCategory(%q, %q) error = %v, want %v", tt.branch, tt.year, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("StudentCategory(%q, %q) failed: %v", tt.branch, tt.year, err)
			}
			if got != tt.want {
				t.Errorf("StudentCategory(%q, %q) = %q, want %q", tt.branch, tt.year, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		category string
		serial   int64
		want     string
	}{
		{"CS25", 1, "SAECS25001"},
		{"ME24", 42, "SAEME24042"},
		{"EEE23", 999, "SAEEEE23999"},
		{"FAC", 7, "SAEFAC007"},
		// Serial overflow widens the field instead of wrapping.
		{"CS25", 1000, "SAECS251000"},
	}

	for _, tt := range tests {
		got := Format(tt.category, tt.serial)
		if got != tt.want {
			t.Errorf("Format(%q, %d) = %q, want %q", tt.category, tt.serial, got, tt.want)
		}
		if !IsValid(got) {
			t.Errorf("IsValid(%q) = false, want true", got)
		}
	}
}

func TestIsValid_Rejects(t *testing.T) {
	for _, s := range []string{
		"",
		"SAE",
		"SAECS25",      // no serial
		"SAEAI25001",  // branch outside the closed set
		"saecs25001",  // case matters on issued IDs
		"SAECS2500",   // serial too short
		"XSAECS25001", // bad prefix
	} {
		if IsValid(s) {
			t.Errorf("IsValid(%q) = true, want false", s)
		}
	}
}

func TestIsValidBranch(t *testing.T) {
	if !IsValidBranch("sf") {
		t.Error("expected SF to be a valid branch")
	}
	if IsValidBranch("XX") {
		t.Error("expected XX to be rejected")
	}
}
