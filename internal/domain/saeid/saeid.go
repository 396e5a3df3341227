// Package saeid mints and validates the club's member IDs.
//
// Student IDs are SAE<branch><yy><serial>, e.g. "SAECS25001": branch code,
// two-digit join year, serial zero-padded to three digits. Faculty are a
// role-based bucket with no year component: "SAEFAC007". The category key
// (everything between the prefix and the serial) doubles as the sequence
// counter document key.
package saeid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Prefix starts every issued ID.
const Prefix = "SAE"

// FacultyCategory is the counter bucket for faculty registrations.
const FacultyCategory = "FAC"

// Branches is the closed set of branch codes accepted at signup. Anything
// outside this set fails approval; there is no catch-all bucket, because a
// shared "unknown" category would let serials collide across real branches.
var Branches = []string{"ME", "EEE", "ECE", "SF", "CS", "IT", "CE"}

var (
	// ErrUnknownBranch means the member's branch is not in the closed set.
	ErrUnknownBranch = errors.New("unknown branch code")
	// ErrBadYear means the join year is not a two-digit string.
	ErrBadYear = errors.New("join year must be two digits")
)

var yearRe = regexp.MustCompile(`^\d{2}$`)

// IsValidBranch reports whether code is in the closed branch set.
// Comparison is case-insensitive; stored branches are upper-case.
func IsValidBranch(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, b := range Branches {
		if b == code {
			return true
		}
	}
	return false
}

// StudentCategory returns the counter bucket for a student: branch code
// plus two-digit join year, e.g. "CS25".
func StudentCategory(branch, joinYear string) (string, error) {
	branch = strings.ToUpper(strings.TrimSpace(branch))
	if !IsValidBranch(branch) {
		return "", fmt.Errorf("%w: %q", ErrUnknownBranch, branch)
	}
	if !yearRe.MatchString(joinYear) {
		return "", fmt.Errorf("%w: %q", ErrBadYear, joinYear)
	}
	return branch + joinYear, nil
}

// Format renders the ID for a category key and serial number.
func Format(category string, serial int64) string {
	return fmt.Sprintf("%s%s%03d", Prefix, category, serial)
}

var idRe = regexp.MustCompile(`^SAE(?:(?:ME|EEE|ECE|SF|CS|IT|CE)\d{2}|FAC)\d{3,}$`)

// IsValid reports whether s looks like an ID this portal could have issued.
// Serials past 999 widen the field rather than wrap, hence \d{3,}.
func IsValid(s string) bool {
	return idRe.MatchString(s)
}
