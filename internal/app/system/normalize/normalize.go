// Package normalize canonicalizes user-supplied identity fields before
// they reach the stores, so lookups and comparisons never depend on how
// a form happened to be filled in.
package normalize

import "strings"

// Email lowercases and trims an address. Stored emails are always in
// this form; lookups must fold through here too.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name collapses internal runs of whitespace and trims the ends.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Branch upper-cases and trims a branch code from a signup form.
func Branch(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Status lowercases an account status for comparison against the
// known states.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Phone strips spaces, dashes and parentheses from a phone number.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '-', '(', ')', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
