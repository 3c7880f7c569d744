//go:build go1.18

package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// FuzzParseAddress tests that parsing never panics on arbitrary input
// and always returns either a valid address or an error.
//
// Justification: Trust boundary functions must handle arbitrary input safely.
// Fuzz tests verify no panics and consistent invariants.
func FuzzParseAddress(f *testing.F) {
	// Seed corpus with interesting inputs
	f.Add("")
	f.Add("id1")
	f.Add("id1" + strings.Repeat("1", 44))
	f.Add("aim1notourprefix")
	f.Add("'; DROP TABLE identities;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("id1O0Il")

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)

		// Invariant 1: No panics (implicit - test would fail)

		// Invariant 2: Either valid address or error, never both
		if err == nil {
			if addr.IsZero() {
				t.Error("ParseAddress returned zero address without error")
			}
			// Valid address must round-trip
			roundTrip, err2 := ParseAddress(addr.String())
			if err2 != nil {
				t.Errorf("Valid address failed round-trip: %v", err2)
			}
			if roundTrip != addr {
				t.Error("Round-trip changed address value")
			}
		}

		// Invariant 3: Non-UTF8 input must be rejected
		if !utf8.ValidString(input) && err == nil {
			t.Error("Non-UTF8 input was accepted")
		}
	})
}

// FuzzParseIdentityID verifies the numeric trust boundary never panics and
// never yields the reserved zero id without an error.
func FuzzParseIdentityID(f *testing.F) {
	f.Add("")
	f.Add("0")
	f.Add("1")
	f.Add("18446744073709551615")
	f.Add("0x10")
	f.Add("۴۲")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseIdentityID(input)

		if err == nil && id.IsNone() {
			t.Error("reserved id 0 accepted without error")
		}
		if err == nil {
			roundTrip, err2 := ParseIdentityID(id.String())
			if err2 != nil {
				t.Errorf("Valid id failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("Round-trip changed id value")
			}
		}
	})
}
