package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseUserID checks that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE users;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseUserID(input)
		if err == nil {
			roundTrip, err2 := ParseUserID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
			if id.IsNil() {
				t.Error("nil UUID was accepted")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseMoney checks that accepted amounts survive a render/parse cycle.
func FuzzParseMoney(f *testing.F) {
	f.Add("12.99")
	f.Add("1,234.50")
	f.Add("-0.01")
	f.Add("")
	f.Add("1e9")
	f.Add("9.999")

	f.Fuzz(func(t *testing.T, input string) {
		m, err := ParseMoney(input)
		if err != nil {
			return
		}
		again, err := ParseMoney(m.String())
		if err != nil {
			t.Fatalf("rendered amount %q did not parse: %v", m.String(), err)
		}
		if again != m {
			t.Errorf("round-trip changed amount: %d -> %d", m, again)
		}
	})
}
