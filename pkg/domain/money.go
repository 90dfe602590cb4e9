package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	dErrors "domainvault/pkg/domain-errors"
)

// Money is an amount in the registrar's native currency, stored in cents.
// It renders as a plain decimal number in JSON.
type Money int64

// ParseMoney parses decimal amounts such as "12.99", "1,234.5" or "-3".
// Digits past the second decimal place are rounded half up.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount is empty")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid amount %q", s))
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid amount %q", s))
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100-1 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount out of range")
	}

	cents := int64(0)
	switch {
	case len(frac) == 0:
	case len(frac) == 1:
		cents = int64(frac[0]-'0') * 10
	default:
		cents = int64(frac[0]-'0')*10 + int64(frac[1]-'0')
		if len(frac) > 2 && frac[2] >= '5' {
			cents++
		}
	}

	total := units*100 + cents
	if negative {
		total = -total
	}
	return Money(total), nil
}

// MustParseMoney is ParseMoney for constants in tests and seeds.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Times multiplies an amount by a whole quantity such as registration years.
func (m Money) Times(n int) Money {
	return m * Money(n)
}

// Cents returns the raw cent amount.
func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*m = 0
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
