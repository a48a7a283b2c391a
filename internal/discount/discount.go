// Package discount normalizes discount percentages and resolves discount codes.
package discount

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// Percentage is a discount in whole percent. It decodes from a JSON number or
// string; strings use their leading integer and anything unparseable becomes 0.
type Percentage int

func (p *Percentage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*p = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Percentage(Parse(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*p = 0
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		*p = 0
		return nil
	}
	*p = Percentage(Clamp(int(math.Trunc(math.Max(math.Min(f, 1e6), -1e6)))))
	return nil
}

// Int returns the clamped value
func (p Percentage) Int() int {
	return Clamp(int(p))
}

// Parse reads the leading base-10 integer of s (after optional whitespace and sign)
// and clamps it. No digits yields 0.
func Parse(s string) int {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		digits++
		if n < 1000 {
			n = n*10 + int(r-'0')
		}
	}
	if digits == 0 {
		return 0
	}
	if neg {
		n = -n
	}
	return Clamp(n)
}

// Clamp bounds a percentage to [0,100]
func Clamp(pct int) int {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// IsFree reports whether an order collapses to free-order semantics
func IsFree(pct int, explicit bool) bool {
	return explicit || pct >= 100
}

// Codes is a case-insensitive table of discount codes
type Codes struct {
	codes map[string]int
}

// NewCodes builds a table from code -> percentage
func NewCodes(table map[string]int) *Codes {
	codes := make(map[string]int, len(table))
	for code, pct := range table {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		codes[code] = Clamp(pct)
	}
	return &Codes{codes: codes}
}

// Resolve returns the percentage for a code
func (c *Codes) Resolve(code string) (int, bool) {
	if c == nil {
		return 0, false
	}
	pct, ok := c.codes[strings.ToUpper(strings.TrimSpace(code))]
	return pct, ok
}
