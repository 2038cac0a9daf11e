// Package phone normalizes the phone numbers that arrive from WhatsApp, the
// REST API and seed data. Stored numbers mix "+91 98...", "9198..." and bare
// ten digit forms, so lookups compare the trailing ten digits.
package phone

import "strings"

// Digits strips everything but 0-9.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Last10 returns the last ten digits of s, or all of them when shorter.
func Last10(s string) string {
	d := Digits(s)
	if len(d) > 10 {
		return d[len(d)-10:]
	}
	return d
}

// SameSubscriber reports whether a and b share the same trailing ten digits.
func SameSubscriber(a, b string) bool {
	la, lb := Last10(a), Last10(b)
	return la != "" && la == lb
}

// FormatIndia strips formatting and prefixes the 91 country code onto bare
// ten digit numbers.
func FormatIndia(s string) string {
	d := Digits(s)
	if len(d) == 10 && !strings.HasPrefix(d, "91") {
		return "91" + d
	}
	return d
}
