package catalog

import (
	"regexp"
	"strings"
)

// MaxRowTitle is the transport limit on list row titles, in runes.
const MaxRowTitle = 24

var doctorRef = regexp.MustCompile(`Dr\.?\s+([A-Z][a-zA-Z-']+)`)

// TruncateTitle shortens s to max runes, ending in an ellipsis when cut.
func TruncateTitle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// DoctorName returns the first "Dr. Name" reference in text.
func DoctorName(text string) string {
	return doctorRef.FindString(text)
}

// WithTitle prefixes "Dr. " unless name already carries it.
func WithTitle(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	if name == "" || strings.HasPrefix(lower, "dr.") || strings.HasPrefix(lower, "dr ") {
		return name
	}
	return "Dr. " + name
}

// RewriteHeaderDoctor swaps the doctor segment of a header such as
// "Dr. Sharma - Available Slots 📅", keeping everything after " - ".
func RewriteHeaderDoctor(header, name string) string {
	name = WithTitle(name)
	if name == "" {
		return header
	}
	if i := strings.Index(header, " - "); i >= 0 {
		return name + header[i:]
	}
	return name
}

// InjectDoctorName replaces the first doctor reference in body with name, or
// prepends name when the body has none.
func InjectDoctorName(body, name string) string {
	name = WithTitle(name)
	if name == "" {
		return body
	}
	loc := doctorRef.FindStringIndex(body)
	if loc == nil {
		return name + "\n" + body
	}
	return body[:loc[0]] + name + body[loc[1]:]
}

// AlignBodyWithHeader rewrites the body's first doctor reference to the
// header's doctor portion when the two name different doctors. The body
// reference is read to the same number of name words as the header's.
func AlignBodyWithHeader(header, body string) (string, bool) {
	doctor := strings.TrimSpace(header)
	if i := strings.Index(doctor, " - "); i >= 0 {
		doctor = doctor[:i]
	} else if i := strings.Index(doctor, "\n"); i >= 0 {
		doctor = doctor[:i]
	}
	headerLoc := doctorRef.FindStringIndex(doctor)
	bodyLoc := doctorRef.FindStringIndex(body)
	if headerLoc == nil || bodyLoc == nil {
		return body, false
	}
	doctor = doctor[headerLoc[0]:]
	n, words := doctorSpan(doctor, len(doctor))
	doctor = doctor[:n]

	m, _ := doctorSpan(body[bodyLoc[0]:], words)
	end := bodyLoc[0] + m
	if body[bodyLoc[0]:end] == doctor {
		return body, false
	}
	return body[:bodyLoc[0]] + doctor + body[end:], true
}

var (
	titlePrefix = regexp.MustCompile(`^Dr\.?`)
	nameWord    = regexp.MustCompile(`^[ \t]+[A-Z][a-zA-Z-']+`)
)

// doctorSpan measures the "Dr. Name Surname" reference at the start of s,
// reading at most max name words. It returns the byte length and the number
// of words read.
func doctorSpan(s string, max int) (int, int) {
	loc := titlePrefix.FindStringIndex(s)
	if loc == nil {
		return 0, 0
	}
	end, words := loc[1], 0
	for words < max {
		w := nameWord.FindStringIndex(s[end:])
		if w == nil {
			break
		}
		end += w[1]
		words++
	}
	return end, words
}
