package domain

import (
	"strings"
	"unicode"
)

// NormalizeQuery strips every whitespace rune and lowercases the rest.
func NormalizeQuery(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Matches reports whether any searchable field contains q once both sides
// are normalized. An empty query matches everything.
func (r RawUser) Matches(q string) bool {
	nq := NormalizeQuery(q)
	if nq == "" {
		return true
	}
	return r.matchesNormalized(nq)
}

func (r RawUser) matchesNormalized(nq string) bool {
	fields := []FlexString{
		r.FirstName,
		r.LastName,
		r.Email,
		r.Phone,
		r.CarModel,
		r.CarColor,
		r.PlateNumber,
		r.Letters,
	}
	for _, f := range fields {
		if strings.Contains(NormalizeQuery(string(f)), nq) {
			return true
		}
	}
	return false
}

// FilterUsers keeps the entries matching q, in source order.
func FilterUsers(raws []RawUser, q string) []RawUser {
	nq := NormalizeQuery(q)
	if nq == "" {
		out := make([]RawUser, len(raws))
		copy(out, raws)
		return out
	}
	out := make([]RawUser, 0, len(raws))
	for _, r := range raws {
		if r.matchesNormalized(nq) {
			out = append(out, r)
		}
	}
	return out
}
