// Package permission evaluates flat permission sets.
//
// Permission codes are opaque, case-sensitive strings such as "SCREENING_VIEW".
// There is no hierarchy and no wildcard matching: a code is granted only when
// the exact same string is present in the set.
package permission

import "sort"

// Set is an immutable set of permission codes.
//
// The zero value is an empty set and is ready to use.
type Set struct {
	codes map[string]struct{}
}

// NewSet builds a Set from the given codes. Duplicates are collapsed and
// empty strings are ignored.
func NewSet(codes ...string) Set {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c == "" {
			continue
		}
		m[c] = struct{}{}
	}
	return Set{codes: m}
}

// Contains reports whether code is a member of the set.
func (s Set) Contains(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of distinct codes in the set.
func (s Set) Len() int {
	return len(s.codes)
}

// Codes returns the members of the set in lexical order.
func (s Set) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Has reports whether set grants code.
func Has(set Set, code string) bool {
	return set.Contains(code)
}

// HasAny reports whether set grants at least one of codes.
// An empty codes list is never satisfied.
func HasAny(set Set, codes []string) bool {
	for _, c := range codes {
		if set.Contains(c) {
			return true
		}
	}
	return false
}

// HasAll reports whether set grants every one of codes.
// An empty codes list is always satisfied.
func HasAll(set Set, codes []string) bool {
	for _, c := range codes {
		if !set.Contains(c) {
			return false
		}
	}
	return true
}
