package permission

import (
	"fmt"
	"strings"
)

// Mode selects how a multi-code requirement is composed.
type Mode int

const (
	// ModeAll requires every listed code.
	ModeAll Mode = iota
	// ModeAny requires at least one listed code.
	ModeAny
)

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeAny:
		return "any"
	default:
		return "unknown"
	}
}

// ParseMode parses "all" or "any".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return ModeAll, nil
	case "any":
		return ModeAny, nil
	default:
		return ModeAll, fmt.Errorf("unknown permission mode %q (expected all or any)", s)
	}
}

// Requirement is an authorization query over a permission set.
//
// A nil *Requirement means "no requirement" and is handled by the caller
// before any list logic runs. A non-nil requirement with an empty code list
// follows HasAll/HasAny semantics: empty ALL passes, empty ANY fails.
type Requirement struct {
	Codes []string
	Mode  Mode
}

// Require returns a single-code requirement.
func Require(code string) *Requirement {
	return &Requirement{Codes: []string{code}, Mode: ModeAll}
}

// AllOf returns a requirement satisfied only when every code is granted.
func AllOf(codes ...string) *Requirement {
	return &Requirement{Codes: append([]string{}, codes...), Mode: ModeAll}
}

// AnyOf returns a requirement satisfied when at least one code is granted.
func AnyOf(codes ...string) *Requirement {
	return &Requirement{Codes: append([]string{}, codes...), Mode: ModeAny}
}

// SatisfiedBy evaluates the requirement against set.
func (r *Requirement) SatisfiedBy(set Set) bool {
	if r.Mode == ModeAny {
		return HasAny(set, r.Codes)
	}
	return HasAll(set, r.Codes)
}

// String renders the requirement for logs and CLI output.
func (r *Requirement) String() string {
	if r == nil {
		return "none"
	}
	if len(r.Codes) == 1 {
		return r.Codes[0]
	}
	return fmt.Sprintf("%s(%s)", r.Mode, strings.Join(r.Codes, ","))
}
