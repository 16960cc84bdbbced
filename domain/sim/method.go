package sim

import (
	"strings"

	"mhtsim/internal/errors"
)

// Method is a multiple-testing correction procedure
type Method string

const (
	MethodBonferroni Method = "bonferroni"
	MethodHochberg   Method = "hochberg"
	MethodBH         Method = "bh"
)

// AllMethods returns the procedures in canonical output order
func AllMethods() []Method {
	return []Method{MethodBonferroni, MethodHochberg, MethodBH}
}

// ParseMethod maps a user-facing name to a Method. Matching is case-insensitive
// and "benjamini-hochberg" is accepted for BH.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bonferroni":
		return MethodBonferroni, nil
	case "hochberg":
		return MethodHochberg, nil
	case "bh", "benjamini-hochberg":
		return MethodBH, nil
	default:
		return "", errors.UnknownMethod(name)
	}
}

// ParseMethods parses a list of names, rejecting duplicates
func ParseMethods(names []string) ([]Method, error) {
	methods := make([]Method, 0, len(names))
	seen := make(map[Method]bool, len(names))
	for _, name := range names {
		m, err := ParseMethod(name)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			return nil, errors.InvalidConfiguration("method %q listed twice", name)
		}
		seen[m] = true
		methods = append(methods, m)
	}
	return methods, nil
}

// Order returns the method's position in AllMethods, or -1
func (m Method) Order() int {
	for i, known := range AllMethods() {
		if known == m {
			return i
		}
	}
	return -1
}

func (m Method) String() string { return string(m) }
