package version

import (
	"fmt"
	"strings"

	"github.com/wright-pm/wright/pkg/werr"
)

// Op is a version comparison operator.
type Op string

const (
	OpGE Op = ">="
	OpLE Op = "<="
	OpEQ Op = "="
	OpGT Op = ">"
	OpLT Op = "<"
)

// Constraint pairs an operator with the version it compares against.
type Constraint struct {
	Op      Op
	Version Version
}

// operatorPrefixes is checked longest-first so ">=" is not misread as ">".
var operatorPrefixes = []Op{OpGE, OpLE, OpGT, OpLT, OpEQ}

// ParseConstraint parses strings like ">= 1.2.0" or "=1.0.0".
func ParseConstraint(s string) (Constraint, error) {
	trimmed := strings.TrimSpace(s)
	for _, op := range operatorPrefixes {
		if rest, ok := strings.CutPrefix(trimmed, string(op)); ok {
			v, err := Parse(strings.TrimSpace(rest))
			if err != nil {
				return Constraint{}, err
			}
			return Constraint{Op: op, Version: v}, nil
		}
	}
	return Constraint{}, werr.New(werr.KindValidation, fmt.Sprintf("invalid version constraint: %q", trimmed), nil)
}

// Satisfies reports whether v satisfies the constraint.
func (c Constraint) Satisfies(v Version) bool {
	switch c.Op {
	case OpGE:
		return v.GreaterOrEqual(c.Version)
	case OpLE:
		return v.LessOrEqual(c.Version)
	case OpEQ:
		return v.Equal(c.Version)
	case OpGT:
		return v.Greater(c.Version)
	case OpLT:
		return v.Less(c.Version)
	default:
		return false
	}
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %s", c.Op, c.Version)
}

// ParseDependency splits a dependency spec like "openssl >= 3.0" into its
// name and optional constraint. A bare name with no operator returns a
// nil constraint. Operators are tried in priority order (">=", "<=", ">",
// "<", "=") so a two-character operator is never mistaken for the
// single-character one it starts with.
func ParseDependency(dep string) (name string, constraint *Constraint, err error) {
	trimmed := strings.TrimSpace(dep)
	for _, op := range []Op{OpGE, OpLE, OpGT, OpLT, OpEQ} {
		pos := strings.Index(trimmed, string(op))
		if pos == -1 {
			continue
		}
		name = strings.TrimSpace(trimmed[:pos])
		c, err := ParseConstraint(trimmed[pos:])
		if err != nil {
			return "", nil, err
		}
		return name, &c, nil
	}
	return trimmed, nil, nil
}
