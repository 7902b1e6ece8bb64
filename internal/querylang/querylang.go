// Package querylang parses the small filter-clause language the query
// REPL accepts: "<column> <op> <value>" for a single-sided bound, or
// "<column> range <bracket-expr>" for a two-sided bound written with
// mathematical interval notation, e.g. "resale_price range [300000,500000)".
package querylang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/resaleidx/resaleidx/internal/interval"
)

// ParseClause splits one filter clause into its column name, operator
// (one of "=", "<", "<=", ">", ">=", "range"), and the remaining
// (unparsed) value text.
func ParseClause(clause string) (column, op, rest string, err error) {
	fields := strings.Fields(clause)
	if len(fields) < 3 {
		return "", "", "", fmt.Errorf("querylang: clause %q: expected \"<column> <op> <value>\"", clause)
	}
	column = fields[0]
	op = fields[1]
	rest = strings.TrimSpace(strings.Join(fields[2:], " "))
	switch op {
	case "=", "<", "<=", ">", ">=", "range":
		return column, op, rest, nil
	default:
		return "", "", "", fmt.Errorf("querylang: clause %q: unknown operator %q", clause, op)
	}
}

// ParseRange parses a bracketed two-sided bound, e.g. "[A,B)" or "(A,B]".
func ParseRange(s string) (lo, hi string, includeLo, includeHi bool, err error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return "", "", false, false, fmt.Errorf("querylang: range %q: too short", s)
	}
	switch s[0] {
	case '[':
		includeLo = true
	case '(':
		includeLo = false
	default:
		return "", "", false, false, fmt.Errorf("querylang: range %q: must start with '[' or '('", s)
	}
	switch s[len(s)-1] {
	case ']':
		includeHi = true
	case ')':
		includeHi = false
	default:
		return "", "", false, false, fmt.Errorf("querylang: range %q: must end with ']' or ')'", s)
	}

	inner := s[1 : len(s)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return "", "", false, false, fmt.Errorf("querylang: range %q: expected exactly one comma", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), includeLo, includeHi, nil
}

func rangeType(includeLo, includeHi bool) interval.Type {
	switch {
	case includeLo && includeHi:
		return interval.ClosedClosed
	case includeLo && !includeHi:
		return interval.ClosedOpen
	case !includeLo && includeHi:
		return interval.OpenClosed
	default:
		return interval.OpenOpen
	}
}

// StringInterval builds a string-keyed interval from an operator and its
// (already-tokenized) value text.
func StringInterval(op, rest string) (interval.Interval[string], error) {
	switch op {
	case "=":
		return interval.Interval[string]{Type: interval.ClosedClosed, Start: rest, End: rest}, nil
	case ">":
		return interval.Interval[string]{Type: interval.FromOpen, Start: rest}, nil
	case ">=":
		return interval.Interval[string]{Type: interval.FromClosed, Start: rest}, nil
	case "<":
		return interval.Interval[string]{Type: interval.UpToOpen, End: rest}, nil
	case "<=":
		return interval.Interval[string]{Type: interval.UpToClosed, End: rest}, nil
	case "range":
		lo, hi, incLo, incHi, err := ParseRange(rest)
		if err != nil {
			return interval.Interval[string]{}, err
		}
		return interval.Interval[string]{Type: rangeType(incLo, incHi), Start: lo, End: hi}, nil
	default:
		return interval.Interval[string]{}, fmt.Errorf("querylang: unsupported operator %q", op)
	}
}

// Float64Interval builds a float64-keyed interval from an operator and
// its value text, parsing the numeric literal(s).
func Float64Interval(op, rest string) (interval.Interval[float64], error) {
	parse := func(s string) (float64, error) { return strconv.ParseFloat(strings.TrimSpace(s), 64) }
	switch op {
	case "=":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[float64]{}, err
		}
		return interval.Interval[float64]{Type: interval.ClosedClosed, Start: v, End: v}, nil
	case ">":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[float64]{}, err
		}
		return interval.Interval[float64]{Type: interval.FromOpen, Start: v}, nil
	case ">=":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[float64]{}, err
		}
		return interval.Interval[float64]{Type: interval.FromClosed, Start: v}, nil
	case "<":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[float64]{}, err
		}
		return interval.Interval[float64]{Type: interval.UpToOpen, End: v}, nil
	case "<=":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[float64]{}, err
		}
		return interval.Interval[float64]{Type: interval.UpToClosed, End: v}, nil
	case "range":
		loStr, hiStr, incLo, incHi, err := ParseRange(rest)
		if err != nil {
			return interval.Interval[float64]{}, err
		}
		lo, err := parse(loStr)
		if err != nil {
			return interval.Interval[float64]{}, err
		}
		hi, err := parse(hiStr)
		if err != nil {
			return interval.Interval[float64]{}, err
		}
		return interval.Interval[float64]{Type: rangeType(incLo, incHi), Start: lo, End: hi}, nil
	default:
		return interval.Interval[float64]{}, fmt.Errorf("querylang: unsupported operator %q", op)
	}
}

// Int32Interval builds an int32-keyed interval from an operator and its
// value text, parsing the integer literal(s).
func Int32Interval(op, rest string) (interval.Interval[int32], error) {
	parse := func(s string) (int32, error) {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		return int32(v), err
	}
	switch op {
	case "=":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[int32]{}, err
		}
		return interval.Interval[int32]{Type: interval.ClosedClosed, Start: v, End: v}, nil
	case ">":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[int32]{}, err
		}
		return interval.Interval[int32]{Type: interval.FromOpen, Start: v}, nil
	case ">=":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[int32]{}, err
		}
		return interval.Interval[int32]{Type: interval.FromClosed, Start: v}, nil
	case "<":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[int32]{}, err
		}
		return interval.Interval[int32]{Type: interval.UpToOpen, End: v}, nil
	case "<=":
		v, err := parse(rest)
		if err != nil {
			return interval.Interval[int32]{}, err
		}
		return interval.Interval[int32]{Type: interval.UpToClosed, End: v}, nil
	case "range":
		loStr, hiStr, incLo, incHi, err := ParseRange(rest)
		if err != nil {
			return interval.Interval[int32]{}, err
		}
		lo, err := parse(loStr)
		if err != nil {
			return interval.Interval[int32]{}, err
		}
		hi, err := parse(hiStr)
		if err != nil {
			return interval.Interval[int32]{}, err
		}
		return interval.Interval[int32]{Type: rangeType(incLo, incHi), Start: lo, End: hi}, nil
	default:
		return interval.Interval[int32]{}, fmt.Errorf("querylang: unsupported operator %q", op)
	}
}
