package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/soql"
)

// fieldResolver returns a field value for a record, following one-hop parent
// paths like Account.Industry. The second result is false when the path could
// not be resolved (broken lookup, missing parent).
type fieldResolver func(record models.SObject, field string) (interface{}, bool)

// evalWhere evaluates a WHERE tree against one record. Used when relationship
// paths keep the filter out of SQL; semantics mirror the translator so both
// paths agree on every record. Comparisons against an unresolvable or null
// value are false, matching SQL's null behavior, except explicit null checks.
func evalWhere(expr soql.Expr, record models.SObject, resolve fieldResolver, now time.Time) bool {
	switch e := expr.(type) {
	case *soql.LogicalExpr:
		if e.Op == "AND" {
			return evalWhere(e.Left, record, resolve, now) && evalWhere(e.Right, record, resolve, now)
		}
		return evalWhere(e.Left, record, resolve, now) || evalWhere(e.Right, record, resolve, now)

	case *soql.NotExpr:
		return !evalWhere(e.Expr, record, resolve, now)

	case *soql.Comparison:
		value, ok := resolve(record, e.Field)
		if !ok {
			value = nil
		}
		return evalComparison(value, e.Op, e.Value, now)

	case *soql.InSubquery:
		// Inlined before evaluation; an uninlined node matches nothing
		return false
	}
	return false
}

func evalComparison(value interface{}, op string, literal soql.Value, now time.Time) bool {
	switch literal.Kind {
	case soql.ValueNull:
		isNull := value == nil || value == ""
		if op == "=" {
			return isNull
		}
		if op == "!=" {
			return !isNull
		}
		return false

	case soql.ValueDateLiteral:
		return evalDateLiteral(value, op, literal.Text, now)

	case soql.ValueList:
		if value == nil {
			return false
		}
		found := false
		for _, item := range literal.List {
			if looseEquals(value, item.Native()) {
				found = true
				break
			}
		}
		if op == "NOT IN" {
			return !found
		}
		return found
	}

	if value == nil {
		return false
	}

	switch op {
	case "=":
		return looseEquals(value, literal.Native())
	case "!=":
		return !looseEquals(value, literal.Native())
	case "LIKE":
		return matchLike(toText(value), literal.Text)
	case "NOT LIKE":
		return !matchLike(toText(value), literal.Text)
	case "<", ">", "<=", ">=":
		return looseCompare(value, literal, op)
	}
	return false
}

func evalDateLiteral(value interface{}, op, literal string, now time.Time) bool {
	start, end, ok := soql.DateRange(literal, now)
	if !ok || value == nil {
		return false
	}
	text := toText(value)
	if len(text) < 10 {
		return false
	}
	day, err := time.ParseInLocation("2006-01-02", text[:10], now.Location())
	if err != nil {
		return false
	}

	switch op {
	case "=":
		return !day.Before(start) && day.Before(end)
	case "!=":
		return day.Before(start) || !day.Before(end)
	case "<":
		return day.Before(start)
	case "<=":
		return day.Before(end)
	case ">":
		return !day.Before(end)
	case ">=":
		return !day.Before(start)
	}
	return false
}

// looseEquals compares with numeric coercion so a stored 100 matches the
// literal 100.0 regardless of JSON number representation
func looseEquals(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	return toText(a) == toText(b)
}

func looseCompare(value interface{}, literal soql.Value, op string) bool {
	if literal.Kind == soql.ValueNumber {
		vf, ok := toFloat(value)
		if !ok {
			return false
		}
		switch op {
		case "<":
			return vf < literal.Number
		case ">":
			return vf > literal.Number
		case "<=":
			return vf <= literal.Number
		default:
			return vf >= literal.Number
		}
	}
	// Strings and ISO dates order lexicographically
	vs, ls := toText(value), literal.Text
	switch op {
	case "<":
		return vs < ls
	case ">":
		return vs > ls
	case "<=":
		return vs <= ls
	default:
		return vs >= ls
	}
}

// matchLike implements SQL LIKE with % and _ wildcards, case-insensitively
func matchLike(text, pattern string) bool {
	return likeMatch(strings.ToLower(text), strings.ToLower(pattern))
}

func likeMatch(text, pattern string) bool {
	if pattern == "" {
		return text == ""
	}
	switch pattern[0] {
	case '%':
		for i := 0; i <= len(text); i++ {
			if likeMatch(text[i:], pattern[1:]) {
				return true
			}
		}
		return false
	case '_':
		if text == "" {
			return false
		}
		return likeMatch(text[1:], pattern[1:])
	default:
		if text == "" || text[0] != pattern[0] {
			return false
		}
		return likeMatch(text[1:], pattern[1:])
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%v", v)
}
