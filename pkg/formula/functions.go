package formula

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// callBuiltin dispatches the eagerly-evaluated function library. IF/AND/OR
// are handled by the evaluator because they evaluate arguments lazily.
func callBuiltin(name string, args []interface{}) (interface{}, error) {
	switch name {
	case "ISBLANK", "ISNULL":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return isBlank(args[0]), nil

	case "ISPICKVAL":
		if err := arity(name, args, 2); err != nil {
			return nil, err
		}
		return toText(args[0]) == toText(args[1]), nil

	case "NOT":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return !toBool(args[0]), nil

	case "TEXT":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return toText(args[0]), nil

	case "VALUE":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return toNumber(args[0])

	case "LEN":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return float64(len(toText(args[0]))), nil

	case "BEGINS":
		if err := arity(name, args, 2); err != nil {
			return nil, err
		}
		return strings.HasPrefix(toText(args[0]), toText(args[1])), nil

	case "CONTAINS":
		if err := arity(name, args, 2); err != nil {
			return nil, err
		}
		return strings.Contains(toText(args[0]), toText(args[1])), nil

	case "LOWER":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return strings.ToLower(toText(args[0])), nil

	case "UPPER":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return strings.ToUpper(toText(args[0])), nil

	case "TRIM":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return strings.TrimSpace(toText(args[0])), nil

	case "ABS":
		return mathFn(name, args, math.Abs)

	case "FLOOR":
		return mathFn(name, args, math.Floor)

	case "CEILING":
		return mathFn(name, args, math.Ceil)

	case "ROUND":
		if len(args) != 1 && len(args) != 2 {
			return nil, fmt.Errorf("ROUND requires 1 or 2 arguments, got %d", len(args))
		}
		val, err := toNumber(args[0])
		if err != nil {
			return nil, fmt.Errorf("ROUND: %w", err)
		}
		digits := 0.0
		if len(args) == 2 {
			digits, err = toNumber(args[1])
			if err != nil {
				return nil, fmt.Errorf("ROUND: %w", err)
			}
		}
		mult := math.Pow(10, digits)
		return math.Round(val*mult) / mult, nil

	case "MAX", "MIN":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s requires at least 1 argument", name)
		}
		best, err := toNumber(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, arg := range args[1:] {
			f, err := toNumber(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if (name == "MAX" && f > best) || (name == "MIN" && f < best) {
				best = f
			}
		}
		return best, nil

	case "TODAY":
		if err := arity(name, args, 0); err != nil {
			return nil, err
		}
		return time.Now().Format("2006-01-02"), nil

	case "NOW":
		if err := arity(name, args, 0); err != nil {
			return nil, err
		}
		return time.Now().Format("2006-01-02 15:04:05"), nil
	}

	return nil, fmt.Errorf("unknown function %s", name)
}

func arity(name string, args []interface{}, want int) error {
	if len(args) != want {
		return fmt.Errorf("%s requires %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

func mathFn(name string, args []interface{}, fn func(float64) float64) (interface{}, error) {
	if err := arity(name, args, 1); err != nil {
		return nil, err
	}
	val, err := toNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return fn(val), nil
}
