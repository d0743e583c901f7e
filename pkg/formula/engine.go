package formula

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Engine parses and evaluates validation-rule formulas. Parsed ASTs are
// cached per expression text, so repeated evaluation of the same rule across
// records pays the parse cost once.
type Engine struct {
	astCache map[string]Node
	mu       sync.RWMutex
}

// NewEngine creates a new formula engine
func NewEngine() *Engine {
	return &Engine{astCache: make(map[string]Node)}
}

// Validate checks a formula parses without evaluating it
func (e *Engine) Validate(expression string) error {
	_, err := e.ast(expression)
	return err
}

// Evaluate parses (with caching) and evaluates a formula against a record
func (e *Engine) Evaluate(expression string, record map[string]interface{}) (interface{}, error) {
	node, err := e.ast(expression)
	if err != nil {
		return nil, err
	}
	return e.eval(node, record)
}

// EvaluateBool evaluates a formula and coerces the result to a boolean
func (e *Engine) EvaluateBool(expression string, record map[string]interface{}) (bool, error) {
	result, err := e.Evaluate(expression, record)
	if err != nil {
		return false, err
	}
	return toBool(result), nil
}

func (e *Engine) ast(expression string) (Node, error) {
	e.mu.RLock()
	if node, ok := e.astCache[expression]; ok {
		e.mu.RUnlock()
		return node, nil
	}
	e.mu.RUnlock()

	node, err := ParseFormula(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.astCache[expression] = node
	e.mu.Unlock()
	return node, nil
}

func (e *Engine) eval(node Node, record map[string]interface{}) (interface{}, error) {
	switch n := node.(type) {
	case *LiteralNode:
		return n.Value, nil

	case *IdentNode:
		// Missing fields evaluate to null so ISBLANK and null checks work
		return record[n.Name], nil

	case *UnaryNode:
		val, err := e.eval(n.Operand, record)
		if err != nil {
			return nil, err
		}
		f, err := toNumber(val)
		if err != nil {
			return nil, fmt.Errorf("unary minus: %w", err)
		}
		return -f, nil

	case *BinaryNode:
		return e.evalBinary(n, record)

	case *CallNode:
		return e.evalCall(n, record)
	}
	return nil, fmt.Errorf("unknown formula node %T", node)
}

func (e *Engine) evalBinary(n *BinaryNode, record map[string]interface{}) (interface{}, error) {
	// Logical operators short-circuit
	switch n.Op {
	case "&&":
		left, err := e.eval(n.Left, record)
		if err != nil {
			return nil, err
		}
		if !toBool(left) {
			return false, nil
		}
		right, err := e.eval(n.Right, record)
		if err != nil {
			return nil, err
		}
		return toBool(right), nil
	case "||":
		left, err := e.eval(n.Left, record)
		if err != nil {
			return nil, err
		}
		if toBool(left) {
			return true, nil
		}
		right, err := e.eval(n.Right, record)
		if err != nil {
			return nil, err
		}
		return toBool(right), nil
	}

	left, err := e.eval(n.Left, record)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.Right, record)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "&":
		return toText(left) + toText(right), nil
	case "=", "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case "+", "-", "*", "/":
		lf, err := toNumber(left)
		if err != nil {
			return nil, fmt.Errorf("operator %s: %w", n.Op, err)
		}
		rf, err := toNumber(right)
		if err != nil {
			return nil, fmt.Errorf("operator %s: %w", n.Op, err)
		}
		switch n.Op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		default:
			if rf == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return lf / rf, nil
		}
	case "<", ">", "<=", ">=":
		return compareOrdered(left, right, n.Op)
	}
	return nil, fmt.Errorf("unsupported operator '%s'", n.Op)
}

func (e *Engine) evalCall(n *CallNode, record map[string]interface{}) (interface{}, error) {
	name := strings.ToUpper(n.Name)

	// IF, AND, OR evaluate arguments lazily
	switch name {
	case "IF":
		if len(n.Args) != 3 {
			return nil, fmt.Errorf("IF requires 3 arguments")
		}
		cond, err := e.eval(n.Args[0], record)
		if err != nil {
			return nil, err
		}
		if toBool(cond) {
			return e.eval(n.Args[1], record)
		}
		return e.eval(n.Args[2], record)
	case "AND":
		for _, arg := range n.Args {
			val, err := e.eval(arg, record)
			if err != nil {
				return nil, err
			}
			if !toBool(val) {
				return false, nil
			}
		}
		return true, nil
	case "OR":
		for _, arg := range n.Args {
			val, err := e.eval(arg, record)
			if err != nil {
				return nil, err
			}
			if toBool(val) {
				return true, nil
			}
		}
		return false, nil
	}

	args := make([]interface{}, len(n.Args))
	for i, arg := range n.Args {
		val, err := e.eval(arg, record)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}
	return callBuiltin(name, args)
}

// ---- coercions ----

// looseEqual implements untyped equality: strings and numbers compare by
// numeric value when both sides parse as numbers, null equals only
// null/empty, everything else compares by string form.
func looseEqual(left, right interface{}) bool {
	if isBlank(left) || isBlank(right) {
		return isBlank(left) && isBlank(right)
	}
	lf, lerr := toNumber(left)
	rf, rerr := toNumber(right)
	if lerr == nil && rerr == nil {
		return lf == rf
	}
	if lb, ok := left.(bool); ok {
		return lb == toBool(right)
	}
	if rb, ok := right.(bool); ok {
		return toBool(left) == rb
	}
	return toText(left) == toText(right)
}

func compareOrdered(left, right interface{}, op string) (interface{}, error) {
	lf, lerr := toNumber(left)
	rf, rerr := toNumber(right)
	if lerr == nil && rerr == nil {
		switch op {
		case "<":
			return lf < rf, nil
		case ">":
			return lf > rf, nil
		case "<=":
			return lf <= rf, nil
		default:
			return lf >= rf, nil
		}
	}
	ls, rs := toText(left), toText(right)
	switch op {
	case "<":
		return ls < rs, nil
	case ">":
		return ls > rs, nil
	case "<=":
		return ls <= rs, nil
	default:
		return ls >= rs, nil
	}
}

func toBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(val)
		return lower == "true" || lower == "1"
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	}
	return false
}

func toNumber(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("'%s' is not a number", val)
		}
		return f, nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, fmt.Errorf("null is not a number")
	}
	return 0, fmt.Errorf("%T is not a number", v)
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

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
