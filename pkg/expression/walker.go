package expression

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// FieldResolver maps a field name in a filter expression to the SQL
// expression addressing it. With the JSON payload row model that is usually
// a JSON_EXTRACT over the fields column, or the id column for record ids.
type FieldResolver func(field string) (string, error)

// SQLWalker converts an expr AST to a parameterized SQL condition
type SQLWalker struct {
	builder strings.Builder
	args    []interface{}
	resolve FieldResolver
	err     error
}

// isNilNode reports whether a node represents null. expr-lang produces either
// a NilNode or an IdentifierNode spelled "null"/"nil".
func isNilNode(node ast.Node) bool {
	if _, ok := node.(*ast.NilNode); ok {
		return true
	}
	if id, ok := node.(*ast.IdentifierNode); ok {
		val := strings.ToLower(id.Value)
		return val == "null" || val == "nil"
	}
	return false
}

// ToSQL converts a filter expression to a SQL condition and arguments.
// Field identifiers pass through the resolver so callers control how fields
// map onto columns.
func ToSQL(expression string, resolve FieldResolver) (string, []interface{}, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse expression: %w", err)
	}

	walker := &SQLWalker{
		args:    make([]interface{}, 0),
		resolve: resolve,
	}
	walker.walk(&tree.Node)

	if walker.err != nil {
		return "", nil, walker.err
	}
	return walker.builder.String(), walker.args, nil
}

func (w *SQLWalker) walk(node *ast.Node) {
	if w.err != nil {
		return
	}
	if node == nil || *node == nil {
		return
	}

	switch v := (*node).(type) {
	case *ast.BinaryNode:
		w.visitBinary(v)
	case *ast.IdentifierNode:
		w.writeField(v.Value)
	case *ast.IntegerNode:
		w.writeArg(v.Value)
	case *ast.FloatNode:
		w.writeArg(v.Value)
	case *ast.StringNode:
		w.writeArg(v.Value)
	case *ast.BoolNode:
		w.writeArg(v.Value)
	case *ast.NilNode:
		w.builder.WriteString("NULL")
	case *ast.UnaryNode:
		w.visitUnary(v)
	case *ast.CallNode:
		w.visitCall(v)
	default:
		w.err = fmt.Errorf("unsupported node type: %T", *node)
	}
}

func (w *SQLWalker) writeField(name string) {
	if w.resolve == nil {
		w.builder.WriteString(name)
		return
	}
	column, err := w.resolve(name)
	if err != nil {
		w.err = err
		return
	}
	w.builder.WriteString(column)
}

func (w *SQLWalker) writeArg(value interface{}) {
	w.builder.WriteString("?")
	w.args = append(w.args, value)
}

func (w *SQLWalker) visitUnary(node *ast.UnaryNode) {
	switch node.Operator {
	case "!", "not":
		w.builder.WriteString("NOT (")
		w.walk(&node.Node)
		w.builder.WriteString(")")
	case "-":
		w.builder.WriteString("-")
		w.walk(&node.Node)
	default:
		w.err = fmt.Errorf("unsupported unary operator: %s", node.Operator)
	}
}

func (w *SQLWalker) visitBinary(node *ast.BinaryNode) {
	rightIsNil := isNilNode(node.Right)
	leftIsNil := isNilNode(node.Left)

	if rightIsNil || leftIsNil {
		fieldNode := node.Left
		if leftIsNil {
			fieldNode = node.Right
		}

		w.builder.WriteString("(")
		w.walk(&fieldNode)
		switch node.Operator {
		case "==":
			w.builder.WriteString(" IS NULL")
		case "!=":
			w.builder.WriteString(" IS NOT NULL")
		default:
			w.err = fmt.Errorf("unsupported operator for null comparison: %s", node.Operator)
		}
		w.builder.WriteString(")")
		return
	}

	w.builder.WriteString("(")
	w.walk(&node.Left)
	w.builder.WriteString(" ")

	switch node.Operator {
	case "==":
		w.builder.WriteString("=")
	case "&&", "and":
		w.builder.WriteString("AND")
	case "||", "or":
		w.builder.WriteString("OR")
	default:
		w.builder.WriteString(node.Operator)
	}

	w.builder.WriteString(" ")
	w.walk(&node.Right)
	w.builder.WriteString(")")
}

func (w *SQLWalker) visitCall(node *ast.CallNode) {
	callee, ok := node.Callee.(*ast.IdentifierNode)
	if !ok {
		w.err = fmt.Errorf("unsupported callee type: %T", node.Callee)
		return
	}

	switch strings.ToUpper(callee.Value) {
	case "UPPER":
		w.builder.WriteString("UPPER(")
		w.walkArgs(node.Arguments)
		w.builder.WriteString(")")

	case "LOWER":
		w.builder.WriteString("LOWER(")
		w.walkArgs(node.Arguments)
		w.builder.WriteString(")")

	case "LEN":
		w.builder.WriteString("CHAR_LENGTH(")
		w.walkArgs(node.Arguments)
		w.builder.WriteString(")")

	case "TODAY":
		w.builder.WriteString("CURDATE()")

	case "NOW":
		w.builder.WriteString("NOW()")

	case "DATE_ADD":
		if len(node.Arguments) != 2 {
			w.err = fmt.Errorf("DATE_ADD requires 2 arguments")
			return
		}
		w.builder.WriteString("DATE_ADD(")
		arg0 := node.Arguments[0]
		w.walk(&arg0)
		w.builder.WriteString(", INTERVAL ")
		arg1 := node.Arguments[1]
		w.walk(&arg1)
		w.builder.WriteString(" DAY)")

	case "CONTAINS":
		w.likePattern(node, "%", "%")

	case "STARTS_WITH":
		w.likePattern(node, "", "%")

	case "ENDS_WITH":
		w.likePattern(node, "%", "")

	default:
		w.err = fmt.Errorf("unsupported function: %s", callee.Value)
	}
}

func (w *SQLWalker) likePattern(node *ast.CallNode, prefix, suffix string) {
	if len(node.Arguments) != 2 {
		w.err = fmt.Errorf("%s requires 2 arguments", node.Callee.(*ast.IdentifierNode).Value)
		return
	}
	arg0 := node.Arguments[0]
	w.walk(&arg0)
	w.builder.WriteString(" LIKE ")
	strArg, ok := node.Arguments[1].(*ast.StringNode)
	if !ok {
		w.err = fmt.Errorf("pattern argument must be a string literal")
		return
	}
	w.writeArg(prefix + strArg.Value + suffix)
}

func (w *SQLWalker) walkArgs(args []ast.Node) {
	for i, arg := range args {
		if i > 0 {
			w.builder.WriteString(", ")
		}
		argNode := arg
		w.walk(&argNode)
	}
}
