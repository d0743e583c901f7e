package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteralOperands(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Node
	}{
		{"string single quote", "'hello'", &LiteralNode{Value: "hello"}},
		{"string double quote", `"hello"`, &LiteralNode{Value: "hello"}},
		{"integer", "42", &LiteralNode{Value: 42.0}},
		{"decimal", "1.5", &LiteralNode{Value: 1.5}},
		{"true", "true", &LiteralNode{Value: true}},
		{"TRUE", "TRUE", &LiteralNode{Value: true}},
		{"false", "false", &LiteralNode{Value: false}},
		{"null", "null", &LiteralNode{Value: nil}},
		{"field", "Amount", &IdentNode{Name: "Amount"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := ParseFormula(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, node)
		})
	}
}

func TestParseLeftToRightChaining(t *testing.T) {
	// 1 + 2 * 3 chains left to right with no precedence: (1 + 2) * 3
	node, err := ParseFormula("1 + 2 * 3")
	require.NoError(t, err)

	outer, ok := node.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "*", outer.Op)

	inner, ok := outer.Left.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "+", inner.Op)
	assert.Equal(t, &LiteralNode{Value: 1.0}, inner.Left)
	assert.Equal(t, &LiteralNode{Value: 2.0}, inner.Right)
}

func TestParseParenthesesGroup(t *testing.T) {
	node, err := ParseFormula("1 + (2 * 3)")
	require.NoError(t, err)

	outer := node.(*BinaryNode)
	assert.Equal(t, "+", outer.Op)
	inner := outer.Right.(*BinaryNode)
	assert.Equal(t, "*", inner.Op)
}

func TestParseFunctionCall(t *testing.T) {
	node, err := ParseFormula("IF(ISBLANK(Name), 'missing', Name)")
	require.NoError(t, err)

	call, ok := node.(*CallNode)
	require.True(t, ok)
	assert.Equal(t, "IF", call.Name)
	require.Len(t, call.Args, 3)

	cond, ok := call.Args[0].(*CallNode)
	require.True(t, ok)
	assert.Equal(t, "ISBLANK", cond.Name)
	require.Len(t, cond.Args, 1)
	assert.Equal(t, &IdentNode{Name: "Name"}, cond.Args[0])
}

func TestParseConcatVersusLogical(t *testing.T) {
	concat, err := ParseFormula("'a' & 'b'")
	require.NoError(t, err)
	assert.Equal(t, "&", concat.(*BinaryNode).Op)

	logical, err := ParseFormula("true && false")
	require.NoError(t, err)
	assert.Equal(t, "&&", logical.(*BinaryNode).Op)
}

func TestParseUnaryMinus(t *testing.T) {
	node, err := ParseFormula("-Amount + 5")
	require.NoError(t, err)

	outer := node.(*BinaryNode)
	assert.Equal(t, "+", outer.Op)
	neg, ok := outer.Left.(*UnaryNode)
	require.True(t, ok)
	assert.Equal(t, &IdentNode{Name: "Amount"}, neg.Operand)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unterminated string", "'oops"},
		{"stray bang", "!Amount"},
		{"single pipe", "a | b"},
		{"double dot number", "1.2.3"},
		{"missing close paren", "IF(true, 1, 2"},
		{"dangling operator", "Amount +"},
		{"trailing garbage", "1 + 2 )"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFormula(tt.input)
			require.Error(t, err)
		})
	}
}
