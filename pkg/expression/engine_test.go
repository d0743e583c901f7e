package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateFilter(t *testing.T) {
	engine := NewEngine()
	env := map[string]interface{}{
		"Amount": 1500.0,
		"Stage":  "Negotiation",
	}

	result, err := engine.EvaluateBool(`Amount > 1000 && Stage != "Closed Lost"`, env)
	require.NoError(t, err)
	assert.True(t, result)

	result, err = engine.EvaluateBool(`Amount > 2000`, env)
	require.NoError(t, err)
	assert.False(t, result)
}

func TestEvaluateBuiltins(t *testing.T) {
	engine := NewEngine()
	env := map[string]interface{}{"Name": "Acme Corp"}

	tests := []struct {
		name     string
		expr     string
		expected interface{}
	}{
		{"upper", `UPPER(Name)`, "ACME CORP"},
		{"lower", `LOWER(Name)`, "acme corp"},
		{"len", `LEN(Name)`, 9},
		{"contains", `CONTAINS(Name, "Corp")`, true},
		{"starts_with", `STARTS_WITH(Name, "Acme")`, true},
		{"ends_with", `ENDS_WITH(Name, "Inc")`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Evaluate(tt.expr, env)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRegisterFunction(t *testing.T) {
	engine := NewEngine()
	engine.RegisterFunction("DOUBLE", func(params ...interface{}) (interface{}, error) {
		return params[0].(int) * 2, nil
	})

	result, err := engine.Evaluate(`DOUBLE(21)`, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestValidateExpression(t *testing.T) {
	engine := NewEngine()
	env := map[string]interface{}{"Amount": 0.0}

	assert.NoError(t, engine.Validate(`Amount > 100`, env))
	assert.Error(t, engine.Validate(`Amount >`, env))
}
