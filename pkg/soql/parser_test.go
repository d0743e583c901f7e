package soql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openforce/backend/pkg/errors"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := Parse("SELECT Id, Name FROM Account")
	require.NoError(t, err)

	assert.Equal(t, "Account", q.From)
	require.Len(t, q.Fields, 2)
	assert.Equal(t, &FieldRef{Name: "Id"}, q.Fields[0])
	assert.Equal(t, &FieldRef{Name: "Name"}, q.Fields[1])
	assert.Nil(t, q.Where)
	assert.False(t, q.IsCount)
}

func TestParseRelationshipField(t *testing.T) {
	q, err := Parse("SELECT Id, Account.Name FROM Contact")
	require.NoError(t, err)

	require.Len(t, q.Fields, 2)
	rel, ok := q.Fields[1].(*RelationshipField)
	require.True(t, ok)
	assert.Equal(t, "Account", rel.Relationship)
	assert.Equal(t, "Name", rel.Field)
	assert.True(t, q.HasRelationshipFields())
}

func TestParseChildSubquery(t *testing.T) {
	q, err := Parse("SELECT Id, (SELECT Id, Email FROM Contacts) FROM Account")
	require.NoError(t, err)

	require.Len(t, q.Fields, 2)
	sub, ok := q.Fields[1].(*Subquery)
	require.True(t, ok)
	assert.Equal(t, "Contacts", sub.Relationship())
	assert.Len(t, sub.Query.Fields, 2)
	assert.True(t, q.HasSubqueries())
}

func TestParseWherePrecedence(t *testing.T) {
	// NOT binds tighter than AND, AND tighter than OR
	q, err := Parse("SELECT Id FROM Lead WHERE a = 1 OR b = 2 AND NOT c = 3")
	require.NoError(t, err)

	or, ok := q.Where.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, "OR", or.Op)

	and, ok := or.Right.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, "AND", and.Op)

	not, ok := and.Right.(*NotExpr)
	require.True(t, ok)
	cmp, ok := not.Expr.(*Comparison)
	require.True(t, ok)
	assert.Equal(t, "c", cmp.Field)
}

func TestParseWhereParenthesesOverridePrecedence(t *testing.T) {
	q, err := Parse("SELECT Id FROM Lead WHERE (a = 1 OR b = 2) AND c = 3")
	require.NoError(t, err)

	and, ok := q.Where.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, "AND", and.Op)
	or, ok := and.Left.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, "OR", or.Op)
}

func TestParseWhereLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Value
	}{
		{"string", "SELECT Id FROM a WHERE f = 'x'", Value{Kind: ValueString, Text: "x"}},
		{"number", "SELECT Id FROM a WHERE f > 100", Value{Kind: ValueNumber, Number: 100}},
		{"decimal", "SELECT Id FROM a WHERE f <= 1.5", Value{Kind: ValueNumber, Number: 1.5}},
		{"bool", "SELECT Id FROM a WHERE f = true", Value{Kind: ValueBool, Bool: true}},
		{"null", "SELECT Id FROM a WHERE f != null", Value{Kind: ValueNull}},
		{"iso date", "SELECT Id FROM a WHERE f >= 2024-06-01", Value{Kind: ValueDate, Text: "2024-06-01"}},
		{"date literal", "SELECT Id FROM a WHERE f = TODAY", Value{Kind: ValueDateLiteral, Text: "TODAY"}},
		{"counted date literal", "SELECT Id FROM a WHERE f >= LAST_N_DAYS:7", Value{Kind: ValueDateLiteral, Text: "LAST_N_DAYS:7"}},
		{"counted future literal", "SELECT Id FROM a WHERE f < NEXT_N_DAYS:30", Value{Kind: ValueDateLiteral, Text: "NEXT_N_DAYS:30"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.input)
			require.NoError(t, err)
			cmp, ok := q.Where.(*Comparison)
			require.True(t, ok)
			assert.Equal(t, tt.expected, cmp.Value)
		})
	}
}

func TestParseLikeAndIn(t *testing.T) {
	q, err := Parse("SELECT Id FROM Account WHERE Name LIKE '%Acme%' AND Industry IN ('Tech', 'Finance')")
	require.NoError(t, err)

	and := q.Where.(*LogicalExpr)
	like := and.Left.(*Comparison)
	assert.Equal(t, "LIKE", like.Op)
	assert.Equal(t, "%Acme%", like.Value.Text)

	in := and.Right.(*Comparison)
	assert.Equal(t, "IN", in.Op)
	require.Equal(t, ValueList, in.Value.Kind)
	require.Len(t, in.Value.List, 2)
	assert.Equal(t, "Tech", in.Value.List[0].Text)
}

func TestParseNotIn(t *testing.T) {
	q, err := Parse("SELECT Id FROM Account WHERE Industry NOT IN ('Tech')")
	require.NoError(t, err)
	cmp := q.Where.(*Comparison)
	assert.Equal(t, "NOT IN", cmp.Op)
}

func TestParseInSubquery(t *testing.T) {
	q, err := Parse("SELECT Id FROM Account WHERE Id IN (SELECT AccountId FROM Contact WHERE Email != null)")
	require.NoError(t, err)

	sub, ok := q.Where.(*InSubquery)
	require.True(t, ok)
	assert.Equal(t, "Id", sub.Field)
	assert.False(t, sub.Negated)
	assert.Equal(t, "Contact", sub.Query.From)
	assert.NotNil(t, sub.Query.Where)
}

func TestParseCount(t *testing.T) {
	q, err := Parse("SELECT COUNT() FROM Account WHERE Industry = 'Tech'")
	require.NoError(t, err)
	assert.True(t, q.IsCount)
	assert.Empty(t, q.Fields)
}

func TestParseGroupByAggregate(t *testing.T) {
	q, err := Parse("SELECT Industry, COUNT(Id), SUM(AnnualRevenue) FROM Account GROUP BY Industry")
	require.NoError(t, err)

	assert.True(t, q.IsAggregate)
	assert.Equal(t, []string{"Industry"}, q.GroupBy)
	require.Len(t, q.Fields, 3)
	count := q.Fields[1].(*AggregateField)
	assert.Equal(t, "COUNT", count.Func)
	assert.Equal(t, "Id", count.Field)
	sum := q.Fields[2].(*AggregateField)
	assert.Equal(t, "SUM", sum.Func)
}

func TestParseOrderLimitOffset(t *testing.T) {
	q, err := Parse("SELECT Id FROM Account ORDER BY Name DESC, Industry LIMIT 10 OFFSET 20")
	require.NoError(t, err)

	require.Len(t, q.OrderBy, 2)
	assert.Equal(t, OrderClause{Field: "Name", Direction: "DESC"}, q.OrderBy[0])
	assert.Equal(t, OrderClause{Field: "Industry", Direction: "ASC"}, q.OrderBy[1])
	require.NotNil(t, q.Limit)
	assert.Equal(t, 10, *q.Limit)
	require.NotNil(t, q.Offset)
	assert.Equal(t, 20, *q.Offset)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing FROM", "SELECT Id"},
		{"missing field list", "SELECT FROM Account"},
		{"dangling WHERE", "SELECT Id FROM Account WHERE"},
		{"bad operator sequence", "SELECT Id FROM Account WHERE Name = = 'x'"},
		{"count with fields", "SELECT COUNT(), Id FROM Account"},
		{"fields with count", "SELECT Id, COUNT() FROM Account"},
		{"deep relationship path", "SELECT Account.Owner.Name FROM Contact"},
		{"deep path in where", "SELECT Id FROM Contact WHERE Account.Owner.Name = 'x'"},
		{"nested child subquery", "SELECT Id, (SELECT Id, (SELECT Id FROM Items) FROM Contacts) FROM Account"},
		{"IN subquery selecting two fields", "SELECT Id FROM Account WHERE Id IN (SELECT Id, Name FROM Contact)"},
		{"trailing garbage", "SELECT Id FROM Account LIMIT 5 garbage"},
		{"negative limit", "SELECT Id FROM Account LIMIT -1"},
		{"counted literal without count", "SELECT Id FROM a WHERE f >= LAST_N_DAYS:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.IsParse(err), "expected a ParseError, got %T", err)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	// Serializing the AST and re-parsing must yield a structurally
	// identical AST.
	queries := []string{
		"SELECT Id, Name FROM Account",
		"SELECT Id, Account.Name FROM Contact WHERE Account.Industry = 'Tech'",
		"SELECT Id, (SELECT Id FROM Contacts) FROM Account",
		"SELECT Id FROM Lead WHERE a = 1 OR b = 2 AND NOT c = 3",
		"SELECT Id FROM Account WHERE Name LIKE '%x%' AND Industry IN ('Tech', 'Finance')",
		"SELECT Id FROM Account WHERE Id IN (SELECT AccountId FROM Contact)",
		"SELECT COUNT() FROM Account",
		"SELECT Industry, COUNT(Id) FROM Account GROUP BY Industry",
		"SELECT Id FROM Account WHERE CreatedDate >= 2024-01-01 ORDER BY Name DESC LIMIT 10 OFFSET 5",
		"SELECT Id FROM Opportunity WHERE CloseDate = THIS_MONTH AND Amount > 1000",
	}
	for _, input := range queries {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input)
			require.NoError(t, err)

			second, err := Parse(first.String())
			require.NoError(t, err, "serialized form must re-parse: %s", first.String())
			assert.Equal(t, first, second)
		})
	}
}
