package soql

import (
	"fmt"
	"strings"
)

// Query is the parsed form of one SELECT statement. Immutable once parsed.
type Query struct {
	Fields      []Projection
	From        string
	Where       Expr
	GroupBy     []string
	OrderBy     []OrderClause
	Limit       *int
	Offset      *int
	IsCount     bool
	IsAggregate bool
}

// OrderClause is one ORDER BY entry
type OrderClause struct {
	Field     string
	Direction string // ASC or DESC
}

// Projection is one entry of the field list
type Projection interface {
	fmt.Stringer
	projection()
}

// FieldRef is a plain field of the queried object
type FieldRef struct {
	Name string
}

func (f *FieldRef) projection()    {}
func (f *FieldRef) String() string { return f.Name }

// RelationshipField traverses exactly one parent relationship,
// e.g. Account.Name on a Contact query.
type RelationshipField struct {
	Relationship string
	Field        string
}

func (f *RelationshipField) projection() {}
func (f *RelationshipField) String() string {
	return f.Relationship + "." + f.Field
}

// Path returns the dotted form of the traversal
func (f *RelationshipField) Path() string { return f.String() }

// Subquery is a nested child query, e.g. (SELECT Id FROM Contacts).
// Its FROM names the child relationship, not an object.
type Subquery struct {
	Query *Query
}

func (s *Subquery) projection()    {}
func (s *Subquery) String() string { return "(" + s.Query.String() + ")" }

// Relationship returns the child relationship name the subquery targets
func (s *Subquery) Relationship() string { return s.Query.From }

// AggregateField is an aggregate function projection, e.g. SUM(Amount) or
// COUNT(Id). A bare COUNT() is represented on Query.IsCount instead.
type AggregateField struct {
	Func  string // COUNT, SUM, AVG, MIN, MAX
	Field string // empty for COUNT()
}

func (a *AggregateField) projection() {}
func (a *AggregateField) String() string {
	return a.Func + "(" + a.Field + ")"
}

// Alias is the key the aggregate value is returned under
func (a *AggregateField) Alias() string {
	if a.Field == "" {
		return "expr0"
	}
	return strings.ToLower(a.Func) + "_" + strings.ReplaceAll(a.Field, ".", "_")
}

// Expr is a node of the WHERE tree
type Expr interface {
	fmt.Stringer
	expr()
}

// LogicalExpr joins two conditions with AND or OR
type LogicalExpr struct {
	Op    string // AND or OR
	Left  Expr
	Right Expr
}

func (e *LogicalExpr) expr() {}
func (e *LogicalExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}

// NotExpr negates a condition
type NotExpr struct {
	Expr Expr
}

func (e *NotExpr) expr()          {}
func (e *NotExpr) String() string { return "(NOT " + e.Expr.String() + ")" }

// Comparison is field <op> value, including LIKE and IN against literal lists
type Comparison struct {
	Field string // may be a dotted relationship path
	Op    string // = != < > <= >= LIKE IN NOT IN
	Value Value
}

func (e *Comparison) expr() {}
func (e *Comparison) String() string {
	return e.Field + " " + e.Op + " " + e.Value.String()
}

// InSubquery is field [NOT] IN (SELECT ...). The inner query is parsed but
// not evaluated until execution, where it runs exactly once per WHERE tree.
type InSubquery struct {
	Field   string
	Negated bool
	Query   *Query
}

func (e *InSubquery) expr() {}
func (e *InSubquery) String() string {
	op := "IN"
	if e.Negated {
		op = "NOT IN"
	}
	return e.Field + " " + op + " (" + e.Query.String() + ")"
}

// Key identifies structurally identical subqueries so one execution can be
// shared across the WHERE tree.
func (e *InSubquery) Key() string { return e.Query.String() }

// ValueKind tags a literal
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueNull
	ValueDate        // concrete ISO date or datetime
	ValueDateLiteral // TODAY, THIS_MONTH, ... resolved at translation time
	ValueList        // literal IN list
)

// Value is a typed WHERE literal
type Value struct {
	Kind   ValueKind
	Text   string // raw text for String/Date/DateLiteral kinds
	Number float64
	Bool   bool
	List   []Value
}

func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return "'" + strings.ReplaceAll(v.Text, "'", "\\'") + "'"
	case ValueNumber:
		return trimFloat(v.Number)
	case ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueNull:
		return "null"
	case ValueDate, ValueDateLiteral:
		return v.Text
	case ValueList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return ""
}

// Native returns the Go value of a scalar literal
func (v Value) Native() interface{} {
	switch v.Kind {
	case ValueString, ValueDate:
		return v.Text
	case ValueNumber:
		return v.Number
	case ValueBool:
		return v.Bool
	case ValueNull:
		return nil
	}
	return v.Text
}

// String serializes the query back to its canonical text form. Re-parsing the
// output yields a structurally identical AST.
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.IsCount && len(q.Fields) == 0 {
		sb.WriteString("COUNT()")
	} else {
		parts := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			parts[i] = f.String()
		}
		sb.WriteString(strings.Join(parts, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.From)
	if q.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.Where.String())
	}
	if len(q.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(q.GroupBy, ", "))
	}
	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		parts := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			parts[i] = o.Field + " " + o.Direction
		}
		sb.WriteString(strings.Join(parts, ", "))
	}
	if q.Limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", *q.Limit))
	}
	if q.Offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", *q.Offset))
	}
	return sb.String()
}

// HasRelationshipFields reports whether any projection traverses a parent
func (q *Query) HasRelationshipFields() bool {
	for _, f := range q.Fields {
		if _, ok := f.(*RelationshipField); ok {
			return true
		}
	}
	return false
}

// HasSubqueries reports whether any projection is a child subquery
func (q *Query) HasSubqueries() bool {
	for _, f := range q.Fields {
		if _, ok := f.(*Subquery); ok {
			return true
		}
	}
	return false
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%v", f)
	return s
}
