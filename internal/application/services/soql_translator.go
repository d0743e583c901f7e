package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/openforce/backend/internal/domain/ports"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/query"
	"github.com/openforce/backend/pkg/soql"
)

// TranslatedQuery is the SQL plan produced for a parsed query
type TranslatedQuery struct {
	SQL query.QueryResult

	// PostProcess is set when the WHERE tree references parent relationship
	// paths, which the single-table SQL cannot resolve. The executor then
	// fetches candidates without the filter and evaluates the original WHERE
	// in memory; ordering and limits are withheld from the SQL too so they
	// apply after filtering.
	PostProcess bool
}

// SOQLTranslator turns a parsed query into parameterized SQL against the
// JSON payload row model. IN-subqueries must be inlined to literal lists
// before translation; the executor owns that step.
type SOQLTranslator struct {
	schema ports.SchemaProvider

	// now anchors relative date literals for one execution
	now func() time.Time
}

// NewSOQLTranslator creates a new SOQLTranslator
func NewSOQLTranslator(schema ports.SchemaProvider) *SOQLTranslator {
	return &SOQLTranslator{schema: schema, now: time.Now}
}

// Translate builds the SQL plan for a query
func (t *SOQLTranslator) Translate(q *soql.Query) (*TranslatedQuery, error) {
	if _, ok := t.schema.Object(q.From); !ok {
		return nil, apperrors.NewParseError(q.String(), fmt.Sprintf("unknown object '%s'", q.From))
	}

	builder := query.From(t.schema.TableFor(q.From))
	out := &TranslatedQuery{}

	switch {
	case q.IsCount:
		builder.SelectRaw("COUNT(*)")
	case q.IsAggregate:
		if err := t.selectAggregate(builder, q); err != nil {
			return nil, err
		}
	default:
		builder.SelectColumns(constants.ColumnID, constants.ColumnFields)
	}

	if q.Where != nil {
		if whereTreeNeedsPostProcess(q.Where) {
			out.PostProcess = true
		} else {
			sql, args, err := t.translateExpr(q.Where)
			if err != nil {
				return nil, err
			}
			builder.WhereRaw(sql, args)
		}
	}

	for _, group := range q.GroupBy {
		builder.GroupBy(query.FieldExpr(group))
	}

	// With post-processing pending, ordering and windowing move in memory
	if !out.PostProcess {
		for _, order := range q.OrderBy {
			builder.OrderBy(query.RawFieldExpr(order.Field), order.Direction)
		}
		if q.Limit != nil {
			builder.Limit(*q.Limit)
		}
		if q.Offset != nil {
			// MySQL requires LIMIT with OFFSET
			if q.Limit == nil {
				builder.Limit(int(^uint(0) >> 1))
			}
			builder.Offset(*q.Offset)
		}
	}

	out.SQL = builder.Build()
	return out, nil
}

func (t *SOQLTranslator) selectAggregate(builder *query.Builder, q *soql.Query) error {
	for _, projection := range q.Fields {
		switch p := projection.(type) {
		case *soql.FieldRef:
			builder.SelectRaw(query.FieldExpr(p.Name), p.Name)
		case *soql.AggregateField:
			expr, err := aggregateExpr(p)
			if err != nil {
				return err
			}
			builder.SelectRaw(expr, p.Alias())
		default:
			return apperrors.NewParseError(q.String(),
				"aggregate queries allow only grouped fields and aggregate functions")
		}
	}
	return nil
}

func aggregateExpr(a *soql.AggregateField) (string, error) {
	if a.Func == "COUNT" {
		if a.Field == "" {
			return "COUNT(*)", nil
		}
		return fmt.Sprintf("COUNT(%s)", query.RawFieldExpr(a.Field)), nil
	}
	// SUM/AVG/MIN/MAX operate on the raw JSON value to keep numeric typing
	return fmt.Sprintf("%s(%s)", a.Func, query.RawFieldExpr(a.Field)), nil
}

// whereTreeNeedsPostProcess reports whether any condition references a parent
// relationship path
func whereTreeNeedsPostProcess(expr soql.Expr) bool {
	switch e := expr.(type) {
	case *soql.LogicalExpr:
		return whereTreeNeedsPostProcess(e.Left) || whereTreeNeedsPostProcess(e.Right)
	case *soql.NotExpr:
		return whereTreeNeedsPostProcess(e.Expr)
	case *soql.Comparison:
		return strings.Contains(e.Field, ".")
	case *soql.InSubquery:
		return strings.Contains(e.Field, ".")
	}
	return false
}

func (t *SOQLTranslator) translateExpr(expr soql.Expr) (string, []interface{}, error) {
	switch e := expr.(type) {
	case *soql.LogicalExpr:
		left, leftArgs, err := t.translateExpr(e.Left)
		if err != nil {
			return "", nil, err
		}
		right, rightArgs, err := t.translateExpr(e.Right)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s %s %s)", left, e.Op, right), append(leftArgs, rightArgs...), nil

	case *soql.NotExpr:
		inner, args, err := t.translateExpr(e.Expr)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(NOT %s)", inner), args, nil

	case *soql.Comparison:
		return t.translateComparison(e)

	case *soql.InSubquery:
		// The executor inlines subqueries before translation
		return "", nil, apperrors.NewParseError("", "internal: IN-subquery reached the translator")
	}
	return "", nil, apperrors.NewParseError("", fmt.Sprintf("unsupported condition %T", expr))
}

func (t *SOQLTranslator) translateComparison(c *soql.Comparison) (string, []interface{}, error) {
	field := query.FieldExpr(c.Field)

	switch c.Value.Kind {
	case soql.ValueNull:
		// A missing key extracts to SQL NULL; an explicit JSON null needs the
		// JSON_TYPE check. Both count as null.
		var isNull string
		if c.Field == constants.FieldID {
			isNull = fmt.Sprintf("`%s` IS NULL", constants.ColumnID)
		} else {
			path := query.RawFieldExpr(c.Field)
			isNull = fmt.Sprintf("(%s IS NULL OR JSON_TYPE(%s) = 'NULL')", path, path)
		}
		switch c.Op {
		case "=":
			return "(" + isNull + ")", nil, nil
		case "!=":
			return "(NOT " + isNull + ")", nil, nil
		}
		return "", nil, apperrors.NewParseError("", fmt.Sprintf("operator %s not valid against null", c.Op))

	case soql.ValueDateLiteral:
		return t.translateDateLiteral(field, c.Op, c.Value.Text)

	case soql.ValueList:
		placeholders := make([]string, len(c.Value.List))
		args := make([]interface{}, len(c.Value.List))
		for i, item := range c.Value.List {
			placeholders[i] = "?"
			args[i] = item.Native()
		}
		if len(placeholders) == 0 {
			// Empty IN list matches nothing; empty NOT IN matches everything
			if c.Op == "NOT IN" {
				return "(1 = 1)", nil, nil
			}
			return "(1 = 0)", nil, nil
		}
		return fmt.Sprintf("(%s %s (%s))", field, c.Op, strings.Join(placeholders, ", ")), args, nil

	case soql.ValueNumber:
		// Compare on the raw JSON value so 100 matches 100.0
		return fmt.Sprintf("(%s %s ?)", query.RawFieldExpr(c.Field), c.Op), []interface{}{c.Value.Number}, nil

	default:
		return fmt.Sprintf("(%s %s ?)", field, c.Op), []interface{}{c.Value.Native()}, nil
	}
}

func (t *SOQLTranslator) translateDateLiteral(field, op, literal string) (string, []interface{}, error) {
	start, end, ok := soql.DateRange(literal, t.now())
	if !ok {
		return "", nil, apperrors.NewParseError("", fmt.Sprintf("unknown date literal %s", literal))
	}
	startText := start.Format("2006-01-02")
	endText := end.Format("2006-01-02")

	switch op {
	case "=":
		return fmt.Sprintf("(%s >= ? AND %s < ?)", field, field), []interface{}{startText, endText}, nil
	case "!=":
		return fmt.Sprintf("(%s < ? OR %s >= ?)", field, field), []interface{}{startText, endText}, nil
	case "<":
		return fmt.Sprintf("(%s < ?)", field), []interface{}{startText}, nil
	case "<=":
		return fmt.Sprintf("(%s < ?)", field), []interface{}{endText}, nil
	case ">":
		return fmt.Sprintf("(%s >= ?)", field), []interface{}{endText}, nil
	case ">=":
		return fmt.Sprintf("(%s >= ?)", field), []interface{}{startText}, nil
	}
	return "", nil, apperrors.NewParseError("", fmt.Sprintf("operator %s not valid against date literal", op))
}
