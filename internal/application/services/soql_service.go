package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/internal/domain/ports"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/query"
	"github.com/openforce/backend/pkg/soql"
)

// SOQLService executes parsed queries end to end: permission gate, subquery
// inlining, translation, post-processing, relationship hydration, FLS
// filtering and pagination.
type SOQLService struct {
	schema      ports.SchemaProvider
	store       ports.RecordStore
	permissions *PermissionService
	translator  *SOQLTranslator
	locators    *QueryLocatorService
	now         func() time.Time
}

// NewSOQLService creates a new SOQLService
func NewSOQLService(schema ports.SchemaProvider, store ports.RecordStore, permissions *PermissionService, locators *QueryLocatorService) *SOQLService {
	return &SOQLService{
		schema:      schema,
		store:       store,
		permissions: permissions,
		translator:  NewSOQLTranslator(schema),
		locators:    locators,
		now:         time.Now,
	}
}

// queryExecution carries the per-execution caches. Parents fetched for
// hydration and executed IN-subqueries are shared across one query only.
type queryExecution struct {
	ctx      context.Context
	user     *models.User
	now      time.Time
	parents  map[string]models.SObject
	subquery map[string][]soql.Value
}

// RunQuery parses and executes a query for the user
func (s *SOQLService) RunQuery(ctx context.Context, user *models.User, text string, opts models.QueryOptions) (*models.QueryResult, error) {
	q, err := soql.Parse(text)
	if err != nil {
		return nil, err
	}

	exec := &queryExecution{
		ctx:      ctx,
		user:     user,
		now:      s.now(),
		parents:  make(map[string]models.SObject),
		subquery: make(map[string][]soql.Value),
	}
	return s.run(exec, q, opts)
}

// QueryMore returns the next page of a paginated result set
func (s *SOQLService) QueryMore(ctx context.Context, user *models.User, locator string) (*models.QueryResult, error) {
	return s.locators.Next(user.Email, locator)
}

func (s *SOQLService) run(exec *queryExecution, q *soql.Query, opts models.QueryOptions) (*models.QueryResult, error) {
	if err := s.validateQuery(q); err != nil {
		return nil, err
	}
	if err := s.checkQueryPermissions(exec.user, q); err != nil {
		return nil, err
	}

	where, err := s.inlineSubqueries(exec, q.Where)
	if err != nil {
		return nil, err
	}
	resolved := *q
	resolved.Where = where

	if q.IsCount {
		if resolved.Where != nil && whereTreeNeedsPostProcess(resolved.Where) {
			// Relationship paths keep the filter in memory, so count rows
			// instead of pushing COUNT(*) down
			rowQuery := resolved
			rowQuery.IsCount = false
			rowQuery.Fields = []soql.Projection{&soql.FieldRef{Name: constants.FieldID}}
			plan, err := s.translatorFor(exec).Translate(&rowQuery)
			if err != nil {
				return nil, err
			}
			records, err := s.fetchFiltered(exec, &rowQuery, plan)
			if err != nil {
				return nil, err
			}
			return &models.QueryResult{TotalSize: len(records), Done: true, Records: []models.SObject{}}, nil
		}
		plan, err := s.translatorFor(exec).Translate(&resolved)
		if err != nil {
			return nil, err
		}
		count, err := s.store.Count(exec.ctx, plan.SQL)
		if err != nil {
			return nil, err
		}
		return &models.QueryResult{TotalSize: count, Done: true, Records: []models.SObject{}}, nil
	}

	if q.IsAggregate {
		if err := s.checkAggregateVisibility(exec.user, q); err != nil {
			return nil, err
		}
		if resolved.Where != nil && whereTreeNeedsPostProcess(resolved.Where) {
			// Relationship paths keep the filter in memory, so grouping and
			// aggregation move in memory with it
			rowQuery := resolved
			rowQuery.IsAggregate = false
			rowQuery.Fields = []soql.Projection{&soql.FieldRef{Name: constants.FieldID}}
			rowQuery.GroupBy = nil
			rowQuery.OrderBy = nil
			rowQuery.Limit = nil
			rowQuery.Offset = nil
			plan, err := s.translatorFor(exec).Translate(&rowQuery)
			if err != nil {
				return nil, err
			}
			records, err := s.fetchFiltered(exec, &rowQuery, plan)
			if err != nil {
				return nil, err
			}
			rows := aggregateRows(&resolved, records)
			return &models.QueryResult{TotalSize: len(rows), Done: true, Records: rows}, nil
		}
		plan, err := s.translatorFor(exec).Translate(&resolved)
		if err != nil {
			return nil, err
		}
		rows, err := s.store.SelectRows(exec.ctx, plan.SQL)
		if err != nil {
			return nil, err
		}
		return &models.QueryResult{TotalSize: len(rows), Done: true, Records: rows}, nil
	}

	plan, err := s.translatorFor(exec).Translate(&resolved)
	if err != nil {
		return nil, err
	}
	records, err := s.fetchFiltered(exec, &resolved, plan)
	if err != nil {
		return nil, err
	}

	projected := make([]models.SObject, 0, len(records))
	for _, record := range records {
		out, err := s.project(exec, q.From, q, record)
		if err != nil {
			return nil, err
		}
		projected = append(projected, out)
	}
	if err := s.attachSubqueries(exec, q, records, projected); err != nil {
		return nil, err
	}

	return s.paginate(exec.user, projected, opts), nil
}

// fetchFiltered runs the SQL plan and applies any in-memory post-processing:
// WHERE evaluation, ordering and windowing
func (s *SOQLService) fetchFiltered(exec *queryExecution, q *soql.Query, plan *TranslatedQuery) ([]models.SObject, error) {
	records, err := s.store.Select(exec.ctx, q.From, plan.SQL)
	if err != nil {
		return nil, err
	}
	if !plan.PostProcess {
		return records, nil
	}

	resolve := s.resolverFor(exec, q.From)
	filtered := make([]models.SObject, 0, len(records))
	for _, record := range records {
		if q.Where == nil || evalWhere(q.Where, record, resolve, exec.now) {
			filtered = append(filtered, record)
		}
	}

	if len(q.OrderBy) > 0 {
		sortRecords(filtered, q.OrderBy, resolve)
	}
	if q.Offset != nil {
		if *q.Offset >= len(filtered) {
			filtered = nil
		} else {
			filtered = filtered[*q.Offset:]
		}
	}
	if q.Limit != nil && len(filtered) > *q.Limit {
		filtered = filtered[:*q.Limit]
	}
	return filtered, nil
}

// resolverFor resolves plain fields directly and one-hop parent paths through
// the per-execution parent cache
func (s *SOQLService) resolverFor(exec *queryExecution, object string) fieldResolver {
	index := s.schema.Relationships()
	return func(record models.SObject, field string) (interface{}, bool) {
		dot := strings.Index(field, ".")
		if dot < 0 {
			value, ok := record[field]
			return value, ok
		}

		rel, ok := index.ParentsOf[object][field[:dot]]
		if !ok {
			return nil, false
		}
		parentID := record.GetString(rel.LookupField)
		if parentID == "" {
			return nil, false
		}
		parent, err := s.parent(exec, rel.ParentObject, parentID)
		if err != nil || parent == nil {
			return nil, false
		}
		value, ok := parent[field[dot+1:]]
		return value, ok
	}
}

// parent fetches a parent record once per execution
func (s *SOQLService) parent(exec *queryExecution, object, id string) (models.SObject, error) {
	key := object + ":" + id
	if cached, ok := exec.parents[key]; ok {
		return cached, nil
	}
	record, err := s.store.GetByID(exec.ctx, object, id)
	if err != nil {
		return nil, err
	}
	exec.parents[key] = record
	return record, nil
}

// project builds the response shape for one record: selected plain fields
// pass the FLS filter, relationship fields hydrate into nested objects.
// object is the record's actual object, which inside a child subquery differs
// from q.From (a relationship name).
func (s *SOQLService) project(exec *queryExecution, object string, q *soql.Query, record models.SObject) (models.SObject, error) {
	index := s.schema.Relationships()
	out := make(models.SObject)
	out[constants.FieldID] = record[constants.FieldID]

	for _, projection := range q.Fields {
		switch p := projection.(type) {
		case *soql.FieldRef:
			if p.Name == constants.FieldID {
				continue
			}
			if !s.permissions.FieldAccess(exec.user, object, p.Name).Visible {
				continue
			}
			out[p.Name] = record[p.Name]

		case *soql.RelationshipField:
			rel, ok := index.ParentsOf[object][p.Relationship]
			if !ok {
				continue
			}
			if !s.permissions.FieldAccess(exec.user, object, rel.LookupField).Visible {
				continue
			}
			parentID := record.GetString(rel.LookupField)
			if parentID == "" {
				out[p.Relationship] = nil
				continue
			}
			parent, err := s.parent(exec, rel.ParentObject, parentID)
			if err != nil {
				return nil, err
			}
			if parent == nil {
				out[p.Relationship] = nil
				continue
			}
			if !s.permissions.FieldAccess(exec.user, rel.ParentObject, p.Field).Visible {
				continue
			}
			nested, ok := out[p.Relationship].(models.SObject)
			if !ok || nested == nil {
				nested = make(models.SObject)
				out[p.Relationship] = nested
			}
			nested[p.Field] = parent[p.Field]
		}
	}
	return out, nil
}

// attachSubqueries runs each child subquery once over all parents and nests
// the grouped results
func (s *SOQLService) attachSubqueries(exec *queryExecution, q *soql.Query, records, projected []models.SObject) error {
	if !q.HasSubqueries() || len(records) == 0 {
		return nil
	}
	index := s.schema.Relationships()

	for _, projection := range q.Fields {
		sub, ok := projection.(*soql.Subquery)
		if !ok {
			continue
		}
		rel, found := childRelationship(index, q.From, sub.Relationship())
		if !found {
			return apperrors.NewParseError(q.String(),
				fmt.Sprintf("unknown child relationship '%s' on %s", sub.Relationship(), q.From))
		}

		parentIDs := make([]interface{}, 0, len(records))
		for _, record := range records {
			parentIDs = append(parentIDs, record.GetString(constants.FieldID))
		}

		children, err := s.fetchChildren(exec, rel, parentIDs)
		if err != nil {
			return err
		}

		byParent := make(map[string][]models.SObject)
		resolve := s.resolverFor(exec, rel.ChildObject)
		for _, child := range children {
			if sub.Query.Where != nil && !evalWhere(sub.Query.Where, child, resolve, exec.now) {
				continue
			}
			parentID := child.GetString(rel.ForeignKeyField)
			byParent[parentID] = append(byParent[parentID], child)
		}

		for i, record := range records {
			group := byParent[record.GetString(constants.FieldID)]
			if len(group) == 0 {
				// A childless parent still carries a result shape, never null
				projected[i][sub.Relationship()] = &models.QueryResult{
					TotalSize: 0,
					Done:      true,
					Records:   []models.SObject{},
				}
				continue
			}
			if len(sub.Query.OrderBy) > 0 {
				sortRecords(group, sub.Query.OrderBy, resolve)
			}
			if sub.Query.Limit != nil && len(group) > *sub.Query.Limit {
				group = group[:*sub.Query.Limit]
			}
			nested := make([]models.SObject, 0, len(group))
			for _, child := range group {
				childOut, err := s.project(exec, rel.ChildObject, sub.Query, child)
				if err != nil {
					return err
				}
				nested = append(nested, childOut)
			}
			projected[i][sub.Relationship()] = &models.QueryResult{
				TotalSize: len(nested),
				Done:      true,
				Records:   nested,
			}
		}
	}
	return nil
}

func (s *SOQLService) fetchChildren(exec *queryExecution, rel models.ChildRelationship, parentIDs []interface{}) ([]models.SObject, error) {
	placeholders := make([]string, len(parentIDs))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	q := query.From(s.schema.TableFor(rel.ChildObject)).
		SelectColumns(constants.ColumnID, constants.ColumnFields).
		Where(fmt.Sprintf("%s IN (%s)", query.FieldExpr(rel.ForeignKeyField), strings.Join(placeholders, ", ")), parentIDs...).
		Build()
	return s.store.Select(exec.ctx, rel.ChildObject, q)
}

// inlineSubqueries executes IN-subqueries and rewrites them into literal IN
// lists. Structurally identical subqueries run once per execution.
func (s *SOQLService) inlineSubqueries(exec *queryExecution, expr soql.Expr) (soql.Expr, error) {
	switch e := expr.(type) {
	case nil:
		return nil, nil
	case *soql.LogicalExpr:
		left, err := s.inlineSubqueries(exec, e.Left)
		if err != nil {
			return nil, err
		}
		right, err := s.inlineSubqueries(exec, e.Right)
		if err != nil {
			return nil, err
		}
		return &soql.LogicalExpr{Op: e.Op, Left: left, Right: right}, nil
	case *soql.NotExpr:
		inner, err := s.inlineSubqueries(exec, e.Expr)
		if err != nil {
			return nil, err
		}
		return &soql.NotExpr{Expr: inner}, nil
	case *soql.InSubquery:
		values, err := s.subqueryValues(exec, e)
		if err != nil {
			return nil, err
		}
		op := "IN"
		if e.Negated {
			op = "NOT IN"
		}
		return &soql.Comparison{Field: e.Field, Op: op, Value: soql.Value{Kind: soql.ValueList, List: values}}, nil
	}
	return expr, nil
}

func (s *SOQLService) subqueryValues(exec *queryExecution, e *soql.InSubquery) ([]soql.Value, error) {
	key := e.Key()
	if cached, ok := exec.subquery[key]; ok {
		return cached, nil
	}

	inner := e.Query
	if err := s.validateQuery(inner); err != nil {
		return nil, err
	}
	if len(inner.Fields) != 1 {
		return nil, apperrors.NewParseError(inner.String(), "IN subqueries must select exactly one field")
	}
	ref, ok := inner.Fields[0].(*soql.FieldRef)
	if !ok {
		return nil, apperrors.NewParseError(inner.String(), "IN subqueries must select a single plain field")
	}
	if err := s.checkQueryPermissions(exec.user, inner); err != nil {
		return nil, err
	}

	where, err := s.inlineSubqueries(exec, inner.Where)
	if err != nil {
		return nil, err
	}
	resolved := *inner
	resolved.Where = where

	plan, err := s.translatorFor(exec).Translate(&resolved)
	if err != nil {
		return nil, err
	}
	records, err := s.fetchFiltered(exec, &resolved, plan)
	if err != nil {
		return nil, err
	}

	field := ref.Name
	seen := make(map[string]bool)
	var values []soql.Value
	for _, record := range records {
		raw, ok := record[field]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			text := fmt.Sprintf("%v", v)
			if !seen[text] {
				seen[text] = true
				values = append(values, soql.Value{Kind: soql.ValueNumber, Number: v})
			}
		default:
			text := fmt.Sprintf("%v", raw)
			if !seen[text] {
				seen[text] = true
				values = append(values, soql.Value{Kind: soql.ValueString, Text: text})
			}
		}
	}

	exec.subquery[key] = values
	return values, nil
}

// translatorFor pins the translator's clock to the execution's reference time
func (s *SOQLService) translatorFor(exec *queryExecution) *SOQLTranslator {
	t := NewSOQLTranslator(s.schema)
	t.now = func() time.Time { return exec.now }
	return t
}

// checkQueryPermissions gates the root object plus every object a projection
// or condition reaches
func (s *SOQLService) checkQueryPermissions(user *models.User, q *soql.Query) error {
	if err := s.permissions.CheckAccess(user, q.From, constants.PermRead); err != nil {
		return err
	}
	index := s.schema.Relationships()

	for _, projection := range q.Fields {
		switch p := projection.(type) {
		case *soql.RelationshipField:
			if rel, ok := index.ParentsOf[q.From][p.Relationship]; ok {
				if err := s.permissions.CheckAccess(user, rel.ParentObject, constants.PermRead); err != nil {
					return err
				}
			}
		case *soql.Subquery:
			if rel, ok := childRelationship(index, q.From, p.Relationship()); ok {
				if err := s.permissions.CheckAccess(user, rel.ChildObject, constants.PermRead); err != nil {
					return err
				}
			}
		}
	}
	return s.checkWherePermissions(user, q.From, index, q.Where)
}

// checkWherePermissions gates the parent objects that relationship-path
// conditions read through the resolver
func (s *SOQLService) checkWherePermissions(user *models.User, from string, index *models.RelationshipIndex, expr soql.Expr) error {
	switch e := expr.(type) {
	case nil:
		return nil
	case *soql.LogicalExpr:
		if err := s.checkWherePermissions(user, from, index, e.Left); err != nil {
			return err
		}
		return s.checkWherePermissions(user, from, index, e.Right)
	case *soql.NotExpr:
		return s.checkWherePermissions(user, from, index, e.Expr)
	case *soql.Comparison:
		return s.checkFieldPathAccess(user, from, index, e.Field)
	case *soql.InSubquery:
		return s.checkFieldPathAccess(user, from, index, e.Field)
	}
	return nil
}

func (s *SOQLService) checkFieldPathAccess(user *models.User, from string, index *models.RelationshipIndex, field string) error {
	dot := strings.Index(field, ".")
	if dot < 0 {
		return nil
	}
	if rel, ok := index.ParentsOf[from][field[:dot]]; ok {
		return s.permissions.CheckAccess(user, rel.ParentObject, constants.PermRead)
	}
	return nil
}

// checkAggregateVisibility rejects grouped or aggregated fields the user
// cannot see. Aggregate rows never pass per-record FLS filtering, so hidden
// fields must not enter the query at all.
func (s *SOQLService) checkAggregateVisibility(user *models.User, q *soql.Query) error {
	check := func(field string) error {
		if field == "" || field == constants.FieldID {
			return nil
		}
		if !s.permissions.FieldAccess(user, q.From, field).Visible {
			return apperrors.NewPermissionError("aggregate", q.From+"."+field)
		}
		return nil
	}
	for _, projection := range q.Fields {
		switch p := projection.(type) {
		case *soql.FieldRef:
			if err := check(p.Name); err != nil {
				return err
			}
		case *soql.AggregateField:
			if err := check(p.Field); err != nil {
				return err
			}
		}
	}
	for _, group := range q.GroupBy {
		if err := check(group); err != nil {
			return err
		}
	}
	return nil
}

// validateQuery checks the query shape against the schema so unknown objects
// and fields fail before any SQL runs
func (s *SOQLService) validateQuery(q *soql.Query) error {
	def, ok := s.schema.Object(q.From)
	if !ok {
		return apperrors.NewParseError(q.String(), fmt.Sprintf("unknown object '%s'", q.From))
	}
	index := s.schema.Relationships()

	for _, projection := range q.Fields {
		switch p := projection.(type) {
		case *soql.FieldRef:
			if !fieldExists(def, p.Name) {
				return apperrors.NewParseError(q.String(),
					fmt.Sprintf("no such field '%s' on %s", p.Name, q.From))
			}
		case *soql.RelationshipField:
			rel, ok := index.ParentsOf[q.From][p.Relationship]
			if !ok {
				return apperrors.NewParseError(q.String(),
					fmt.Sprintf("unknown relationship '%s' on %s", p.Relationship, q.From))
			}
			parentDef, ok := s.schema.Object(rel.ParentObject)
			if !ok || !fieldExists(parentDef, p.Field) {
				return apperrors.NewParseError(q.String(),
					fmt.Sprintf("no such field '%s' on %s", p.Field, rel.ParentObject))
			}
		case *soql.Subquery:
			rel, ok := childRelationship(index, q.From, p.Relationship())
			if !ok {
				return apperrors.NewParseError(q.String(),
					fmt.Sprintf("unknown child relationship '%s' on %s", p.Relationship(), q.From))
			}
			childDef, _ := s.schema.Object(rel.ChildObject)
			for _, childProjection := range p.Query.Fields {
				ref, ok := childProjection.(*soql.FieldRef)
				if !ok {
					return apperrors.NewParseError(q.String(),
						"child subqueries select plain fields only")
				}
				if childDef != nil && !fieldExists(childDef, ref.Name) {
					return apperrors.NewParseError(q.String(),
						fmt.Sprintf("no such field '%s' on %s", ref.Name, rel.ChildObject))
				}
			}
		case *soql.AggregateField:
			if p.Field != "" && !fieldExists(def, p.Field) {
				return apperrors.NewParseError(q.String(),
					fmt.Sprintf("no such field '%s' on %s", p.Field, q.From))
			}
		}
	}

	for _, group := range q.GroupBy {
		if !fieldExists(def, group) {
			return apperrors.NewParseError(q.String(),
				fmt.Sprintf("no such field '%s' on %s", group, q.From))
		}
	}
	for _, order := range q.OrderBy {
		if !fieldExists(def, order.Field) {
			return apperrors.NewParseError(q.String(),
				fmt.Sprintf("no such field '%s' on %s", order.Field, q.From))
		}
	}

	return s.validateWhere(q, def, index, q.Where)
}

func (s *SOQLService) validateWhere(q *soql.Query, def *models.ObjectDef, index *models.RelationshipIndex, expr soql.Expr) error {
	switch e := expr.(type) {
	case nil:
		return nil
	case *soql.LogicalExpr:
		if err := s.validateWhere(q, def, index, e.Left); err != nil {
			return err
		}
		return s.validateWhere(q, def, index, e.Right)
	case *soql.NotExpr:
		return s.validateWhere(q, def, index, e.Expr)
	case *soql.Comparison:
		return s.validateWherePath(q, def, index, e.Field)
	case *soql.InSubquery:
		return s.validateWherePath(q, def, index, e.Field)
	}
	return nil
}

func (s *SOQLService) validateWherePath(q *soql.Query, def *models.ObjectDef, index *models.RelationshipIndex, field string) error {
	dot := strings.Index(field, ".")
	if dot < 0 {
		if !fieldExists(def, field) {
			return apperrors.NewParseError(q.String(),
				fmt.Sprintf("no such field '%s' on %s", field, q.From))
		}
		return nil
	}
	rel, ok := index.ParentsOf[q.From][field[:dot]]
	if !ok {
		return apperrors.NewParseError(q.String(),
			fmt.Sprintf("unknown relationship '%s' on %s", field[:dot], q.From))
	}
	parentDef, ok := s.schema.Object(rel.ParentObject)
	if !ok || !fieldExists(parentDef, field[dot+1:]) {
		return apperrors.NewParseError(q.String(),
			fmt.Sprintf("no such field '%s' on %s", field[dot+1:], rel.ParentObject))
	}
	return nil
}

// paginate clamps the batch size and splits the result set through a locator
// when it exceeds one batch
func (s *SOQLService) paginate(user *models.User, records []models.SObject, opts models.QueryOptions) *models.QueryResult {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = constants.DefaultQueryBatchSize
	}
	if batchSize < constants.MinQueryBatchSize {
		batchSize = constants.MinQueryBatchSize
	}
	if batchSize > constants.DefaultQueryBatchSize {
		batchSize = constants.DefaultQueryBatchSize
	}

	total := len(records)
	if total <= batchSize {
		return &models.QueryResult{TotalSize: total, Done: true, Records: records}
	}

	locator := s.locators.Store(user.Email, records[batchSize:], total, batchSize)
	return &models.QueryResult{
		TotalSize:      total,
		Done:           false,
		Records:        records[:batchSize],
		NextRecordsURL: nextRecordsPath(locator),
	}
}

// fieldExists accepts the object's declared fields plus Id and the
// server-managed system fields
func fieldExists(def *models.ObjectDef, name string) bool {
	return name == constants.FieldID || constants.IsSystemField(name) || def.FindField(name) != nil
}

// aggregateRows groups filtered records and computes aggregate projections in
// memory, preserving first-seen group order
func aggregateRows(q *soql.Query, records []models.SObject) []models.SObject {
	type group struct {
		sample models.SObject
		rows   []models.SObject
	}
	var order []string
	groups := make(map[string]*group)
	for _, record := range records {
		parts := make([]string, len(q.GroupBy))
		for i, field := range q.GroupBy {
			parts[i] = toText(record[field])
		}
		key := strings.Join(parts, "\x00")
		g, ok := groups[key]
		if !ok {
			g = &group{sample: record}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, record)
	}

	// Ungrouped aggregates yield one row even over an empty set, matching the
	// SQL shape
	if len(order) == 0 && len(q.GroupBy) == 0 {
		order = append(order, "")
		groups[""] = &group{}
	}

	out := make([]models.SObject, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := make(models.SObject)
		for _, projection := range q.Fields {
			switch p := projection.(type) {
			case *soql.FieldRef:
				if g.sample != nil {
					row[p.Name] = g.sample[p.Name]
				}
			case *soql.AggregateField:
				row[p.Alias()] = computeAggregate(p, g.rows)
			}
		}
		out = append(out, row)
	}
	return out
}

func computeAggregate(a *soql.AggregateField, rows []models.SObject) interface{} {
	if a.Func == "COUNT" {
		if a.Field == "" {
			return float64(len(rows))
		}
		n := 0
		for _, record := range rows {
			if v, ok := record[a.Field]; ok && v != nil {
				n++
			}
		}
		return float64(n)
	}

	var (
		sum      float64
		count    int
		min, max interface{}
	)
	for _, record := range rows {
		v, ok := record[a.Field]
		if !ok || v == nil {
			continue
		}
		if f, numeric := toFloat(v); numeric {
			sum += f
		}
		if min == nil || compareValues(v, min) < 0 {
			min = v
		}
		if max == nil || compareValues(v, max) > 0 {
			max = v
		}
		count++
	}
	switch a.Func {
	case "SUM":
		return sum
	case "AVG":
		if count == 0 {
			return nil
		}
		return sum / float64(count)
	case "MIN":
		return min
	case "MAX":
		return max
	}
	return nil
}

func childRelationship(index *models.RelationshipIndex, parent, relationshipName string) (models.ChildRelationship, bool) {
	for _, rel := range index.ChildrenOf[parent] {
		if rel.RelationshipName == relationshipName {
			return rel, true
		}
	}
	return models.ChildRelationship{}, false
}

// sortRecords orders records in memory for post-processed queries, nulls last
func sortRecords(records []models.SObject, orderBy []soql.OrderClause, resolve fieldResolver) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, clause := range orderBy {
			a, _ := resolve(records[i], clause.Field)
			b, _ := resolve(records[j], clause.Field)
			cmp := compareValues(a, b)
			if cmp == 0 {
				continue
			}
			if clause.Direction == constants.SortDESC {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(toText(a), toText(b))
}
