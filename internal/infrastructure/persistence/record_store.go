package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/query"
)

// RecordStore persists records in one table per object: an indexed id column
// plus a JSON payload column holding every other field.
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore creates a new RecordStore
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

// EnsureTable creates the object's storage table if it does not exist
func (s *RecordStore) EnsureTable(ctx context.Context, object string) error {
	table := constants.TableForObject(object)
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS `%s` (`%s` VARCHAR(18) NOT NULL PRIMARY KEY, `%s` JSON NOT NULL)",
		table, constants.ColumnID, constants.ColumnFields)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return apperrors.NewStoreError(object, "ensure_table", err)
	}
	return nil
}

// GetByID returns a record, or (nil, nil) when absent
func (s *RecordStore) GetByID(ctx context.Context, object, id string) (models.SObject, error) {
	q := query.From(constants.TableForObject(object)).
		SelectColumns(constants.ColumnID, constants.ColumnFields).
		Where(fmt.Sprintf("`%s` = ?", constants.ColumnID), id).
		Limit(1).
		Build()

	records, err := s.Select(ctx, object, q)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// GetAll returns every record of the object
func (s *RecordStore) GetAll(ctx context.Context, object string) ([]models.SObject, error) {
	q := query.From(constants.TableForObject(object)).
		SelectColumns(constants.ColumnID, constants.ColumnFields).
		Build()
	return s.Select(ctx, object, q)
}

// Create inserts a record. The record must already carry its Id.
func (s *RecordStore) Create(ctx context.Context, object string, record models.SObject) error {
	id := record.GetString(constants.FieldID)
	if id == "" {
		return apperrors.NewStoreError(object, "create", fmt.Errorf("record has no Id"))
	}

	payload, err := marshalPayload(record)
	if err != nil {
		return apperrors.NewStoreError(object, "create", err)
	}

	q := query.Insert(constants.TableForObject(object), map[string]interface{}{
		constants.ColumnID:     id,
		constants.ColumnFields: payload,
	}).Build()

	if _, err := s.db.ExecContext(ctx, q.SQL, q.Params...); err != nil {
		return apperrors.NewStoreError(object, "create", err)
	}
	return nil
}

// Update replaces the record's payload with the given full post-merge shape
func (s *RecordStore) Update(ctx context.Context, object, id string, record models.SObject) error {
	payload, err := marshalPayload(record)
	if err != nil {
		return apperrors.NewStoreError(object, "update", err)
	}

	q := query.Update(constants.TableForObject(object)).
		Set(map[string]interface{}{constants.ColumnFields: payload}).
		Where(fmt.Sprintf("`%s` = ?", constants.ColumnID), id).
		Build()

	result, err := s.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return apperrors.NewStoreError(object, "update", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(object, id)
	}
	return nil
}

// Remove deletes a record by id
func (s *RecordStore) Remove(ctx context.Context, object, id string) error {
	q := query.Delete(constants.TableForObject(object)).
		Where(fmt.Sprintf("`%s` = ?", constants.ColumnID), id).
		Build()

	result, err := s.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return apperrors.NewStoreError(object, "remove", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(object, id)
	}
	return nil
}

// Select runs a query projecting (id, fields) and hydrates full records
func (s *RecordStore) Select(ctx context.Context, object string, q query.QueryResult) ([]models.SObject, error) {
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, apperrors.NewStoreError(object, "select", err)
	}
	defer rows.Close()

	var records []models.SObject
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, apperrors.NewStoreError(object, "select", err)
		}
		record, err := unmarshalPayload(id, payload)
		if err != nil {
			return nil, apperrors.NewStoreError(object, "select", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError(object, "select", err)
	}
	return records, nil
}

// SelectRows runs a query with an arbitrary projection, one map per row.
// Byte slices come back as strings; numeric driver types pass through.
func (s *RecordStore) SelectRows(ctx context.Context, q query.QueryResult) ([]models.SObject, error) {
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, apperrors.NewStoreError("", "select_rows", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewStoreError("", "select_rows", err)
	}

	var out []models.SObject
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, apperrors.NewStoreError("", "select_rows", err)
		}

		row := make(models.SObject, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("", "select_rows", err)
	}
	return out, nil
}

// Count runs a query whose single projected column is a row count
func (s *RecordStore) Count(ctx context.Context, q query.QueryResult) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&count); err != nil {
		return 0, apperrors.NewStoreError("", "count", err)
	}
	return count, nil
}

// marshalPayload serializes every field except Id, which lives in its own column
func marshalPayload(record models.SObject) ([]byte, error) {
	payload := make(map[string]interface{}, len(record))
	for key, value := range record {
		if key == constants.FieldID {
			continue
		}
		payload[key] = value
	}
	return json.Marshal(payload)
}

func unmarshalPayload(id string, payload []byte) (models.SObject, error) {
	record := make(models.SObject)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, err
		}
	}
	record[constants.FieldID] = id
	return record, nil
}
