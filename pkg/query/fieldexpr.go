package query

import (
	"fmt"
	"strings"

	"github.com/openforce/backend/pkg/constants"
)

// FieldExpr returns the SQL expression addressing a record field. The record
// id lives in its own indexed column; every other field is a path into the
// JSON payload column, unquoted so string comparisons see the bare value.
func FieldExpr(field string) string {
	if field == constants.FieldID {
		return fmt.Sprintf("`%s`", constants.ColumnID)
	}
	return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(`%s`, '%s'))", constants.ColumnFields, jsonPath(field))
}

// RawFieldExpr is FieldExpr without JSON_UNQUOTE. Numeric comparisons and
// aggregates keep the JSON type instead of casting through text.
func RawFieldExpr(field string) string {
	if field == constants.FieldID {
		return fmt.Sprintf("`%s`", constants.ColumnID)
	}
	return fmt.Sprintf("JSON_EXTRACT(`%s`, '%s')", constants.ColumnFields, jsonPath(field))
}

// jsonPath builds the $.field path. Quotes in field names are stripped, not
// escaped; metadata validation rejects such names before they reach SQL.
func jsonPath(field string) string {
	clean := strings.NewReplacer("'", "", "\"", "", "`", "").Replace(field)
	return "$." + clean
}
