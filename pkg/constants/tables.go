package constants

import (
	"os"
	"strings"
)

// Sort directions
const (
	SortASC  = "ASC"
	SortDESC = "DESC"
)

// DefaultTablePrefix namespaces one instance's object tables.
// Each logical object maps to the table {prefix}{objectAPIName}.
const DefaultTablePrefix = "of_"

var tablePrefix = func() string {
	if p := os.Getenv("OPENFORCE_TABLE_PREFIX"); p != "" {
		return p
	}
	return DefaultTablePrefix
}()

// TableForObject maps an object API name to its storage table
func TableForObject(apiName string) string {
	return tablePrefix + strings.ToLower(apiName)
}

// Query batch sizing (Salesforce-compatible bounds)
const (
	DefaultQueryBatchSize = 2000
	MinQueryBatchSize     = 200
)
