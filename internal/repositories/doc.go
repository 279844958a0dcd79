// Package repositories implements SQLite persistence for the catalog table and run history.
//
// Key Implementations:
//   - [CatalogRepository] : the resolved table, one row per week, position 0 is the most recent week
//   - [RunRepository] : one row per update run with its counters
//
// [CatalogRepository] satisfies the store interface used by the merge engine: Load returns the table
// ordered by position, Save replaces the whole table in a single transaction so a failed save leaves
// the previous table intact.
package repositories
