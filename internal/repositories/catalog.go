package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/unavoidables/internal/models"
)

// CatalogRepository stores the [models.CatalogTable].
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new CatalogRepository with the given database connection
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const catalogColumns = `week, position, title, artists, time_wide, time_narrow, identifier, status, error, resolved_at`

// Load returns the stored table, most recent week first. An empty store is an empty table.
func (r *CatalogRepository) Load(ctx context.Context) (models.CatalogTable, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+catalogColumns+` FROM catalog_entries ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	table := models.CatalogTable{}
	for rows.Next() {
		entry, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		table = append(table, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog: %w", err)
	}

	return table, nil
}

// Save replaces the stored table with table in one transaction.
func (r *CatalogRepository) Save(ctx context.Context, table models.CatalogTable) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries`); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO catalog_entries (`+catalogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, entry := range table {
			artists, err := json.Marshal(entry.Artists)
			if err != nil {
				return fmt.Errorf("failed to encode artists for week %s: %w", entry.Week, err)
			}

			if _, err := stmt.ExecContext(ctx,
				entry.Week,
				i,
				entry.Title,
				string(artists),
				entry.TimeWide,
				entry.TimeNarrow,
				nullString(entry.Identifier),
				string(entry.Status),
				entry.Error,
				nullTime(entry.ResolvedAt),
			); err != nil {
				return fmt.Errorf("failed to insert week %s: %w", entry.Week, err)
			}
		}
		return nil
	})
}

// Get returns the entry for week.
func (r *CatalogRepository) Get(ctx context.Context, week string) (*models.ResolvedRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog_entries WHERE week = ?`, week)
	return r.scanRow(row)
}

// Count returns the number of stored weeks.
func (r *CatalogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *CatalogRepository) scanRow(row scanner) (*models.ResolvedRecord, error) {
	var (
		entry      models.ResolvedRecord
		position   int
		artists    string
		identifier sql.NullString
		status     string
		resolvedAt sql.NullTime
	)

	err := row.Scan(
		&entry.Week, &position, &entry.Title, &artists, &entry.TimeWide, &entry.TimeNarrow,
		&identifier, &status, &entry.Error, &resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("catalog entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
	}

	if err := json.Unmarshal([]byte(artists), &entry.Artists); err != nil {
		return nil, fmt.Errorf("failed to decode artists for week %s: %w", entry.Week, err)
	}
	entry.Identifier = identifier.String
	entry.Status = models.Status(status)
	if resolvedAt.Valid {
		entry.ResolvedAt = resolvedAt.Time
	}

	return &entry, nil
}
