package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/shared"
)

// RunRepository records catalog update runs.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, started_at, finished_at, scraped, existing, added, resolved, unresolved, failed, short_circuited, synced`

// Create inserts run with a generated ID.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: run has no start time", shared.ErrInvalidArgument)
	}
	run.ID = shared.GenerateID()

	_, err := r.db.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC(),
		finishedAt(run),
		run.Scraped,
		run.Existing,
		run.Added,
		run.Resolved,
		run.Unresolved,
		run.Failed,
		run.ShortCircuited,
		run.Synced,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Update writes the counters and finish time of an existing run.
func (r *RunRepository) Update(ctx context.Context, run *models.Run) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, scraped = ?, existing = ?, added = ?, resolved = ?, unresolved = ?,
			failed = ?, short_circuited = ?, synced = ?
		WHERE id = ?
	`,
		finishedAt(run),
		run.Scraped,
		run.Existing,
		run.Added,
		run.Resolved,
		run.Unresolved,
		run.Failed,
		run.ShortCircuited,
		run.Synced,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	return r.scanRow(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
}

// List returns the most recent runs first. A non-positive limit returns all runs.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) scanRow(row scanner) (*models.Run, error) {
	var (
		run      models.Run
		finished sql.NullTime
	)

	err := row.Scan(
		&run.ID, &run.StartedAt, &finished, &run.Scraped, &run.Existing, &run.Added,
		&run.Resolved, &run.Unresolved, &run.Failed, &run.ShortCircuited, &run.Synced,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func finishedAt(run *models.Run) any {
	if run.FinishedAt == nil {
		return nil
	}
	return run.FinishedAt.UTC()
}
