package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func entry(week, title, identifier string, artists ...string) models.ResolvedRecord {
	status := models.StatusResolved
	var resolvedAt time.Time
	if identifier == "" {
		status = models.StatusUnresolved
	} else {
		resolvedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return models.ResolvedRecord{
		ScrapedRecord: models.ScrapedRecord{
			Title:      title,
			Artists:    artists,
			Week:       week,
			TimeWide:   "12",
			TimeNarrow: "3",
		},
		Identifier: identifier,
		Status:     status,
		ResolvedAt: resolvedAt,
	}
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Load empty", func(t *testing.T) {
		repo := NewCatalogRepository(setupTestDB(t))

		table, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(table) != 0 {
			t.Errorf("expected empty table, got %d entries", len(table))
		}
	})

	t.Run("Save and Load", func(t *testing.T) {
		repo := NewCatalogRepository(setupTestDB(t))
		table := models.CatalogTable{
			entry("2024 10", "Espresso", "spotify:track:1", "Sabrina Carpenter"),
			entry("2024 09", "Unknown Song", "", "Somebody", "Featured"),
			entry("2024 08", "Houdini", "spotify:track:3", "Dua Lipa"),
		}

		if err := repo.Save(ctx, table); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(got) != len(table) {
			t.Fatalf("expected %d entries, got %d", len(table), len(got))
		}

		for i := range table {
			if got[i].Week != table[i].Week {
				t.Errorf("entry %d: expected week %q, got %q", i, table[i].Week, got[i].Week)
			}
			if got[i].Identifier != table[i].Identifier {
				t.Errorf("entry %d: expected identifier %q, got %q", i, table[i].Identifier, got[i].Identifier)
			}
			if got[i].Status != table[i].Status {
				t.Errorf("entry %d: expected status %q, got %q", i, table[i].Status, got[i].Status)
			}
			if len(got[i].Artists) != len(table[i].Artists) {
				t.Errorf("entry %d: expected artists %v, got %v", i, table[i].Artists, got[i].Artists)
			}
		}

		if got[1].Artists[1] != "Featured" {
			t.Errorf("expected second artist to survive, got %v", got[1].Artists)
		}
		if !got[1].ResolvedAt.IsZero() {
			t.Errorf("expected zero resolved_at for unresolved entry, got %v", got[1].ResolvedAt)
		}
		if !got[0].ResolvedAt.Equal(table[0].ResolvedAt) {
			t.Errorf("expected resolved_at %v, got %v", table[0].ResolvedAt, got[0].ResolvedAt)
		}
	})

	t.Run("Save replaces previous table", func(t *testing.T) {
		repo := NewCatalogRepository(setupTestDB(t))

		first := models.CatalogTable{entry("2024 08", "Houdini", "spotify:track:3", "Dua Lipa")}
		if err := repo.Save(ctx, first); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		second := append(models.CatalogTable{entry("2024 09", "Espresso", "spotify:track:1", "Sabrina Carpenter")}, first...)
		if err := repo.Save(ctx, second); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		n, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 entries, got %d", n)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.MostRecentWeek() != "2024 09" {
			t.Errorf("expected most recent week 2024 09, got %q", got.MostRecentWeek())
		}
	})

	t.Run("Save rejects invalid table and keeps previous", func(t *testing.T) {
		repo := NewCatalogRepository(setupTestDB(t))

		valid := models.CatalogTable{entry("2024 08", "Houdini", "spotify:track:3", "Dua Lipa")}
		if err := repo.Save(ctx, valid); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		invalid := models.CatalogTable{
			entry("2024 07", "Older", "", "Someone"),
			entry("2024 08", "Newer", "", "Someone"),
		}
		err := repo.Save(ctx, invalid)
		if !errors.Is(err, shared.ErrInvalidCatalog) {
			t.Fatalf("expected ErrInvalidCatalog, got %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Houdini" {
			t.Errorf("expected previous table to survive, got %+v", got)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewCatalogRepository(setupTestDB(t))
		if err := repo.Save(ctx, models.CatalogTable{entry("2024 08", "Houdini", "spotify:track:3", "Dua Lipa")}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Get(ctx, "2024 08")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Title != "Houdini" {
			t.Errorf("expected Houdini, got %q", got.Title)
		}

		if _, err := repo.Get(ctx, "1999 01"); err == nil {
			t.Error("expected error for missing week")
		}
	})
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create requires start time", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))

		err := repo.Create(ctx, &models.Run{})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Create, Update and Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := &models.Run{StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Scraped: 30}

		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if run.ID == "" {
			t.Fatal("expected ID to be assigned")
		}

		got, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.FinishedAt != nil {
			t.Errorf("expected unfinished run, got %v", got.FinishedAt)
		}
		if got.Scraped != 30 {
			t.Errorf("expected scraped 30, got %d", got.Scraped)
		}

		finished := run.StartedAt.Add(90 * time.Second)
		run.FinishedAt = &finished
		run.Added = 2
		run.Resolved = 1
		run.Unresolved = 1
		run.Synced = 1

		if err := repo.Update(ctx, run); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		got, err = repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
			t.Errorf("expected finished at %v, got %v", finished, got.FinishedAt)
		}
		if got.Added != 2 || got.Resolved != 1 || got.Unresolved != 1 || got.Synced != 1 {
			t.Errorf("unexpected counters: %+v", got)
		}
		if got.Duration() != 90*time.Second {
			t.Errorf("expected duration 90s, got %v", got.Duration())
		}
	})

	t.Run("Update missing run", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))

		if err := repo.Update(ctx, &models.Run{ID: "missing"}); err == nil {
			t.Error("expected error for missing run")
		}
	})

	t.Run("Get missing run", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))

		if _, err := repo.Get(ctx, "missing"); err == nil {
			t.Error("expected error for missing run")
		}
	})

	t.Run("List most recent first", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		for i := range 3 {
			if err := repo.Create(ctx, &models.Run{StartedAt: base.Add(time.Duration(i) * time.Hour), Scraped: i}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}

		all, err := repo.List(ctx, 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(all))
		}
		if all[0].Scraped != 2 || all[2].Scraped != 0 {
			t.Errorf("expected newest first, got scraped %d..%d", all[0].Scraped, all[2].Scraped)
		}

		limited, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 runs, got %d", len(limited))
		}
	})
}
