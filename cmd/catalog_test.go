package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/repositories"
	"github.com/desertthunder/unavoidables/internal/services"
	"github.com/desertthunder/unavoidables/internal/shared"
	tu "github.com/desertthunder/unavoidables/internal/testing"
)

const testPage = `<html><body><div id="content"><table>
<tr>
  <th class="week-info">2024 2</th>
  <td class="main"><a class="track">Song Two</a> <a class="artist">Second Artist</a></td>
  <td class="side"><span class="time--wide">1 week</span><span class="time--narrow">1w</span></td>
</tr>
<tr>
  <th class="week-info">2024 1</th>
  <td class="main"><a class="track">Song One</a> <a class="artist">First Artist</a></td>
  <td class="side"><span class="time--wide">2 weeks</span><span class="time--narrow">2w</span></td>
</tr>
</table></div></body></html>`

type pageFetcher struct {
	body  string
	calls int
}

func (f *pageFetcher) Decade(ctx context.Context, year int) (*services.PageResponse, error) {
	f.calls++
	return &services.PageResponse{URL: "http://chart.test", StatusCode: 200, Body: []byte(f.body)}, nil
}

type testEnv struct {
	runner    *Runner
	output    *bytes.Buffer
	config    *shared.Config
	db        *sql.DB
	dir       string
	searcher  *tu.MockSearcher
	playlists *tu.MockPlaylistService
	fetcher   *pageFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "catalog.db")
	config.Export.CSVPath = filepath.Join(dir, "catalog.csv")
	config.Scraper.CachePath = filepath.Join(dir, "page.html")
	config.Spotify.RequestsPerSecond = 0

	db, err := shared.OpenCatalogDatabase(":memory:", 1, 1)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	env := &testEnv{
		output: &bytes.Buffer{},
		config: config,
		db:     db,
		dir:    dir,
		searcher: tu.NewMockSearcher().
			On("Song One First Artist", tu.Candidate("spotify:track:1", "Song One", "First Artist")).
			On("Song Two Second Artist", tu.Candidate("spotify:track:2", "Song Two", "Second Artist")),
		playlists: tu.NewMockPlaylistService("pl", config.Spotify.PlaylistName),
		fetcher:   &pageFetcher{body: testPage},
	}

	env.runner = NewRunner(RunnerOpts{
		Config:    config,
		Logger:    shared.NewLogger(&bytes.Buffer{}),
		Output:    env.output,
		Searcher:  env.searcher,
		Playlists: env.playlists,
		Fetcher:   env.fetcher,
		DB:        db,
	})
	t.Cleanup(env.runner.Close)
	return env
}

func (e *testEnv) run(args ...string) error {
	e.output.Reset()
	return e.runner.app().Run(context.Background(), append([]string{appName}, args...))
}

func (e *testEnv) runs(t *testing.T) []*models.Run {
	t.Helper()
	runs, err := repositories.NewRunRepository(e.db).List(context.Background(), 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	return runs
}

func TestRunCommand(t *testing.T) {
	t.Run("creates the catalog, writes the CSV copy and syncs", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("run"); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		out := env.output.String()
		if !strings.Contains(out, "Catalog created with 2 entries") {
			t.Errorf("expected creation summary, got %q", out)
		}
		if !strings.Contains(out, "Added 2 tracks") {
			t.Errorf("expected sync summary, got %q", out)
		}

		items := env.playlists.Items["pl"]
		if len(items) != 2 || items[0] != "spotify:track:2" || items[1] != "spotify:track:1" {
			t.Errorf("expected most recent week first, got %v", items)
		}
		if !strings.Contains(env.playlists.Descriptions["pl"], "Sidste automatiske opdatering") {
			t.Errorf("expected description to be stamped, got %q", env.playlists.Descriptions["pl"])
		}

		csv := tu.MustReadFile(t, env.config.Export.CSVPath)
		if !strings.Contains(csv, "Song One") || !strings.Contains(csv, "spotify:track:2") {
			t.Errorf("unexpected CSV export:\n%s", csv)
		}
		tu.AssertFileExists(t, env.config.Scraper.CachePath)

		runs := env.runs(t)
		if len(runs) != 1 {
			t.Fatalf("expected 1 recorded run, got %d", len(runs))
		}
		run := runs[0]
		if run.Scraped != 2 || run.Added != 2 || run.Resolved != 2 || run.Synced != 2 {
			t.Errorf("unexpected run counters %+v", run)
		}
		if run.FinishedAt == nil {
			t.Error("expected run to be finished")
		}
	})

	t.Run("second run short circuits", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("run"); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		searches := env.searcher.Calls()

		if err := env.run("run"); err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		if !strings.Contains(env.output.String(), "Catalog unchanged (2 entries)") {
			t.Errorf("expected unchanged summary, got %q", env.output.String())
		}
		if env.searcher.Calls() != searches {
			t.Errorf("expected no new searches, got %d", env.searcher.Calls()-searches)
		}
		if len(env.playlists.Adds) != 1 {
			t.Errorf("expected no additional adds, got %d calls", len(env.playlists.Adds))
		}

		runs := env.runs(t)
		if len(runs) != 2 {
			t.Fatalf("expected 2 recorded runs, got %d", len(runs))
		}
		shortCircuited := 0
		for _, r := range runs {
			if r.ShortCircuited {
				shortCircuited++
			}
		}
		if shortCircuited != 1 {
			t.Errorf("expected exactly one short-circuited run, got %d", shortCircuited)
		}
	})

	t.Run("dry run leaves the playlist alone", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("run", "--dry-run"); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if !strings.Contains(env.output.String(), "Would add 2 tracks") {
			t.Errorf("expected dry run summary, got %q", env.output.String())
		}
		if len(env.playlists.Adds) != 0 {
			t.Errorf("expected no adds, got %d", len(env.playlists.Adds))
		}
		if runs := env.runs(t); runs[0].Synced != 0 {
			t.Errorf("expected nothing synced, got %d", runs[0].Synced)
		}
	})

	t.Run("skip sync only updates the catalog", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("run", "--skip-sync"); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if len(env.playlists.Adds) != 0 {
			t.Errorf("expected no adds, got %d", len(env.playlists.Adds))
		}

		count, err := repositories.NewCatalogRepository(env.db).Count(context.Background())
		if err != nil || count != 2 {
			t.Errorf("expected 2 stored entries, got %d (%v)", count, err)
		}
	})

	t.Run("strict fails when a record could not be resolved", func(t *testing.T) {
		env := newTestEnv(t)
		env.searcher.Fail("Song One First Artist", errors.New("connection reset"))

		err := env.run("run", "--skip-sync", "--strict")
		if !errors.Is(err, shared.ErrIncompleteRun) {
			t.Fatalf("expected ErrIncompleteRun, got %v", err)
		}

		entry, err := repositories.NewCatalogRepository(env.db).Get(context.Background(), "2024 01")
		if err != nil {
			t.Fatalf("expected failed entry to be stored: %v", err)
		}
		if entry.Status != models.StatusFailed {
			t.Errorf("expected failed status, got %s", entry.Status)
		}
		if !strings.Contains(env.output.String(), "connection reset") {
			t.Errorf("expected failure to be reported, got %q", env.output.String())
		}
		if runs := env.runs(t); runs[0].Failed != 1 {
			t.Errorf("expected 1 failed record in the run, got %d", runs[0].Failed)
		}
	})

	t.Run("failures without strict still succeed", func(t *testing.T) {
		env := newTestEnv(t)
		env.searcher.Fail("Song One First Artist", errors.New("connection reset"))

		if err := env.run("run", "--skip-sync"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("refuses to run while locked", func(t *testing.T) {
		env := newTestEnv(t)

		lock, err := shared.AcquireRunLock(env.config.Database.Path)
		if err != nil {
			t.Fatalf("failed to take lock: %v", err)
		}
		defer lock.Release()

		if err := env.run("run"); !errors.Is(err, shared.ErrLocked) {
			t.Errorf("expected ErrLocked, got %v", err)
		}
		if env.fetcher.calls != 0 {
			t.Errorf("expected no fetch while locked, got %d", env.fetcher.calls)
		}
	})

	t.Run("cached run reads the stored page", func(t *testing.T) {
		env := newTestEnv(t)
		if err := os.WriteFile(env.config.Scraper.CachePath, []byte(testPage), 0644); err != nil {
			t.Fatalf("failed to write cache: %v", err)
		}

		if err := env.run("run", "--cached", "--skip-sync"); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if env.fetcher.calls != 0 {
			t.Errorf("expected cached page to be used, got %d fetches", env.fetcher.calls)
		}
	})
}

func TestScrapeCommand(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("scrape", "--json"); err != nil {
		t.Fatalf("scrape failed: %v", err)
	}

	var records []models.ScrapedRecord
	if err := json.Unmarshal(env.output.Bytes(), &records); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, env.output.String())
	}
	if len(records) != 2 || records[0].Week != "2024 02" || records[1].Title != "Song One" {
		t.Errorf("unexpected records %+v", records)
	}

	if err := env.run("scrape", "--cached"); err != nil {
		t.Fatalf("cached scrape failed: %v", err)
	}
	if env.fetcher.calls != 1 {
		t.Errorf("expected one fetch, got %d", env.fetcher.calls)
	}
	if !strings.Contains(env.output.String(), "Scraped 2 records") {
		t.Errorf("expected table output, got %q", env.output.String())
	}
}

func TestResolveCommand(t *testing.T) {
	t.Run("shows the accepted candidate", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("resolve", "--title", "Song One", "--artist", "First Artist"); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Resolved to spotify:track:1") {
			t.Errorf("expected resolution, got %q", env.output.String())
		}
	})

	t.Run("applies overrides before searching", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("resolve", "--title", sentinel, "--artist", "Somebody"); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if len(env.searcher.Queries) == 0 || env.searcher.Queries[0] != sentinel+" Bikstok" {
			t.Errorf("expected override query, got %v", env.searcher.Queries)
		}
		if !strings.Contains(env.output.String(), "No acceptable candidate") {
			t.Errorf("expected no match, got %q", env.output.String())
		}
	})

	t.Run("requires an artist", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("resolve", "--title", "Song One"); err == nil {
			t.Error("expected missing flag error")
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.Results["Song Two Second Artist"] = nil

	if err := env.run("run", "--skip-sync"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	t.Run("show", func(t *testing.T) {
		if err := env.run("catalog", "show", "--json"); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		var table models.CatalogTable
		if err := json.Unmarshal(env.output.Bytes(), &table); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(table) != 2 || table[0].Week != "2024 02" {
			t.Errorf("unexpected table %+v", table)
		}
	})

	t.Run("show unresolved", func(t *testing.T) {
		if err := env.run("catalog", "show", "--unresolved", "--json"); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		var table models.CatalogTable
		if err := json.Unmarshal(env.output.Bytes(), &table); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(table) != 1 || table[0].Title != "Song Two" {
			t.Errorf("expected only the unresolved entry, got %+v", table)
		}
	})

	t.Run("show table", func(t *testing.T) {
		if err := env.run("catalog", "show", "--limit", "1"); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		out := env.output.String()
		if !strings.Contains(out, "Song Two") || strings.Contains(out, "Song One") {
			t.Errorf("expected one row, got %q", out)
		}
		if !strings.Contains(out, "1 resolved, 1 unresolved, 0 failed") {
			t.Errorf("expected counts, got %q", out)
		}
	})

	t.Run("export to file", func(t *testing.T) {
		path := filepath.Join(env.dir, "out", "catalog.md")
		if err := env.run("catalog", "export", "--format", "markdown", "--output", path); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "Song One") {
			t.Error("expected export to contain the catalog")
		}
	})

	t.Run("export to stdout", func(t *testing.T) {
		if err := env.run("catalog", "export", "--output", "-"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.HasPrefix(env.output.String(), "title,artists,week") {
			t.Errorf("expected CSV on stdout, got %q", env.output.String())
		}
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		err := env.run("catalog", "export", "--format", "xml", "--output", "-")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("history", func(t *testing.T) {
		if err := env.run("history", "--json"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		var runs []models.Run
		if err := json.Unmarshal(env.output.Bytes(), &runs); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(runs) != 1 || runs[0].Added != 2 || runs[0].Unresolved != 1 {
			t.Errorf("unexpected runs %+v", runs)
		}
	})
}

func TestSyncCommand(t *testing.T) {
	t.Run("rejects an empty catalog", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("sync"); !errors.Is(err, shared.ErrInvalidCatalog) {
			t.Errorf("expected ErrInvalidCatalog, got %v", err)
		}
	})

	t.Run("adds the stored identifiers", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("run", "--skip-sync"); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if err := env.run("sync"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if len(env.playlists.Items["pl"]) != 2 {
			t.Errorf("expected 2 playlist items, got %v", env.playlists.Items["pl"])
		}

		if err := env.run("sync"); err != nil {
			t.Fatalf("second sync failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "is up to date") {
			t.Errorf("expected up to date summary, got %q", env.output.String())
		}
	})

	t.Run("reports a missing playlist", func(t *testing.T) {
		env := newTestEnv(t)
		env.config.Spotify.PlaylistName = "Nope"
		if err := env.run("run", "--skip-sync"); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if err := env.run("sync"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestConfigLoading(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "catalog.db")
	config.Spotify.PlaylistName = "From File"
	if err := shared.SaveConfig(configPath, config); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{}), Output: output})
	t.Cleanup(runner.Close)

	if err := runner.app().Run(context.Background(), []string{appName, "--config", configPath, "history"}); err != nil {
		t.Fatalf("history failed: %v", err)
	}

	if runner.config.Spotify.PlaylistName != "From File" {
		t.Errorf("expected config to be loaded, got %q", runner.config.Spotify.PlaylistName)
	}
	if runner.configPath != configPath {
		t.Errorf("expected config path to be kept, got %q", runner.configPath)
	}
	if !strings.Contains(output.String(), "No runs recorded yet") {
		t.Errorf("expected empty history, got %q", output.String())
	}
	tu.AssertFileExists(t, config.Database.Path)
}

func TestSetupDatabase(t *testing.T) {
	t.Run("uses an existing config", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")

		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(dir, "data", "catalog.db")
		if err := shared.SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{}), Output: output})
		t.Cleanup(runner.Close)

		if err := runner.app().Run(context.Background(), []string{appName, "-c", configPath, "setup", "database"}); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		tu.AssertFileExists(t, config.Database.Path)
		if strings.Contains(output.String(), "Config file created") {
			t.Errorf("expected existing config to be kept, got %q", output.String())
		}
		if !strings.Contains(output.String(), "schema version 2") {
			t.Errorf("expected schema version, got %q", output.String())
		}
	})

	t.Run("creates a missing config", func(t *testing.T) {
		env := newTestEnv(t)
		t.Cleanup(xdg.Reload)
		t.Setenv("XDG_DATA_HOME", env.dir)
		xdg.Reload()

		configPath := filepath.Join(env.dir, "config.toml")
		env.runner.configPath = configPath

		if err := env.run("setup", "database"); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		tu.AssertFileExists(t, configPath)
		if !strings.Contains(env.output.String(), "Config file created") {
			t.Errorf("expected config creation to be reported, got %q", env.output.String())
		}
	})

	t.Run("rollback", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("setup", "rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Rolled back migration 2") {
			t.Errorf("unexpected output %q", env.output.String())
		}

		version, err := shared.MigrationVersion(env.db)
		if err != nil || version != 1 {
			t.Errorf("expected version 1, got %d (%v)", version, err)
		}
	})
}
