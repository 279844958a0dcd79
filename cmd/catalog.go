package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/unavoidables/internal/formatter"
	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/repositories"
	"github.com/desertthunder/unavoidables/internal/shared"
	"github.com/desertthunder/unavoidables/internal/tasks"
)

// Scrape fetches (or reads the cached) chart page and prints the parsed records.
func (r *Runner) Scrape(ctx context.Context, cmd *cli.Command) error {
	sc, err := r.newScraper()
	if err != nil {
		return err
	}

	records, err := sc.Load(ctx, cmd.Bool("cached"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.Week, rec.Title, strings.Join(rec.Artists, ", "), rec.TimeWide})
	}
	r.writePlain("%s\n", formatter.RenderTable(
		[]string{"Week", "Title", "Artists", "Time"},
		rows,
		[]formatter.Alignment{formatter.AlignLeft, formatter.AlignLeft, formatter.AlignLeft, formatter.AlignLeft},
	))
	r.writePlain("Scraped %d records\n", len(records))
	return nil
}

// Run scrapes the chart, merges new weeks into the catalog, writes the CSV copy and syncs the playlist.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	dbPath, err := r.config.DatabasePath()
	if err != nil {
		return err
	}

	lock, err := shared.AcquireRunLock(dbPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	db, err := r.database()
	if err != nil {
		return err
	}

	runs := repositories.NewRunRepository(db)
	run := &models.Run{StartedAt: r.now().UTC()}
	if err := runs.Create(ctx, run); err != nil {
		return err
	}
	defer r.finishRun(context.WithoutCancel(ctx), runs, run)

	sc, err := r.newScraper()
	if err != nil {
		return err
	}
	records, err := sc.Load(ctx, cmd.Bool("cached"))
	if err != nil {
		return err
	}
	run.Scraped = len(records)

	searcher, err := r.searchService(ctx)
	if err != nil {
		return err
	}
	defer r.persistToken()

	engine := tasks.NewCatalogEngine(r.newResolver(searcher), r.overrides(), r.logger)
	store := repositories.NewCatalogRepository(db)

	progress, stop := r.progressLogger()
	result, err := engine.Update(ctx, store, records, progress)
	stop()
	if err != nil {
		return err
	}
	recordMerge(run, result)

	if result.Saved {
		if err := r.writeCSV(result.Table); err != nil {
			return err
		}
	}
	r.printMerge(result)

	if !cmd.Bool("skip-sync") {
		synced, err := r.syncTable(ctx, result.Table, cmd.Bool("dry-run"))
		if err != nil {
			return err
		}
		if !synced.DryRun {
			run.Synced = len(synced.Missing)
		}
	}

	if n := len(result.Failed) + len(result.Rejected); n > 0 && cmd.Bool("strict") {
		return fmt.Errorf("%w: %d failed, %d rejected", shared.ErrIncompleteRun, len(result.Failed), len(result.Rejected))
	}
	return nil
}

func (r *Runner) finishRun(ctx context.Context, runs *repositories.RunRepository, run *models.Run) {
	finished := r.now().UTC()
	run.FinishedAt = &finished
	if err := runs.Update(ctx, run); err != nil {
		r.logger.Warn("failed to record run", "id", run.ID, "error", err)
	}
}

func recordMerge(run *models.Run, result *tasks.MergeResult) {
	run.Existing = len(result.Table) - len(result.Added)
	run.Added = len(result.Added)
	run.ShortCircuited = result.ShortCircuited
	for _, rec := range result.Added {
		switch rec.Status {
		case models.StatusResolved:
			run.Resolved++
		case models.StatusUnresolved:
			run.Unresolved++
		case models.StatusFailed:
			run.Failed++
		}
	}
}

func (r *Runner) writeCSV(table models.CatalogTable) error {
	csvPath, err := r.config.CSVPath()
	if err != nil {
		return err
	}
	path, err := formatter.WriteCSVExport(table, csvPath)
	if err != nil {
		return err
	}
	r.logger.Info("wrote CSV export", "path", path, "entries", len(table))
	return nil
}

func (r *Runner) printMerge(result *tasks.MergeResult) {
	switch {
	case result.ShortCircuited:
		r.writePlain("✓ Catalog unchanged (%d entries)\n", len(result.Table))
	case result.FirstRun:
		r.writePlain("✓ Catalog created with %d entries\n", len(result.Table))
	default:
		r.writePlain("✓ Catalog updated: %d added, %d skipped (%d entries)\n", len(result.Added), result.Skipped, len(result.Table))
	}

	for _, f := range result.Failed {
		r.writePlain("⚠ %s  %s - %s: %v\n", f.Record.Week, f.Record.PrimaryArtist(), f.Record.Title, f.Err)
	}
	for _, f := range result.Rejected {
		r.writePlain("✗ %q  %s - %s: %v\n", f.Record.Week, f.Record.PrimaryArtist(), f.Record.Title, f.Err)
	}
}

// Sync pushes the stored catalog to the playlist.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	table, err := repositories.NewCatalogRepository(db).Load(ctx)
	if err != nil {
		return err
	}
	if len(table) == 0 {
		return fmt.Errorf("%w: the catalog is empty, run '%s run' first", shared.ErrInvalidCatalog, appName)
	}

	_, err = r.syncTable(ctx, table, cmd.Bool("dry-run"))
	return err
}

func (r *Runner) syncTable(ctx context.Context, table models.CatalogTable, dryRun bool) (*tasks.SyncResult, error) {
	playlists, err := r.playlistService(ctx)
	if err != nil {
		return nil, err
	}
	defer r.persistToken()

	progress, stop := r.progressLogger()
	result, err := tasks.NewPlaylistSync(playlists, r.logger).Sync(ctx, table, r.syncOptions(dryRun), progress)
	stop()
	if err != nil {
		return nil, err
	}

	switch {
	case result.DryRun:
		r.writePlain("Would add %d tracks to %s (%d already present)\n", len(result.Missing), result.Playlist.Name, result.Present)
	case len(result.Missing) == 0:
		r.writePlain("✓ %s is up to date (%d tracks)\n", result.Playlist.Name, result.Present)
	default:
		r.writePlain("✓ Added %d tracks to %s in %d batches\n", len(result.Missing), result.Playlist.Name, result.Batches)
	}
	if result.Description != "" {
		r.writePlain("   Description: %s\n", result.Description)
	}
	return result, nil
}

// Resolve runs the search and ranking for a single title and artist and prints every candidate's scores.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	record := models.ScrapedRecord{
		Title:   cmd.String("title"),
		Artists: cmd.StringSlice("artist"),
	}
	record, overridden := r.overrides().Apply(record)
	if overridden {
		r.logger.Info("applied artist override", "title", record.Title, "artists", record.Artists)
	}

	searcher, err := r.searchService(ctx)
	if err != nil {
		return err
	}
	defer r.persistToken()

	res, err := r.newResolver(searcher).Explain(ctx, record)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(res, cmd.Bool("pretty"))
	}

	r.writePlain("Query: %q (%d searches)\n", res.Query, res.Searches)
	if res.Fallback {
		r.writePlainln("   title-only fallback used")
	}

	rows := make([][]string, 0, len(res.Evaluations))
	for i, e := range res.Evaluations {
		accepted := ""
		if e.Accepted {
			accepted = "✓"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Candidate.Title,
			strings.Join(e.Candidate.Artists, ", "),
			strconv.Itoa(e.TitleScore),
			strconv.Itoa(e.ArtistScore),
			accepted,
		})
	}
	if len(rows) > 0 {
		r.writePlain("%s\n", formatter.RenderTable(
			[]string{"#", "Title", "Artists", "Title score", "Artist score", "Accepted"},
			rows,
			[]formatter.Alignment{formatter.AlignRight, formatter.AlignLeft, formatter.AlignLeft, formatter.AlignRight, formatter.AlignRight, formatter.AlignLeft},
		))
	}

	if res.Resolved {
		r.writePlain("✓ Resolved to %s\n", res.Identifier)
	} else {
		r.writePlainln("✗ No acceptable candidate")
	}
	return nil
}

// CatalogShow prints the stored catalog, most recent week first.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	table, err := repositories.NewCatalogRepository(db).Load(ctx)
	if err != nil {
		return err
	}

	counts := table.Counts()
	if cmd.Bool("unresolved") {
		table = table.Filter(func(rec models.ResolvedRecord) bool {
			return rec.Status != models.StatusResolved
		})
	}
	if limit := cmd.Int("limit"); limit > 0 && limit < len(table) {
		table = table[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(table, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", formatter.CatalogRows(table))
	r.writePlain("%d resolved, %d unresolved, %d failed\n",
		counts[models.StatusResolved], counts[models.StatusUnresolved], counts[models.StatusFailed])
	return nil
}

// CatalogExport writes the stored catalog to a file, or to stdout when the output is "-".
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	table, err := repositories.NewCatalogRepository(db).Load(ctx)
	if err != nil {
		return err
	}

	format, output := cmd.String("format"), cmd.String("output")
	if output == "-" {
		data, err := formatter.Export(table, format, catalogName)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	path, err := formatter.WriteExport(table, format, catalogName, output)
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d entries to %s\n", len(table), path)
	return nil
}

// History lists recent runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewRunRepository(db).List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlainln("No runs recorded yet")
		return nil
	}
	r.writePlain("%s\n", formatter.RunRows(runs))
	return nil
}
