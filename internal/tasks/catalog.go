package tasks

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/unavoidables/internal/models"
)

// CatalogStore loads and saves the persisted [models.CatalogTable].
type CatalogStore interface {
	Load(ctx context.Context) (models.CatalogTable, error)
	Save(ctx context.Context, table models.CatalogTable) error
}

// RecordFailure pairs a record with the reason it could not be resolved or placed.
type RecordFailure struct {
	Record models.ScrapedRecord
	Err    error
}

// MergeResult is the outcome of one merge.
type MergeResult struct {
	Table          models.CatalogTable     // the merged table, most recent week first
	Added          []models.ResolvedRecord // new entries, in the order they were resolved
	Skipped        int                     // fresh records already covered by the stored table
	Failed         []RecordFailure         // appended with status failed
	Rejected       []RecordFailure         // not appended, their week could not be read
	ShortCircuited bool                    // nothing was resolved because the sizes matched
	FirstRun       bool                    // the stored table was empty
	Saved          bool                    // set by [CatalogEngine.Update] after a save
}

// Changed reports whether the merge produced new entries.
func (m *MergeResult) Changed() bool {
	return len(m.Added) > 0
}

// CatalogEngine merges freshly scraped records into the stored table.
type CatalogEngine struct {
	resolver  RecordResolver
	overrides models.Overrides
	logger    *log.Logger
	now       func() time.Time
}

// NewCatalogEngine creates an engine. overrides replace the scraped artists of specific titles before resolution.
func NewCatalogEngine(resolver RecordResolver, overrides models.Overrides, logger *log.Logger) *CatalogEngine {
	return &CatalogEngine{
		resolver:  resolver,
		overrides: overrides,
		logger:    logger,
		now:       time.Now,
	}
}

// Merge computes the next table from existing and fresh. existing is not modified.
//
// An empty existing table resolves every fresh record. A fresh batch the same size as a non-empty
// existing table is treated as "no new data" and resolves nothing. Otherwise only records whose week
// is newer than the most recent stored week are resolved, one at a time from oldest to newest, and
// prepended. The only errors are an invalid existing table and context cancellation.
func (e *CatalogEngine) Merge(ctx context.Context, existing models.CatalogTable, fresh []models.ScrapedRecord, progress chan<- ProgressUpdate) (*MergeResult, error) {
	if err := existing.Validate(); err != nil {
		return nil, err
	}

	result := &MergeResult{Table: existing}
	sendProgress(progress, loadCatalogUpdate(len(existing), len(fresh)))

	if len(existing) == 0 {
		result.FirstRun = true
		return e.firstRun(ctx, fresh, result, progress)
	}

	if len(fresh) == len(existing) {
		result.ShortCircuited = true
		e.info("no new data, catalog unchanged", "scraped", len(fresh), "stored", len(existing))
		sendProgress(progress, shortCircuitUpdate(len(existing)))
		return result, nil
	}

	mostRecent := existing.MostRecentWeek()
	ordered := oldestFirst(fresh)
	table := append(models.CatalogTable(nil), existing...)

	for i, rec := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := models.ParseWeek(rec.Week); err != nil {
			result.Rejected = append(result.Rejected, RecordFailure{Record: rec, Err: err})
			e.warn("rejecting record without a week", "title", rec.Title, "err", err)
			continue
		}

		if models.CompareWeeks(mostRecent, rec.Week) >= 0 || table.Contains(rec.Week) {
			result.Skipped++
			continue
		}

		sendProgress(progress, resolveTrackUpdate(i+1, len(ordered), &rec))
		resolved, err := e.resolve(ctx, rec, result)
		if err != nil {
			return nil, err
		}

		table = append(models.CatalogTable{resolved}, table...)
		result.Added = append(result.Added, resolved)
		sendProgress(progress, resolvedTrackUpdate(i+1, len(ordered), resolved))
	}

	result.Table = table
	return result, nil
}

func (e *CatalogEngine) firstRun(ctx context.Context, fresh []models.ScrapedRecord, result *MergeResult, progress chan<- ProgressUpdate) (*MergeResult, error) {
	table := make(models.CatalogTable, 0, len(fresh))
	seen := make(map[string]bool, len(fresh))

	for i, rec := range fresh {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := models.ParseWeek(rec.Week); err != nil {
			result.Rejected = append(result.Rejected, RecordFailure{Record: rec, Err: err})
			e.warn("rejecting record without a week", "title", rec.Title, "err", err)
			continue
		}
		if seen[rec.Week] {
			result.Skipped++
			continue
		}
		seen[rec.Week] = true

		sendProgress(progress, resolveTrackUpdate(i+1, len(fresh), &rec))
		resolved, err := e.resolve(ctx, rec, result)
		if err != nil {
			return nil, err
		}

		table = append(table, resolved)
		result.Added = append(result.Added, resolved)
		sendProgress(progress, resolvedTrackUpdate(i+1, len(fresh), resolved))
	}

	sort.SliceStable(table, func(i, j int) bool {
		return models.CompareWeeks(table[i].Week, table[j].Week) > 0
	})

	result.Table = table
	return result, nil
}

// resolve applies overrides and resolves one record. Resolution failures are recorded on the entry,
// only context cancellation is returned.
func (e *CatalogEngine) resolve(ctx context.Context, rec models.ScrapedRecord, result *MergeResult) (models.ResolvedRecord, error) {
	if overridden, ok := e.overrides.Apply(rec); ok {
		e.debug("applying artist override", "title", rec.Title, "artists", overridden.Artists)
		rec = overridden
	}

	entry := models.ResolvedRecord{ScrapedRecord: rec, Status: models.StatusUnresolved, ResolvedAt: e.now().UTC()}

	res, err := e.resolver.Resolve(ctx, rec)
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return entry, err
	case err != nil:
		entry.Status = models.StatusFailed
		entry.Error = err.Error()
		result.Failed = append(result.Failed, RecordFailure{Record: rec, Err: err})
		e.warn("resolution failed", "week", rec.Week, "title", rec.Title, "err", err)
	case res != nil && res.Resolved:
		entry.Status = models.StatusResolved
		entry.Identifier = res.Identifier
	}

	return entry, nil
}

// Update loads the stored table, merges fresh into it and saves the result when it changed.
func (e *CatalogEngine) Update(ctx context.Context, store CatalogStore, fresh []models.ScrapedRecord, progress chan<- ProgressUpdate) (*MergeResult, error) {
	existing, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	result, err := e.Merge(ctx, existing, fresh, progress)
	if err != nil {
		return nil, err
	}

	if !result.Changed() {
		return result, nil
	}

	if err := store.Save(ctx, result.Table); err != nil {
		return result, err
	}
	result.Saved = true
	sendProgress(progress, saveCatalogUpdate(len(result.Table)))
	e.info("catalog saved", "weeks", len(result.Table), "added", len(result.Added), "failed", len(result.Failed))
	return result, nil
}

// oldestFirst returns a copy of records ordered by ascending week. Unparseable weeks keep their relative order.
func oldestFirst(records []models.ScrapedRecord) []models.ScrapedRecord {
	out := append([]models.ScrapedRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return models.CompareWeeks(out[i].Week, out[j].Week) < 0
	})
	return out
}

func (e *CatalogEngine) info(msg string, kv ...any) {
	if e.logger != nil {
		e.logger.Info(msg, kv...)
	}
}

func (e *CatalogEngine) warn(msg string, kv ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, kv...)
	}
}

func (e *CatalogEngine) debug(msg string, kv ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, kv...)
	}
}
