package models

import (
	"fmt"

	"github.com/desertthunder/unavoidables/internal/shared"
)

// CatalogTable is every resolved record, most recent week first.
type CatalogTable []ResolvedRecord

// MostRecentWeek returns the week of entry 0, or "" for an empty table.
func (t CatalogTable) MostRecentWeek() string {
	if len(t) == 0 {
		return ""
	}
	return t[0].Week
}

// Identifiers returns the catalog identifiers in table order, skipping unresolved entries.
func (t CatalogTable) Identifiers() []string {
	ids := make([]string, 0, len(t))
	for _, r := range t {
		if r.HasIdentifier() {
			ids = append(ids, r.Identifier)
		}
	}
	return ids
}

// Contains reports whether week is already present.
func (t CatalogTable) Contains(week string) bool {
	for _, r := range t {
		if r.Week == week {
			return true
		}
	}
	return false
}

// Counts tallies entries by status.
func (t CatalogTable) Counts() map[Status]int {
	counts := map[Status]int{StatusResolved: 0, StatusUnresolved: 0, StatusFailed: 0}
	for _, r := range t {
		counts[r.Status]++
	}
	return counts
}

// Filter returns the entries for which keep returns true, preserving order.
func (t CatalogTable) Filter(keep func(ResolvedRecord) bool) CatalogTable {
	out := make(CatalogTable, 0, len(t))
	for _, r := range t {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks that weeks are unique and strictly descending.
func (t CatalogTable) Validate() error {
	seen := make(map[string]int, len(t))
	for i, r := range t {
		if r.Week == "" {
			return fmt.Errorf("%w: entry %d has no week", shared.ErrInvalidCatalog, i)
		}
		if j, ok := seen[r.Week]; ok {
			return fmt.Errorf("%w: week %q at positions %d and %d", shared.ErrInvalidCatalog, r.Week, j, i)
		}
		seen[r.Week] = i
		if i > 0 && CompareWeeks(t[i-1].Week, r.Week) <= 0 {
			return fmt.Errorf("%w: week %q at %d is not older than %q", shared.ErrInvalidCatalog, r.Week, i, t[i-1].Week)
		}
	}
	return nil
}

// Overrides replaces the scraped artists of specific titles.
type Overrides map[string][]string

// Apply returns record with its artists replaced when its title has an override. The input is not modified.
func (o Overrides) Apply(record ScrapedRecord) (ScrapedRecord, bool) {
	artists, ok := o[record.Title]
	if !ok {
		return record, false
	}
	record.Artists = append([]string(nil), artists...)
	return record, true
}
