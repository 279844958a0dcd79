package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/unavoidables/internal/shared"
)

// ScrapedRecord is one chart entry for one week. Artists are ordered with the primary artist first.
type ScrapedRecord struct {
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Week       string   `json:"week"`
	TimeWide   string   `json:"time_wide"`
	TimeNarrow string   `json:"time_narrow"`
}

// PrimaryArtist returns the first artist, or "" when none were scraped.
func (r ScrapedRecord) PrimaryArtist() string {
	if len(r.Artists) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Artists[0])
}

// Validate reports [shared.ErrMalformedRecord] when the record cannot be searched for.
func (r ScrapedRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: week %q has no title", shared.ErrMalformedRecord, r.Week)
	}
	if r.PrimaryArtist() == "" {
		return fmt.Errorf("%w: %q (week %q) has no artist", shared.ErrMalformedRecord, r.Title, r.Week)
	}
	return nil
}

// CatalogCandidate is one track returned by a catalog search.
type CatalogCandidate struct {
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Identifier string   `json:"identifier"`
}

// Validate rejects candidates that cannot be ranked or added to a playlist.
func (c CatalogCandidate) Validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return fmt.Errorf("%w: missing title (%s)", shared.ErrMalformedCandidate, c.Identifier)
	case len(c.Artists) == 0:
		return fmt.Errorf("%w: %q has no artists", shared.ErrMalformedCandidate, c.Title)
	case strings.TrimSpace(c.Identifier) == "":
		return fmt.Errorf("%w: %q has no identifier", shared.ErrMalformedCandidate, c.Title)
	}
	for _, a := range c.Artists {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("%w: %q has an empty artist name", shared.ErrMalformedCandidate, c.Title)
		}
	}
	return nil
}

// Status is the outcome of resolving one record.
type Status string

const (
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
	StatusFailed     Status = "failed"
)

// ResolvedRecord is a [ScrapedRecord] with its resolution outcome.
//
// An empty Identifier means unresolved (or failed, see Status). Records are never re-resolved once stored.
type ResolvedRecord struct {
	ScrapedRecord
	Identifier string    `json:"identifier,omitempty"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// HasIdentifier reports whether the record carries a catalog identifier.
func (r ResolvedRecord) HasIdentifier() bool {
	return r.Identifier != ""
}

// Run summarizes one invocation of the catalog update.
type Run struct {
	ID             string     `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Scraped        int        `json:"scraped"`
	Existing       int        `json:"existing"`
	Added          int        `json:"added"`
	Resolved       int        `json:"resolved"`
	Unresolved     int        `json:"unresolved"`
	Failed         int        `json:"failed"`
	ShortCircuited bool       `json:"short_circuited"`
	Synced         int        `json:"synced"`
}

// Duration returns how long the run took, zero while unfinished.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
