// Package tasks resolves scraped chart entries against the catalog, merges them into the persisted
// table and mirrors the table into a playlist, with real-time progress reporting.
//
// # Core Operations
//
//  1. [Resolver.Resolve] : one record to one identifier (or none)
//     - searches "title primary-artist", then the title alone when that finds nothing
//     - never issues a third search
//     - ranks candidates in the catalog's order, first acceptable wins
//
//  2. [CatalogEngine.Merge] : fresh scrape + existing table to the next table
//     - first run resolves everything
//     - same size as the stored table short-circuits with zero searches
//     - otherwise only weeks newer than the most recent stored week are resolved and prepended
//
//  3. [PlaylistSync.Sync] : table identifiers to the playlist
//     - adds identifiers not already present, in batches, keeping table order
//     - refreshes the playlist description
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Failures
//
// A search that could not be performed marks that one record as failed; the batch continues.
// Failed records are kept in the table with no identifier and are reported in [MergeResult.Failed].
package tasks
