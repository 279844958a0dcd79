// Package ui implements the catalog browser using bubbletea's Elm architecture.
//
// Views:
//  1. [CatalogView] : the stored table, most recent week first, filterable with "/"
//  2. [DetailView] : one week with its resolution outcome
//  3. [ConfirmView] : confirm a playlist sync
//  4. [SyncView] : progress of a running sync
//  5. [ResultView] : what the sync added
//
// "u" toggles between every week and unresolved weeks only. Progress from [tasks.PlaylistSync] flows
// through a channel, one message per update.
package ui
