package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgCatalogLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
)

type catalogLoaded struct {
	table models.CatalogTable
	err   error
}

type syncComplete struct {
	result *tasks.SyncResult
	err    error
}

// catalogLoadedMsg is the constructor for [MsgCatalogLoaded]
func catalogLoadedMsg(table models.CatalogTable, err error) Msg {
	return Msg{kind: MsgCatalogLoaded, data: catalogLoaded{table, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *tasks.SyncResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{result, err}}
}
