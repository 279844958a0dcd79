package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CatalogView ViewState = iota
	DetailView
	ConfirmView
	SyncView
	ResultView
)

// Loader reads the stored catalog.
type Loader interface {
	Load(ctx context.Context) (models.CatalogTable, error)
}

// Syncer pushes the catalog to the playlist.
type Syncer interface {
	Sync(ctx context.Context, table models.CatalogTable, opts tasks.SyncOptions, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx            context.Context
	view           ViewState
	loader         Loader
	syncer         Syncer
	syncOpts       tasks.SyncOptions
	width          int
	height         int
	table          models.CatalogTable
	entries        list.Model
	unresolvedOnly bool
	selected       *models.ResolvedRecord
	progressChan   chan tasks.ProgressUpdate
	done           chan syncComplete
	progress       tasks.ProgressUpdate
	result         *tasks.SyncResult
	err            error
	help           help.Model
	keys           keyMap
}

// NewModel creates the browser. A nil syncer disables the sync key.
func NewModel(ctx context.Context, loader Loader, syncer Syncer, opts tasks.SyncOptions) *Model {
	entries := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	entries.Title = "Ugens Uundgåelige"
	entries.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		view:     CatalogView,
		loader:   loader,
		syncer:   syncer,
		syncOpts: opts,
		entries:  entries,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the catalog.
func (m *Model) Init() tea.Cmd {
	return m.loadCatalog()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.entries.SetSize(max(msg.Width-4, 0), max(msg.Height-6, 0))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case CatalogView:
			return m.handleCatalogKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	if m.view == CatalogView {
		m.entries, cmd = m.entries.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCatalogLoaded:
		data := msg.data.(catalogLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.table = data.table
		return m, m.refreshItems()

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.done = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to reload, q to quit", m.err))
	}

	switch m.view {
	case CatalogView:
		return m.renderCatalog()
	case DetailView:
		return m.renderDetail()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleCatalogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entries.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.entries, cmd = m.entries.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		return m, m.loadCatalog()
	case key.Matches(msg, m.keys.unresolved):
		m.unresolvedOnly = !m.unresolvedOnly
		return m, m.refreshItems()
	case key.Matches(msg, m.keys.sync):
		if m.syncer != nil {
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.entries.SelectedItem().(entryItem); ok {
			entry := item.entry
			m.selected = &entry
			m.view = DetailView
		}
		return m, nil
	}

	if m.err != nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = CatalogView
		m.selected = nil
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, m.startSync()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = CatalogView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.reload):
		m.view = CatalogView
		m.result = nil
		m.err = nil
		return m, m.loadCatalog()
	}
	return m, nil
}

func (m *Model) refreshItems() tea.Cmd {
	title := "Ugens Uundgåelige"
	if m.unresolvedOnly {
		title += " (unresolved)"
	}
	m.entries.Title = title
	return m.entries.SetItems(entryItems(m.table, m.unresolvedOnly))
}

func (m *Model) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		table, err := m.loader.Load(m.ctx)
		return catalogLoadedMsg(table, err)
	}
}

func (m *Model) startSync() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan syncComplete, 1)
	m.progressChan = progress
	m.done = done

	table, opts := m.table, m.syncOpts
	go func() {
		result, err := m.syncer.Sync(m.ctx, table, opts, progress)
		done <- syncComplete{result, err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return syncCompleteMsg(nil, fmt.Errorf("no sync running"))
		}
		update, ok := <-progress
		if !ok {
			outcome := <-done
			return syncCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderCatalog() string {
	counts := m.table.Counts()
	summary := styles.help.Render(fmt.Sprintf("%d weeks • %d resolved • %d unresolved • %d failed",
		len(m.table), counts[models.StatusResolved], counts[models.StatusUnresolved], counts[models.StatusFailed]))

	helpKeys := []key.Binding{m.keys.enter, m.keys.unresolved, m.keys.reload, m.keys.quit}
	if m.syncer != nil {
		helpKeys = append(helpKeys, m.keys.sync)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.entries.View(), summary, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}
	e := m.selected

	var b strings.Builder
	b.WriteString(styles.title.Render(e.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Week:       %s\n", e.Week)
	fmt.Fprintf(&b, "Artists:    %s\n", strings.Join(e.Artists, ", "))
	fmt.Fprintf(&b, "On chart:   %s (%s)\n", e.TimeWide, e.TimeNarrow)
	fmt.Fprintf(&b, "Status:     %s\n", styles.status(e.Status).Render(string(e.Status)))
	if e.HasIdentifier() {
		fmt.Fprintf(&b, "Identifier: %s\n", e.Identifier)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, "Error:      %s\n", e.Error)
	}
	if !e.ResolvedAt.IsZero() {
		fmt.Fprintf(&b, "Resolved:   %s\n", e.ResolvedAt.Local().Format("2006-01-02 15:04"))
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) renderConfirm() string {
	ids := len(m.table.Identifiers())
	title := styles.title.Render(fmt.Sprintf("Sync %d tracks to '%s'?", ids, m.syncOpts.PlaylistName))

	info := "Tracks already in the playlist are skipped."
	if m.syncOpts.DryRun {
		info += "\nDry run: nothing will be written."
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchPlaylist:
		phase = "Reading playlist..."
	case tasks.AddTracks:
		phase = fmt.Sprintf("Adding tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.UpdateDescription:
		phase = "Updating description..."
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	r := m.result
	verb := "Added"
	if r.DryRun {
		verb = "Would add"
	}

	var title string
	if len(r.Missing) == 0 {
		title = styles.ok.Render("✓ Playlist is up to date")
	} else {
		title = styles.ok.Render(fmt.Sprintf("✓ %s %d tracks", verb, len(r.Missing)))
	}

	name := m.syncOpts.PlaylistName
	if r.Playlist != nil {
		name = r.Playlist.Name
	}
	info := fmt.Sprintf("\nPlaylist: %s\nAlready present: %d\nBatches: %d", name, r.Present, r.Batches)
	if r.Appended {
		info += "\n" + styles.warn.Render("Small playlist: tracks were appended at the end")
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
