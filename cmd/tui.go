package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/unavoidables/internal/repositories"
	"github.com/desertthunder/unavoidables/internal/shared"
	"github.com/desertthunder/unavoidables/internal/tasks"
	"github.com/desertthunder/unavoidables/internal/ui"
)

// TUI launches the interactive catalog browser.
//
// Syncing from the browser is only offered when Spotify is authorized.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	dbPath, err := r.config.DatabasePath()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(filepath.Join(filepath.Dir(dbPath), "tui.log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.logger = fileLogger

	db, err := r.database()
	if err != nil {
		return err
	}

	var syncer ui.Syncer
	if playlists, err := r.playlistService(ctx); err != nil {
		r.logger.Warn("playlist sync disabled", "error", err)
	} else {
		syncer = tasks.NewPlaylistSync(playlists, r.logger)
		defer r.persistToken()
	}

	model := ui.NewModel(ctx, repositories.NewCatalogRepository(db), syncer, r.syncOptions(false))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
