package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/services"
	"github.com/desertthunder/unavoidables/internal/shared"
)

const (
	// SmallPlaylist is the size below which new tracks are appended instead of inserted at the configured position.
	SmallPlaylist    = 5
	defaultBatchSize = services.MaxAddBatch
)

// SyncOptions configures a playlist sync.
type SyncOptions struct {
	PlaylistName string
	Position     int
	BatchSize    int
	Description  string // prefix, the update timestamp is appended
	DryRun       bool
}

// SyncResult is the outcome of one playlist sync.
type SyncResult struct {
	Playlist    *services.Playlist
	Present     int      // tracks already in the playlist
	Missing     []string // identifiers that were (or in a dry run would be) added, in table order
	Batches     int
	Appended    bool // added at the end because the playlist was small
	Description string
	DryRun      bool
}

// PlaylistSync adds the table's identifiers to a playlist.
type PlaylistSync struct {
	playlists services.PlaylistService
	logger    *log.Logger
	now       func() time.Time
}

// NewPlaylistSync creates a sync against playlists.
func NewPlaylistSync(playlists services.PlaylistService, logger *log.Logger) *PlaylistSync {
	return &PlaylistSync{playlists: playlists, logger: logger, now: time.Now}
}

// Sync adds every identifier of table that the playlist does not contain yet.
//
// Identifiers keep table order (most recent first). When the playlist holds fewer than [SmallPlaylist]
// tracks they are appended; otherwise batch i is inserted at Position + i*BatchSize so the batches
// stay in table order.
func (s *PlaylistSync) Sync(ctx context.Context, table models.CatalogTable, opts SyncOptions, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if s.playlists == nil {
		return nil, fmt.Errorf("%w: playlist service not initialized", shared.ErrServiceUnavailable)
	}
	if opts.PlaylistName == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	if opts.BatchSize <= 0 || opts.BatchSize > services.MaxAddBatch {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Position < 0 {
		opts.Position = 0
	}

	playlist, err := s.playlists.FindPlaylist(ctx, opts.PlaylistName)
	if err != nil {
		return nil, err
	}

	present, err := s.playlists.PlaylistItems(ctx, playlist.ID)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, fetchPlaylistUpdate(playlist, len(present)))

	result := &SyncResult{
		Playlist: playlist,
		Present:  len(present),
		Missing:  MissingIdentifiers(table.Identifiers(), present),
		DryRun:   opts.DryRun,
		Appended: len(present) < SmallPlaylist,
	}
	result.Batches = (len(result.Missing) + opts.BatchSize - 1) / opts.BatchSize
	result.Description = s.description(opts.Description)

	if s.logger != nil {
		s.logger.Info("playlist sync", "playlist", playlist.Name, "present", len(present), "missing", len(result.Missing), "dry_run", opts.DryRun)
	}

	if opts.DryRun {
		return result, nil
	}

	for i := 0; i < result.Batches; i++ {
		start := i * opts.BatchSize
		end := min(start+opts.BatchSize, len(result.Missing))
		batch := result.Missing[start:end]

		var position *int
		if !result.Appended {
			p := opts.Position + start
			position = &p
		}

		sendProgress(progress, addTracksUpdate(i+1, result.Batches, len(batch)))
		if err := s.playlists.AddItems(ctx, playlist.ID, batch, position); err != nil {
			return result, fmt.Errorf("batch %d/%d: %w", i+1, result.Batches, err)
		}
	}

	if err := s.playlists.UpdateDescription(ctx, playlist.ID, result.Description); err != nil {
		return result, err
	}
	sendProgress(progress, descriptionUpdate(result.Description))

	return result, nil
}

func (s *PlaylistSync) description(prefix string) string {
	stamp := fmt.Sprintf("Sidste automatiske opdatering: %s.", s.now().Format("02-01-2006, 15:04:05"))
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return stamp
	}
	return prefix + " " + stamp
}

// MissingIdentifiers returns the identifiers not in present, keeping order and dropping repeats.
func MissingIdentifiers(identifiers, present []string) []string {
	seen := make(map[string]bool, len(present)+len(identifiers))
	for _, id := range present {
		seen[id] = true
	}

	missing := make([]string, 0)
	for _, id := range identifiers {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	return missing
}
