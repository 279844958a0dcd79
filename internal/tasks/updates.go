package tasks

import (
	"fmt"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadCatalog Phase = iota
	ResolveTracks
	SaveCatalog
	FetchPlaylist
	AddTracks
	UpdateDescription
)

func (p Phase) String() string {
	switch p {
	case LoadCatalog:
		return "load_catalog"
	case ResolveTracks:
		return "resolve_tracks"
	case SaveCatalog:
		return "save_catalog"
	case FetchPlaylist:
		return "fetch_playlist"
	case AddTracks:
		return "add_tracks"
	case UpdateDescription:
		return "update_description"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func loadCatalogUpdate(existing, scraped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCatalog,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d stored weeks, %d scraped", existing, scraped),
	}
}

func shortCircuitUpdate(existing int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    0,
		Total:   0,
		Message: fmt.Sprintf("No new data: all %d weeks already stored", existing),
	}
}

func resolveTrackUpdate(step, total int, rec *models.ScrapedRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s - %s", step, total, rec.Week, rec.PrimaryArtist(), rec.Title),
	}
}

func resolvedTrackUpdate(step, total int, rec models.ResolvedRecord) ProgressUpdate {
	mark := "✓"
	switch rec.Status {
	case models.StatusUnresolved:
		mark = "·"
	case models.StatusFailed:
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s %s", step, total, mark, rec.Week, rec.Title),
		Data:    rec,
	}
}

func saveCatalogUpdate(entries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveCatalog,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved catalog (%d weeks)", entries),
	}
}

func fetchPlaylistUpdate(pl *services.Playlist, present int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, present),
		Data:    pl,
	}
}

func addTracksUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding %d tracks...", step, total, count),
	}
}

func descriptionUpdate(description string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UpdateDescription,
		Step:    1,
		Total:   1,
		Message: "Updated description: " + description,
	}
}
