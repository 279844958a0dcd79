package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/unavoidables/internal/models"
)

var _ list.Item = entryItem{}

// entryItem wraps [models.ResolvedRecord] to implement [list.Item].
type entryItem struct {
	entry models.ResolvedRecord
}

func (i entryItem) FilterValue() string {
	return i.entry.Title + " " + strings.Join(i.entry.Artists, " ") + " " + i.entry.Week
}

func (i entryItem) Title() string {
	return fmt.Sprintf("%s  %s", i.entry.Week, i.entry.Title)
}

func (i entryItem) Description() string {
	artists := strings.Join(i.entry.Artists, ", ")
	if artists == "" {
		artists = "(unknown artist)"
	}
	return fmt.Sprintf("%s • %s", artists, i.entry.Status)
}

// entryItems converts table to list items, keeping only unresolved entries when asked.
func entryItems(table models.CatalogTable, unresolvedOnly bool) []list.Item {
	items := make([]list.Item, 0, len(table))
	for _, e := range table {
		if unresolvedOnly && e.HasIdentifier() {
			continue
		}
		items = append(items, entryItem{entry: e})
	}
	return items
}
