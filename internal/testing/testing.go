// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/services"
	"github.com/desertthunder/unavoidables/internal/shared"
)

// MockSearcher is a test double for [services.Searcher].
//
// Results are keyed by query; unknown queries return zero results.
type MockSearcher struct {
	mu      sync.Mutex
	Results map[string][]models.CatalogCandidate
	Errors  map[string]error
	Queries []string
}

// NewMockSearcher creates an empty searcher.
func NewMockSearcher() *MockSearcher {
	return &MockSearcher{
		Results: make(map[string][]models.CatalogCandidate),
		Errors:  make(map[string]error),
	}
}

// On registers candidates for query and returns the searcher for chaining.
func (m *MockSearcher) On(query string, candidates ...models.CatalogCandidate) *MockSearcher {
	m.Results[query] = candidates
	return m
}

// Fail makes query return err, wrapped with [shared.ErrTransport].
func (m *MockSearcher) Fail(query string, err error) *MockSearcher {
	m.Errors[query] = fmt.Errorf("%w: %v", shared.ErrTransport, err)
	return m
}

func (m *MockSearcher) SearchTracks(ctx context.Context, query string, limit int) (*services.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)

	if err, ok := m.Errors[query]; ok {
		return nil, err
	}

	items := m.Results[query]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return &services.SearchResult{TotalCount: len(m.Results[query]), Items: items}, nil
}

// Calls returns the number of searches issued.
func (m *MockSearcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// AddCall records one [services.PlaylistService.AddItems] call.
type AddCall struct {
	PlaylistID  string
	Identifiers []string
	Position    *int
}

// MockPlaylistService is a test double for [services.PlaylistService].
type MockPlaylistService struct {
	Playlists    []services.Playlist
	Items        map[string][]string
	Adds         []AddCall
	Descriptions map[string]string

	FindErr        error
	ItemsErr       error
	AddErr         error
	DescriptionErr error
}

// NewMockPlaylistService creates a service holding one playlist with the given items.
func NewMockPlaylistService(id, name string, items ...string) *MockPlaylistService {
	return &MockPlaylistService{
		Playlists:    []services.Playlist{{ID: id, Name: name, TrackCount: len(items)}},
		Items:        map[string][]string{id: items},
		Descriptions: make(map[string]string),
	}
}

func (m *MockPlaylistService) FindPlaylist(ctx context.Context, name string) (*services.Playlist, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for i := range m.Playlists {
		if m.Playlists[i].Name == name {
			return &m.Playlists[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
}

func (m *MockPlaylistService) PlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	if m.ItemsErr != nil {
		return nil, m.ItemsErr
	}
	return append([]string(nil), m.Items[playlistID]...), nil
}

// AddItems records the call and inserts the identifiers like the real API would.
func (m *MockPlaylistService) AddItems(ctx context.Context, playlistID string, identifiers []string, position *int) error {
	if m.AddErr != nil {
		return m.AddErr
	}

	call := AddCall{PlaylistID: playlistID, Identifiers: append([]string(nil), identifiers...)}
	if position != nil {
		p := *position
		call.Position = &p
	}
	m.Adds = append(m.Adds, call)

	items := m.Items[playlistID]
	at := len(items)
	if position != nil && *position < at {
		at = *position
	}
	next := make([]string, 0, len(items)+len(identifiers))
	next = append(next, items[:at]...)
	next = append(next, identifiers...)
	next = append(next, items[at:]...)
	m.Items[playlistID] = next
	return nil
}

func (m *MockPlaylistService) UpdateDescription(ctx context.Context, playlistID, description string) error {
	if m.DescriptionErr != nil {
		return m.DescriptionErr
	}
	m.Descriptions[playlistID] = description
	return nil
}

// MemoryStore is an in-memory catalog store.
type MemoryStore struct {
	Table   models.CatalogTable
	Saves   int
	LoadErr error
	SaveErr error
}

func (s *MemoryStore) Load(ctx context.Context) (models.CatalogTable, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return append(models.CatalogTable(nil), s.Table...), nil
}

func (s *MemoryStore) Save(ctx context.Context, table models.CatalogTable) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Saves++
	s.Table = append(models.CatalogTable(nil), table...)
	return nil
}

// Candidate builds a [models.CatalogCandidate].
func Candidate(id, title string, artists ...string) models.CatalogCandidate {
	return models.CatalogCandidate{Title: title, Artists: artists, Identifier: id}
}

// Record builds a [models.ScrapedRecord].
func Record(week, title string, artists ...string) models.ScrapedRecord {
	return models.ScrapedRecord{Title: title, Artists: artists, Week: week}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
