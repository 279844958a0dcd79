package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/services"
)

// DefaultDecade is the chart page fetched when none is configured.
const DefaultDecade = 2020

// Fetcher retrieves the raw chart page for a decade.
type Fetcher interface {
	Decade(ctx context.Context, year int) (*services.PageResponse, error)
}

// Scraper fetches, caches and parses the chart page.
type Scraper struct {
	fetcher   Fetcher
	decade    int
	cachePath string
	logger    *log.Logger
}

// New creates a Scraper. An empty cachePath disables the on-disk copy.
func New(fetcher Fetcher, decade int, cachePath string, logger *log.Logger) *Scraper {
	if decade == 0 {
		decade = DefaultDecade
	}
	return &Scraper{fetcher: fetcher, decade: decade, cachePath: cachePath, logger: logger}
}

// Fetch downloads the page and stores it at the cache path.
func (s *Scraper) Fetch(ctx context.Context) ([]byte, error) {
	page, err := s.fetcher.Decade(ctx, s.decade)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart page: %w", err)
	}

	if s.cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(s.cachePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		if err := os.WriteFile(s.cachePath, page.Body, 0644); err != nil {
			return nil, fmt.Errorf("failed to write page cache: %w", err)
		}
	}

	s.log().Debug("fetched chart page", "url", page.URL, "bytes", len(page.Body))
	return page.Body, nil
}

// Load returns the scraped records. With useCache set, a cached page is read instead of fetching;
// a missing cache falls through to a fetch.
func (s *Scraper) Load(ctx context.Context, useCache bool) ([]models.ScrapedRecord, error) {
	body, err := s.page(ctx, useCache)
	if err != nil {
		return nil, err
	}

	records, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	s.log().Info("scraped chart", "decade", s.decade, "records", len(records))
	return records, nil
}

func (s *Scraper) page(ctx context.Context, useCache bool) ([]byte, error) {
	if useCache && s.cachePath != "" {
		body, err := os.ReadFile(s.cachePath)
		switch {
		case err == nil:
			s.log().Debug("using cached chart page", "path", s.cachePath)
			return body, nil
		case errors.Is(err, fs.ErrNotExist):
			s.log().Warn("cached chart page not found, fetching", "path", s.cachePath)
		default:
			return nil, fmt.Errorf("failed to read page cache: %w", err)
		}
	}
	return s.Fetch(ctx)
}

func (s *Scraper) log() *log.Logger {
	if s.logger == nil {
		return log.Default()
	}
	return s.logger
}
