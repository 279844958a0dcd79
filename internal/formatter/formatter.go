// package formatter exports the catalog table to CSV, Markdown, plain text and JSON, and renders terminal tables
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// CSVHeaders are the columns of the flat catalog export.
var CSVHeaders = []string{"title", "artists", "week", "time_wide", "time_narrow", "identifier", "status"}

// artistSeparator joins artists in single-cell exports.
const artistSeparator = "; "

// ExportToCSV converts a CatalogTable to CSV with one row per week, most recent first.
func ExportToCSV(table models.CatalogTable) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range table {
		record := []string{
			entry.Title,
			strings.Join(entry.Artists, artistSeparator),
			entry.Week,
			entry.TimeWide,
			entry.TimeNarrow,
			entry.Identifier,
			string(entry.Status),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a CatalogTable to a Markdown document with a summary and numbered list.
func ExportToMarkdown(table models.CatalogTable, title string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	counts := table.Counts()
	buf.WriteString(fmt.Sprintf("**Weeks**: %d\n", len(table)))
	buf.WriteString(fmt.Sprintf("**Resolved**: %d\n", counts[models.StatusResolved]))
	buf.WriteString(fmt.Sprintf("**Unresolved**: %d\n", counts[models.StatusUnresolved]))
	if counts[models.StatusFailed] > 0 {
		buf.WriteString(fmt.Sprintf("**Failed**: %d\n", counts[models.StatusFailed]))
	}
	if week := table.MostRecentWeek(); week != "" {
		buf.WriteString(fmt.Sprintf("**Most recent week**: %s\n", week))
	}

	buf.WriteString("\n## Tracks\n\n")
	for i, entry := range table {
		link := ""
		if entry.HasIdentifier() {
			link = fmt.Sprintf(" (`%s`)", entry.Identifier)
		}
		buf.WriteString(fmt.Sprintf("%d. **%s** %s - %s%s\n", i+1, entry.Week, artistLine(entry), entry.Title, link))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a CatalogTable to plain text
func ExportToText(table models.CatalogTable) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Weeks: %d\n\n", len(table)))
	for _, entry := range table {
		marker := " "
		if !entry.HasIdentifier() {
			marker = "?"
		}
		buf.WriteString(fmt.Sprintf("%s %s  %s - %s\n", marker, entry.Week, artistLine(entry), entry.Title))
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a CatalogTable to indented JSON.
func ExportToJSON(table models.CatalogTable) ([]byte, error) {
	return shared.MarshalJSON(table, true)
}

// Export renders table in the named format.
func Export(table models.CatalogTable, format, title string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportToCSV(table)
	case FormatMarkdown, "md":
		return ExportToMarkdown(table, title)
	case FormatText, "text":
		return ExportToText(table)
	case FormatJSON:
		return ExportToJSON(table)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteCSVExport writes the flat CSV copy of table to path, creating parent directories.
func WriteCSVExport(table models.CatalogTable, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: CSV export path", shared.ErrMissingArgument)
	}
	return writeExport(table, FormatCSV, "", path)
}

// WriteExport writes table in format to path.
func WriteExport(table models.CatalogTable, format, title, path string) (string, error) {
	if path == "" {
		path = "catalog." + extension(format)
	}
	return writeExport(table, format, title, path)
}

func writeExport(table models.CatalogTable, format, title, path string) (string, error) {
	data, err := Export(table, format, title)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s export: %w", format, err)
	}

	return path, nil
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return "md"
	case FormatText, "text":
		return "txt"
	default:
		return strings.ToLower(format)
	}
}

func artistLine(entry models.ResolvedRecord) string {
	if len(entry.Artists) == 0 {
		return "(unknown artist)"
	}
	return strings.Join(entry.Artists, ", ")
}
