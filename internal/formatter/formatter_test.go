package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/shared"
	th "github.com/desertthunder/unavoidables/internal/testing"
)

func sampleTable() models.CatalogTable {
	return models.CatalogTable{
		{
			ScrapedRecord: models.ScrapedRecord{
				Title:      "Espresso",
				Artists:    []string{"Sabrina Carpenter"},
				Week:       "2024 10",
				TimeWide:   "10 uger",
				TimeNarrow: "10u",
			},
			Identifier: "spotify:track:1",
			Status:     models.StatusResolved,
		},
		{
			ScrapedRecord: models.ScrapedRecord{
				Title:   "Ukendt, sang",
				Artists: []string{"Nogen", "Andre"},
				Week:    "2024 09",
			},
			Status: models.StatusUnresolved,
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleTable())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("CSV output did not parse: %v", err)
		}

		if len(rows) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d", len(rows))
		}
		if strings.Join(rows[0], ",") != "title,artists,week,time_wide,time_narrow,identifier,status" {
			t.Errorf("CSV has wrong headers: %v", rows[0])
		}
		if rows[1][0] != "Espresso" || rows[1][5] != "spotify:track:1" || rows[1][6] != "resolved" {
			t.Errorf("unexpected first row: %v", rows[1])
		}
		if rows[2][0] != "Ukendt, sang" {
			t.Errorf("expected quoted title to survive, got %q", rows[2][0])
		}
		if rows[2][1] != "Nogen; Andre" {
			t.Errorf("expected joined artists, got %q", rows[2][1])
		}
		if rows[2][5] != "" || rows[2][6] != "unresolved" {
			t.Errorf("expected empty identifier for unresolved row, got %v", rows[2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleTable(), "Ugens Uundgåelige")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		expected := []string{
			"# Ugens Uundgåelige",
			"**Weeks**: 2",
			"**Resolved**: 1",
			"**Unresolved**: 1",
			"**Most recent week**: 2024 10",
			"## Tracks",
			"1. **2024 10** Sabrina Carpenter - Espresso (`spotify:track:1`)",
			"2. **2024 09** Nogen, Andre - Ukendt, sang\n",
		}
		for _, want := range expected {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "**Failed**") {
			t.Errorf("Markdown should omit failed count when zero")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleTable())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Weeks: 2") {
			t.Errorf("Text missing week count")
		}
		if !strings.Contains(output, "  2024 10  Sabrina Carpenter - Espresso") {
			t.Errorf("Text missing resolved entry, got:\n%s", output)
		}
		if !strings.Contains(output, "? 2024 09  Nogen, Andre - Ukendt, sang") {
			t.Errorf("Text missing unresolved marker, got:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleTable())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("JSON output did not parse: %v", err)
		}
		if len(decoded) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(decoded))
		}
		if decoded[0]["identifier"] != "spotify:track:1" {
			t.Errorf("unexpected identifier: %v", decoded[0]["identifier"])
		}
		if _, ok := decoded[1]["identifier"]; ok {
			t.Errorf("expected identifier omitted for unresolved entry")
		}
	})

	t.Run("Export unknown format", func(t *testing.T) {
		_, err := Export(sampleTable(), "xml", "")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Export format aliases", func(t *testing.T) {
		for _, format := range []string{"csv", "CSV", "markdown", "md", "txt", "text", "json"} {
			if _, err := Export(sampleTable(), format, "Title"); err != nil {
				t.Errorf("format %q failed: %v", format, err)
			}
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "catalog.csv")

		written, err := WriteCSVExport(sampleTable(), path)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}

		th.AssertFileExists(t, path)
		if !strings.HasPrefix(th.MustReadFile(t, path), "title,artists,week") {
			t.Errorf("CSV file missing headers")
		}
	})

	t.Run("WriteCSVExport requires path", func(t *testing.T) {
		_, err := WriteCSVExport(sampleTable(), "")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("WriteExport markdown", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.md")

		if _, err := WriteExport(sampleTable(), FormatMarkdown, "Catalog", path); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if !strings.Contains(th.MustReadFile(t, path), "# Catalog") {
			t.Errorf("Markdown file missing title")
		}
	})

	t.Run("extension", func(t *testing.T) {
		tests := map[string]string{"markdown": "md", "md": "md", "txt": "txt", "text": "txt", "CSV": "csv", "json": "json"}
		for format, want := range tests {
			if got := extension(format); got != want {
				t.Errorf("extension(%q) = %q, want %q", format, got, want)
			}
		}
	})
}

func TestRenderTable(t *testing.T) {
	t.Run("empty headers", func(t *testing.T) {
		if got := RenderTable(nil, nil, nil); got != "" {
			t.Errorf("expected empty output, got %q", got)
		}
	})

	t.Run("pads short rows", func(t *testing.T) {
		out := RenderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
		if !strings.Contains(out, "only") {
			t.Errorf("expected row content, got:\n%s", out)
		}
	})

	t.Run("CatalogRows", func(t *testing.T) {
		out := CatalogRows(sampleTable())
		for _, want := range []string{"WEEK", "Espresso", "Nogen, Andre", "unresolved"} {
			if !strings.Contains(out, want) {
				t.Errorf("catalog table missing %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("RunRows", func(t *testing.T) {
		started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		finished := started.Add(75 * time.Second)
		runs := []*models.Run{
			{StartedAt: started, FinishedAt: &finished, Scraped: 30, Added: 2, Resolved: 1, Unresolved: 1},
			{StartedAt: started, ShortCircuited: true},
		}

		out := RunRows(runs)
		for _, want := range []string{"1m15s", "1/1/0", "running", "yes"} {
			if !strings.Contains(out, want) {
				t.Errorf("run table missing %q, got:\n%s", want, out)
			}
		}
	})
}
