package matching

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/shared"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "identical", a: "Yesterday", b: "Yesterday", want: 100},
		{name: "case insensitive", a: "YESTERDAY", b: "yesterday", want: 100},
		{name: "substring", a: "Yesterday - Remastered 2009", b: "Yesterday", want: 100},
		{name: "article prefix", a: "The Beatles", b: "Beatles", want: 100},
		{name: "featuring suffix", a: "Medina", b: "Medina feat. Joey Moe", want: 100},
		{name: "unrelated", a: "abc", b: "xyz", want: 0},
		{name: "empty left", a: "", b: "Yesterday", want: 0},
		{name: "empty right", a: "Yesterday", b: "", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.a, tt.b); got != tt.want {
				t.Errorf("Score(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}

	t.Run("self score is 100", func(t *testing.T) {
		for _, s := range []string{"a", "80'eren", "Ælle Bælle", "Dance Monkey (Remix)", "x y z"} {
			if got := Score(s, s); got != 100 {
				t.Errorf("Score(%q, %q) = %d, want 100", s, s, got)
			}
		}
	})

	t.Run("range", func(t *testing.T) {
		pairs := [][2]string{{"Bikstok", "Bikstok Røgsystem"}, {"Hello", "Help"}, {"Nik & Jay", "Nik og Jay"}}
		for _, p := range pairs {
			got := Score(p[0], p[1])
			if got < 0 || got > 100 {
				t.Errorf("Score(%q, %q) = %d out of range", p[0], p[1], got)
			}
		}
	})

	t.Run("partial beats unrelated", func(t *testing.T) {
		close := Score("Hello", "Help")
		far := Score("Hello", "Qwxz")
		if close <= far {
			t.Errorf("expected %d > %d", close, far)
		}
	})
}

// stubScore returns fixed scores keyed by the first argument.
func stubScore(scores map[string]int) Scorer {
	return func(a, b string) int {
		return scores[a]
	}
}

func TestRanker(t *testing.T) {
	record := models.ScrapedRecord{Title: "Song", Artists: []string{"Artist"}, Week: "19 07"}

	t.Run("exact match", func(t *testing.T) {
		ranker := NewRanker(0, 0, nil)
		beatles := models.ScrapedRecord{Title: "Yesterday", Artists: []string{"The Beatles"}}
		got, ok := ranker.Rank(beatles, []models.CatalogCandidate{
			{Title: "Yesterday", Artists: []string{"The Beatles"}, Identifier: "X"},
		})
		if !ok || got != "X" {
			t.Errorf("Rank() = %q, %v; want X, true", got, ok)
		}
	})

	t.Run("thresholds", func(t *testing.T) {
		tests := []struct {
			name   string
			title  int
			artist int
			want   bool
		}{
			{name: "sum 165 rejected", title: 70, artist: 95, want: false},
			{name: "sum 176 accepted", title: 80, artist: 96, want: true},
			{name: "both above 90", title: 91, artist: 91, want: true},
			{name: "both exactly 90", title: 90, artist: 90, want: false},
			{name: "sum exactly 175", title: 80, artist: 95, want: false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ranker := NewRanker(90, 175, nil)
				ranker.Score = stubScore(map[string]int{"title": tt.title, "artist": tt.artist})

				_, ok := ranker.Rank(record, []models.CatalogCandidate{
					{Title: "title", Artists: []string{"artist"}, Identifier: "id"},
				})
				if ok != tt.want {
					t.Errorf("Rank() accepted = %v, want %v", ok, tt.want)
				}
			})
		}
	})

	t.Run("artist score is max over candidate artists", func(t *testing.T) {
		ranker := NewRanker(90, 175, nil)
		ranker.Score = stubScore(map[string]int{"title": 95, "low": 10, "high": 96})

		eval := ranker.Evaluate(record, models.CatalogCandidate{Title: "title", Artists: []string{"low", "high"}, Identifier: "id"})
		if eval.ArtistScore != 96 || !eval.Accepted {
			t.Errorf("Evaluate() = %+v", eval)
		}
	})

	t.Run("candidate without artists scores 0", func(t *testing.T) {
		ranker := NewRanker(90, 175, nil)
		ranker.Score = stubScore(map[string]int{"title": 100})

		eval := ranker.Evaluate(record, models.CatalogCandidate{Title: "title", Identifier: "id"})
		if eval.ArtistScore != 0 || eval.Accepted {
			t.Errorf("Evaluate() = %+v", eval)
		}
	})

	t.Run("first qualifying candidate wins", func(t *testing.T) {
		ranker := NewRanker(90, 175, nil)
		got, ok := ranker.Rank(record, []models.CatalogCandidate{
			{Title: "Song", Artists: []string{"Artist"}, Identifier: "first"},
			{Title: "Song", Artists: []string{"Artist"}, Identifier: "second"},
		})
		if !ok || got != "first" {
			t.Errorf("Rank() = %q, %v; want first", got, ok)
		}
	})

	t.Run("stops scoring after acceptance", func(t *testing.T) {
		calls := 0
		ranker := NewRanker(90, 175, nil)
		ranker.Score = func(a, b string) int {
			calls++
			return 100
		}
		ranker.Rank(record, []models.CatalogCandidate{
			{Title: "a", Artists: []string{"a"}, Identifier: "1"},
			{Title: "b", Artists: []string{"b"}, Identifier: "2"},
		})
		if calls != 2 {
			t.Errorf("expected 2 score calls, got %d", calls)
		}
	})

	t.Run("skips rejected candidates", func(t *testing.T) {
		ranker := NewRanker(90, 175, nil)
		got, ok := ranker.Rank(record, []models.CatalogCandidate{
			{Title: "Completely Different", Artists: []string{"Nobody"}, Identifier: "wrong"},
			{Title: "Song (Radio Edit)", Artists: []string{"Artist", "Guest"}, Identifier: "right"},
		})
		if !ok || got != "right" {
			t.Errorf("Rank() = %q, %v; want right", got, ok)
		}
	})

	t.Run("empty candidate list", func(t *testing.T) {
		ranker := NewRanker(90, 175, nil)
		got, ok := ranker.Rank(record, nil)
		if ok || got != "" {
			t.Errorf("Rank() = %q, %v; want empty", got, ok)
		}
	})

	t.Run("logs decisions", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, log.DebugLevel)

		ranker := NewRanker(90, 175, logger)
		ranker.Rank(record, []models.CatalogCandidate{
			{Title: "Nope", Artists: []string{"Nobody"}, Identifier: "a"},
			{Title: "Song", Artists: []string{"Artist"}, Identifier: "b"},
		})

		out := buf.String()
		if !strings.Contains(out, "candidate rejected") || !strings.Contains(out, "candidate accepted") {
			t.Errorf("expected both decisions in log, got %q", out)
		}
		if !strings.Contains(out, "title_score") {
			t.Errorf("expected scores in log, got %q", out)
		}
	})
}
