package matching

import (
	"github.com/charmbracelet/log"

	"github.com/desertthunder/unavoidables/internal/models"
)

const (
	DefaultMinScore = 90
	DefaultMinSum   = 175
)

// Evaluation is the scoring of one candidate against one record.
type Evaluation struct {
	Candidate   models.CatalogCandidate
	TitleScore  int
	ArtistScore int
	Accepted    bool
}

// Ranker picks the first acceptable candidate for a record.
//
// A candidate is accepted when both scores exceed MinScore or their sum exceeds MinSum.
type Ranker struct {
	Score    Scorer
	MinScore int
	MinSum   int
	logger   *log.Logger
}

// NewRanker creates a [Ranker] using [Score]. Non-positive thresholds fall back to the defaults.
func NewRanker(minScore, minSum int, logger *log.Logger) *Ranker {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if minSum <= 0 {
		minSum = DefaultMinSum
	}
	return &Ranker{Score: Score, MinScore: minScore, MinSum: minSum, logger: logger}
}

// Evaluate scores a single candidate. The artist score is the best score over the candidate's artists
// against the record's primary artist, 0 when the candidate has none.
func (r *Ranker) Evaluate(record models.ScrapedRecord, candidate models.CatalogCandidate) Evaluation {
	score := r.Score
	if score == nil {
		score = Score
	}

	primary := record.PrimaryArtist()
	artistScore := 0
	for _, artist := range candidate.Artists {
		artistScore = max(artistScore, score(artist, primary))
	}
	titleScore := score(candidate.Title, record.Title)

	return Evaluation{
		Candidate:   candidate,
		TitleScore:  titleScore,
		ArtistScore: artistScore,
		Accepted:    r.accepts(titleScore, artistScore),
	}
}

func (r *Ranker) accepts(title, artist int) bool {
	return (title > r.MinScore && artist > r.MinScore) || title+artist > r.MinSum
}

// Rank returns the identifier of the first accepted candidate. Later candidates are not scored.
//
// ok is false when nothing qualifies, including for an empty list.
func (r *Ranker) Rank(record models.ScrapedRecord, candidates []models.CatalogCandidate) (identifier string, ok bool) {
	for i, candidate := range candidates {
		eval := r.Evaluate(record, candidate)
		r.log(record, i, eval)
		if eval.Accepted {
			return candidate.Identifier, true
		}
	}
	return "", false
}

func (r *Ranker) log(record models.ScrapedRecord, i int, eval Evaluation) {
	if r.logger == nil {
		return
	}
	kv := []any{
		"week", record.Week,
		"title", record.Title,
		"candidate", i + 1,
		"candidate_title", eval.Candidate.Title,
		"title_score", eval.TitleScore,
		"artist_score", eval.ArtistScore,
	}
	if eval.Accepted {
		r.logger.Debug("candidate accepted", append(kv, "uri", eval.Candidate.Identifier)...)
		return
	}
	r.logger.Debug("candidate rejected", kv...)
}
