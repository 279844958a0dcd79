package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/unavoidables/internal/matching"
	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/services"
	"github.com/desertthunder/unavoidables/internal/shared"
)

// DefaultSearchLimit is the number of candidates requested per search.
const DefaultSearchLimit = 5

// Resolution is the outcome of resolving one record.
type Resolution struct {
	Identifier  string                    // empty when unresolved
	Resolved    bool                      // a candidate was accepted
	Query       string                    // the last query issued
	Fallback    bool                      // the title-only query was used
	Searches    int                       // number of searches issued
	Candidates  []models.CatalogCandidate // candidates that were ranked
	Evaluations []matching.Evaluation     // scores for every ranked candidate, see [Resolver.Explain]
}

// RecordResolver resolves a single record.
type RecordResolver interface {
	Resolve(ctx context.Context, record models.ScrapedRecord) (*Resolution, error)
}

// ResolverOpts configures a [Resolver].
type ResolverOpts struct {
	Limit             int
	RequestsPerSecond float64
	Logger            *log.Logger
}

// Resolver turns a scraped record into a catalog identifier using a [services.Searcher] and a [matching.Ranker].
type Resolver struct {
	searcher services.Searcher
	ranker   *matching.Ranker
	limiter  *rate.Limiter
	limit    int
	logger   *log.Logger
}

// NewResolver creates a resolver. Searches are throttled to opts.RequestsPerSecond; zero disables throttling.
func NewResolver(searcher services.Searcher, ranker *matching.Ranker, opts ResolverOpts) *Resolver {
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	if ranker == nil {
		ranker = matching.NewRanker(0, 0, opts.Logger)
	}

	return &Resolver{
		searcher: searcher,
		ranker:   ranker,
		limiter:  rate.NewLimiter(limit, 1),
		limit:    opts.Limit,
		logger:   opts.Logger,
	}
}

// Resolve searches for record and ranks the results.
//
// Zero results for both queries is an unresolved [Resolution], not an error.
// Errors wrap [shared.ErrMalformedRecord] or [shared.ErrTransport].
func (r *Resolver) Resolve(ctx context.Context, record models.ScrapedRecord) (*Resolution, error) {
	res, err := r.search(ctx, record)
	if err != nil {
		return res, err
	}

	if len(res.Candidates) == 0 {
		r.logf(log.InfoLevel, "no candidates", record, "query", res.Query)
		return res, nil
	}

	if id, ok := r.ranker.Rank(record, res.Candidates); ok {
		res.Identifier, res.Resolved = id, true
		r.logf(log.InfoLevel, "resolved", record, "uri", id, "fallback", res.Fallback)
		return res, nil
	}

	r.logf(log.InfoLevel, "no acceptable candidate", record, "candidates", len(res.Candidates))
	return res, nil
}

// Explain resolves record and scores every candidate instead of stopping at the first accepted one.
//
// The decision is the same as [Resolver.Resolve]; Evaluations is filled for display.
func (r *Resolver) Explain(ctx context.Context, record models.ScrapedRecord) (*Resolution, error) {
	res, err := r.search(ctx, record)
	if err != nil {
		return res, err
	}

	for _, c := range res.Candidates {
		eval := r.ranker.Evaluate(record, c)
		res.Evaluations = append(res.Evaluations, eval)
		if eval.Accepted && !res.Resolved {
			res.Identifier, res.Resolved = c.Identifier, true
		}
	}
	return res, nil
}

// search runs the primary query and, when it finds nothing, the title-only fallback.
func (r *Resolver) search(ctx context.Context, record models.ScrapedRecord) (*Resolution, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if r.searcher == nil {
		return nil, fmt.Errorf("%w: no searcher configured", shared.ErrServiceUnavailable)
	}

	title := strings.TrimSpace(record.Title)
	res := &Resolution{Query: title + " " + record.PrimaryArtist()}

	candidates, err := r.query(ctx, res.Query)
	res.Searches++
	if err != nil {
		return res, err
	}

	if len(candidates) == 0 {
		r.logf(log.DebugLevel, "falling back to title-only search", record)
		res.Query, res.Fallback = title, true
		candidates, err = r.query(ctx, res.Query)
		res.Searches++
		if err != nil {
			return res, err
		}
	}

	res.Candidates = candidates
	return res, nil
}

func (r *Resolver) query(ctx context.Context, q string) ([]models.CatalogCandidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}

	result, err := r.searcher.SearchTracks(ctx, q, r.limit)
	if err != nil {
		if !errors.Is(err, shared.ErrTransport) {
			err = fmt.Errorf("%w: %v", shared.ErrTransport, err)
		}
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	candidates := make([]models.CatalogCandidate, 0, len(result.Items))
	for _, c := range result.Items {
		if err := c.Validate(); err != nil {
			r.logf(log.WarnLevel, "dropping malformed candidate", models.ScrapedRecord{Title: q}, "err", err)
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) > r.limit {
		candidates = candidates[:r.limit]
	}
	return candidates, nil
}

func (r *Resolver) logf(level log.Level, msg string, record models.ScrapedRecord, kv ...any) {
	if r.logger == nil {
		return
	}
	fields := append([]any{"week", record.Week, "title", record.Title, "artist", record.PrimaryArtist()}, kv...)
	r.logger.Log(level, msg, fields...)
}
