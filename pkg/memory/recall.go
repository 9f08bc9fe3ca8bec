package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/metrics"
	"github.com/papercomputeco/engram/pkg/similarity"
)

const (
	// DefaultMaxResults is the number of records returned by default.
	DefaultMaxResults = 3

	// DefaultMinSimilarity discards candidates scoring below it.
	DefaultMinSimilarity = 0.2

	// DuplicateThreshold is the bigram Jaccard score above which a candidate
	// counts as a near duplicate of an accepted record.
	DuplicateThreshold = 0.7

	// MaxResultsLimit bounds MaxResults. Larger requests are clamped.
	MaxResultsLimit = 100

	minCandidates = 10
)

// Options tune a single recall.
type Options struct {
	// MaxResults caps the number of records. Values <= 0 use
	// DefaultMaxResults and values above MaxResultsLimit are clamped.
	MaxResults int

	// MinSimilarity is the lowest embedding similarity accepted.
	MinSimilarity float64
}

// DefaultOptions returns MaxResults 3 and MinSimilarity 0.2.
func DefaultOptions() Options {
	return Options{
		MaxResults:    DefaultMaxResults,
		MinSimilarity: DefaultMinSimilarity,
	}
}

// RecallConfig configures a Recaller.
type RecallConfig struct {
	Backend Backend
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Recaller finds stored chunks relevant to a query.
type Recaller struct {
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRecaller creates a Recaller.
func NewRecaller(c RecallConfig) (*Recaller, error) {
	if err := c.Backend.validate(); err != nil {
		return nil, err
	}
	return &Recaller{
		backend: c.Backend,
		logger:  logger.OrNop(c.Logger),
		metrics: c.Metrics,
	}, nil
}

// Recall returns up to opts.MaxResults records ordered by descending score.
// A blank query, an empty store or any backend failure yields no records;
// failures are logged rather than returned.
func (r *Recaller) Recall(ctx context.Context, query string, opts Options) []Record {
	if strings.TrimSpace(query) == "" {
		return []Record{}
	}

	records, drops, err := r.search(ctx, query, opts)
	if err != nil {
		r.metrics.IncRecallFailure()
		r.logger.Warn("memory recall failed", "error", err)
		return []Record{}
	}

	r.metrics.ObserveRecall(len(records), drops)
	r.logger.Debug("memory recalled",
		"results", len(records),
		"dedup_drops", drops,
	)
	return records
}

// QueryResponses recalls up to n records with the default minimum
// similarity.
func (r *Recaller) QueryResponses(ctx context.Context, query string, n int) []Record {
	opts := DefaultOptions()
	opts.MaxResults = n
	return r.Recall(ctx, query, opts)
}

func (r *Recaller) search(ctx context.Context, query string, opts Options) ([]Record, int, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	opts.MaxResults = min(opts.MaxResults, MaxResultsLimit)

	emb, err := r.backend.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: embedding query: %w", ErrQuery, err)
	}

	candidates, err := r.backend.Driver.Query(ctx, emb, max(minCandidates, opts.MaxResults*3))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	size := min(opts.MaxResults, len(candidates))
	records := make([]Record, 0, size)
	// raw chunk texts of accepted records, parallel to records
	accepted := make([]string, 0, size)
	drops := 0

	for _, c := range candidates {
		score := float64(1 - c.Distance)
		if score < opts.MinSimilarity {
			continue
		}
		score = min(score, 1)

		if isNearDuplicate(c.Content, accepted) {
			drops++
			continue
		}

		meta := ParseChunkMetadata(c.Metadata)
		records = append(records, Record{
			FormattedContent: FormatRecord(meta.Speaker, meta.Timestamp, c.Content),
			Metadata:         meta,
			Score:            score,
		})
		accepted = append(accepted, c.Content)

		if len(records) >= opts.MaxResults {
			break
		}
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	return records, drops, nil
}

func isNearDuplicate(text string, accepted []string) bool {
	for _, a := range accepted {
		if similarity.NgramSimilarity(text, a, similarity.DefaultN) > DuplicateThreshold {
			return true
		}
	}
	return false
}
