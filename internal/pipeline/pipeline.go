// Package pipeline orchestrates the lookup request: query analysis,
// parallel fan-out to the three retrieval adapters (each under its own
// timeout), and result fusion.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fixmate/kbsearch/internal/fusion"
	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/query"
	"github.com/fixmate/kbsearch/internal/retrieve"
)

// DefaultAdapterTimeout is the per-adapter ceiling for one request.
const DefaultAdapterTimeout = 10 * time.Second

// Retriever is one retrieval adapter as the pipeline sees it.
type Retriever interface {
	Source() retrieve.Source
	Retrieve(ctx context.Context, qc query.Context) ([]retrieve.CandidateDocument, error)
}

// Request is one lookup request.
type Request struct {
	// Query is the free-text query.
	Query string
	// Urgent marks the request urgent (caller-supplied, drives the
	// urgent intent).
	Urgent bool
	// CategoryHint optionally narrows retrieval to one category.
	CategoryHint string
	// MaxResults caps the final ranking (default 10).
	MaxResults int
}

// Response is the fused ranking plus degradation signals.
type Response struct {
	// Results is the final ranked, deduplicated candidate list.
	Results []retrieve.CandidateDocument
	// Context is the analysis the ranking was computed under.
	Context query.Context
	// Degraded is true when at least one source contributed nothing
	// due to failure; with zero successful adapters the ranked list is
	// empty and Degraded is still the only signal, never a hard error.
	Degraded bool
	// SourceErrors maps failed sources to their error strings.
	SourceErrors map[retrieve.Source]string
	// Elapsed is the total request duration.
	Elapsed time.Duration
}

// Pipeline wires the analyzer, the three adapters, and the fusion
// engine. Safe for concurrent use; per-request state is request-owned.
type Pipeline struct {
	analyzer       *query.Analyzer
	retrievers     []Retriever
	fuser          *fusion.Engine
	adapterTimeout time.Duration
	logger         *slog.Logger
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithAdapterTimeout sets the per-adapter ceiling.
func WithAdapterTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.adapterTimeout = d
		}
	}
}

// New creates a pipeline over the given adapters. Any adapter may be
// nil; the pipeline simply runs with fewer sources.
func New(analyzer *query.Analyzer, fuser *fusion.Engine, retrievers []Retriever, opts ...Option) *Pipeline {
	p := &Pipeline{
		analyzer:       analyzer,
		fuser:          fuser,
		adapterTimeout: DefaultAdapterTimeout,
		logger:         slog.Default().With("component", "pipeline"),
	}
	for _, r := range retrievers {
		if r != nil {
			p.retrievers = append(p.retrievers, r)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lookup runs one request end to end. Adapter failures degrade the
// response instead of failing it; only validation and internal errors
// are returned. Caller cancellation aborts promptly: no candidate list
// is scored after the parent context is done.
func (p *Pipeline) Lookup(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if req.MaxResults == 0 {
		req.MaxResults = fusion.DefaultMaxResults
	}
	if req.MaxResults < 1 {
		return nil, kberrors.New(kberrors.ErrCodeInvalidLimit, "max results must be >= 1", nil)
	}

	qc := p.analyzer.Analyze(req.Query, query.Options{
		Urgent:       req.Urgent,
		CategoryHint: req.CategoryHint,
	})

	bySource, sourceErrs, err := p.fanOut(ctx, qc)
	if err != nil {
		return nil, err
	}

	// The join happened; refuse to score if the caller has given up.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	results, err := p.fuser.Fuse(qc,
		bySource[retrieve.SourceVector],
		bySource[retrieve.SourceWeb],
		bySource[retrieve.SourceStructured],
		req.MaxResults)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Results:      results,
		Context:      qc,
		Degraded:     len(sourceErrs) > 0,
		SourceErrors: sourceErrs,
		Elapsed:      time.Since(start),
	}

	p.logger.Debug("lookup complete",
		slog.String("query", req.Query),
		slog.String("intent", string(qc.PrimaryIntent())),
		slog.Int("results", len(results)),
		slog.Bool("degraded", resp.Degraded),
		slog.Duration("elapsed", resp.Elapsed))

	return resp, nil
}

// fanOut runs every adapter in parallel, each under its own timeout.
// An adapter that times out contributes whatever it collected before
// its ceiling; it never blocks the join beyond the adapter timeout.
func (p *Pipeline) fanOut(ctx context.Context, qc query.Context) (map[retrieve.Source][]retrieve.CandidateDocument, map[retrieve.Source]string, error) {
	type branch struct {
		source retrieve.Source
		docs   []retrieve.CandidateDocument
		err    error
	}

	branches := make([]branch, len(p.retrievers))
	g, gctx := errgroup.WithContext(ctx)

	for i, r := range p.retrievers {
		g.Go(func() error {
			branchCtx, cancel := context.WithTimeout(gctx, p.adapterTimeout)
			defer cancel()

			docs, err := r.Retrieve(branchCtx, qc)
			branches[i] = branch{source: r.Source(), docs: docs, err: err}
			// Adapter errors degrade, never abort the group.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	bySource := make(map[retrieve.Source][]retrieve.CandidateDocument, len(branches))
	sourceErrs := make(map[retrieve.Source]string)
	for _, b := range branches {
		if b.source == "" {
			continue
		}
		bySource[b.source] = b.docs
		if b.err != nil {
			sourceErrs[b.source] = b.err.Error()
			p.logger.Warn("adapter degraded",
				slog.String("source", string(b.source)),
				slog.String("category", string(kberrors.GetCategory(b.err))),
				slog.String("error", b.err.Error()))
		}
	}
	return bySource, sourceErrs, nil
}
