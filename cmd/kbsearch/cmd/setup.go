package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fixmate/kbsearch/internal/config"
	"github.com/fixmate/kbsearch/internal/fusion"
	"github.com/fixmate/kbsearch/internal/pipeline"
	"github.com/fixmate/kbsearch/internal/provider/records"
	"github.com/fixmate/kbsearch/internal/provider/vecstore"
	"github.com/fixmate/kbsearch/internal/provider/websearch"
	"github.com/fixmate/kbsearch/internal/query"
	"github.com/fixmate/kbsearch/internal/retrieve"
)

// buildPipeline wires the full lookup pipeline from configuration.
// The vector index is built in memory from the stored records; the
// returned cleanup releases the record database.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	store, err := records.Open(cfg.Records.DBPath)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = store.Close() }

	retrievers := []pipeline.Retriever{
		retrieve.NewStructuredRetriever(store, retrieve.StructuredRetrieverConfig{
			Collections:          cfg.Records.Collections,
			SearchableProperties: cfg.Records.SearchableProperties,
			RelationName:         cfg.Records.RelationName,
			RelationDepth:        cfg.Records.RelationDepth,
		}),
	}

	// Vector retrieval is optional: without a reachable embedder the
	// pipeline still serves web and structured results.
	if vs, err := buildVectorStore(ctx, cfg, store); err != nil {
		slog.Warn("vector search disabled", slog.String("error", err.Error()))
	} else {
		retrievers = append(retrievers, retrieve.NewVectorRetriever(vs, cfg.Vector.TopK))
	}

	webClient, err := websearch.New(websearch.Config{
		Endpoint: cfg.Web.Endpoint,
		APIKey:   cfg.Web.APIKey,
	})
	if err != nil {
		slog.Warn("web search disabled", slog.String("error", err.Error()))
	} else {
		retrievers = append(retrievers, retrieve.NewWebRetriever(webClient, retrieve.WebRetrieverConfig{
			MinRelevance:   cfg.Web.MinRelevance,
			MaxResults:     cfg.Web.MaxResults,
			TrustedDomains: cfg.Web.TrustedDomains,
			BlockedDomains: cfg.Web.BlockedDomains,
			SpamKeywords:   cfg.Web.SpamKeywords,
		}))
	}

	analyzer := query.NewAnalyzer(
		query.WithMaxVariants(cfg.Analyzer.MaxQueryVariants),
		query.WithCacheSize(cfg.Analyzer.CacheSize),
	)

	fuserOpts := []fusion.Option{
		fusion.WithDedupThreshold(cfg.Fusion.DedupSimilarityThreshold),
	}
	if len(cfg.Fusion.Weights) > 0 {
		overrides := make(map[query.Intent]fusion.Weights, len(cfg.Fusion.Weights))
		for tag, w := range cfg.Fusion.Weights {
			overrides[query.Intent(tag)] = fusion.Weights{
				Vector:     w.Vector,
				Web:        w.Web,
				Structured: w.Structured,
			}
		}
		fuserOpts = append(fuserOpts, fusion.WithWeights(overrides))
	}
	fuser := fusion.NewEngine(fuserOpts...)

	p := pipeline.New(analyzer, fuser, retrievers,
		pipeline.WithAdapterTimeout(cfg.Pipeline.AdapterTimeout))
	return p, cleanup, nil
}

// buildVectorStore embeds all stored records into an in-memory HNSW
// index.
func buildVectorStore(ctx context.Context, cfg *config.Config, store *records.Store) (*vecstore.Store, error) {
	embedder, err := vecstore.NewOpenAIEmbedder(
		cfg.Vector.EmbeddingHost, cfg.Vector.EmbeddingModel, "")
	if err != nil {
		return nil, err
	}

	vs, err := vecstore.New(embedder, vecstore.Config{Dimensions: cfg.Vector.Dimensions})
	if err != nil {
		return nil, err
	}

	var docs []vecstore.Document
	for _, collection := range cfg.Records.Collections {
		recs, err := store.List(ctx, collection)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			content := rec.Properties["content"]
			if content == "" {
				content = rec.Properties["description"]
			}
			docs = append(docs, vecstore.Document{
				ID:        rec.ID,
				Title:     rec.Properties["title"],
				Content:   content,
				Category:  rec.Properties["category"],
				URL:       rec.Properties["url"],
				OriginTag: "structured-origin",
			})
		}
	}

	if len(docs) > 0 {
		if err := vs.Add(ctx, docs); err != nil {
			return nil, fmt.Errorf("index records: %w", err)
		}
	}
	slog.Debug("vector index built", slog.Int("documents", vs.Count()))
	return vs, nil
}
