package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/archetype"
	"github.com/atlas-esg/esia-review/internal/consolidate"
	"github.com/atlas-esg/esia-review/internal/convert"
	"github.com/atlas-esg/esia-review/internal/extract"
	"github.com/atlas-esg/esia-review/internal/llm"
	"github.com/atlas-esg/esia-review/internal/pipeline"
	"github.com/atlas-esg/esia-review/internal/store"
)

// pipelineEnv holds the initialized store, clients and pipeline needed by
// the run/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Registry *archetype.Registry
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured job database.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initRegistry loads the fact taxonomy, honoring the optional project-type
// extension configured for this run.
func initRegistry() (*archetype.Registry, error) {
	registry, err := archetype.Load(cfg.Archetype.CorePath, cfg.Archetype.ExtensionPath)
	if err != nil {
		return nil, eris.Wrap(err, "load archetype")
	}
	return registry, nil
}

// initPipeline sets up the store, LLM client, taxonomy, and pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	registry, err := initRegistry()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	converter, err := convert.New(cfg.Convert)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client, err := llm.New(cfg.LLM)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	consolidator, err := consolidate.New(cfg.Consolidate, registry)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	extractor := extract.New(client, registry, cfg.Extract, cfg.LLM)

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("chapters", len(registry.Chapters())),
	)

	p := pipeline.New(cfg, st, converter, extractor, consolidator)

	return &pipelineEnv{
		Store:    st,
		Registry: registry,
		Pipeline: p,
	}, nil
}
