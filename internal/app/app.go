// Package app wires configuration, storage and the study services together
// for the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/studyloop/internal/conceptgraph"
	"github.com/abhisek/studyloop/internal/config"
	"github.com/abhisek/studyloop/internal/grading"
	"github.com/abhisek/studyloop/internal/graphmirror"
	"github.com/abhisek/studyloop/internal/llm"
	"github.com/abhisek/studyloop/internal/logger"
	"github.com/abhisek/studyloop/internal/mastery"
	"github.com/abhisek/studyloop/internal/pathcache"
	"github.com/abhisek/studyloop/internal/problemgen"
	"github.com/abhisek/studyloop/internal/store"
	"github.com/abhisek/studyloop/internal/tracing"
)

// App holds the wired services. Close releases everything New opened.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	Store   *store.Store
	Graph   *conceptgraph.Service
	Tracker *mastery.Tracker
	Exams   *grading.Service

	closers []func(context.Context) error
}

// New opens the database at dbPath and builds the services. Optional
// backends (Redis, Neo4j, the LLM provider, tracing) are attached only when
// configured.
func New(ctx context.Context, cfg *config.Config, dbPath string) (_ *App, err error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log}
	a.onClose(func(context.Context) error {
		_ = log.Sync()
		return nil
	})
	defer func() {
		if err != nil {
			a.Close(ctx)
		}
	}()

	shutdown, err := tracing.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.onClose(shutdown)

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.onClose(func(context.Context) error { return st.Close() })
	log.Debug("database opened", zap.String("path", dbPath))

	graphOpts := []conceptgraph.Option{conceptgraph.WithLogger(log.Named("conceptgraph"))}
	redis, err := pathcache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	if redis != nil {
		graphOpts = append(graphOpts, conceptgraph.WithCache(redis))
		a.onClose(func(context.Context) error { return redis.Close() })
	}
	mirror, err := graphmirror.New(ctx, cfg.Neo4j, log.Named("graphmirror"))
	if err != nil {
		return nil, err
	}
	if mirror != nil {
		graphOpts = append(graphOpts, conceptgraph.WithMirror(mirror))
		a.onClose(mirror.Close)
	}
	a.Graph = conceptgraph.NewService(st.GraphRepo(), graphOpts...)

	trackerOpts := []mastery.Option{mastery.WithLogger(log.Named("mastery"))}
	examOpts := []grading.Option{grading.WithLogger(log.Named("grading"))}
	if cfg.LLM.Enabled() {
		provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log.Named("llm"))
		if err != nil {
			return nil, err
		}
		gen := problemgen.New(provider, cfg.Generation.Generator())
		protocol := problemgen.NewProtocol(gen, cfg.Generation.Protocol(), log.Named("problemgen"))
		trackerOpts = append(trackerOpts, mastery.WithProtocol(protocol))
		examOpts = append(examOpts, grading.WithProtocol(protocol))
		log.Debug("generation enabled", zap.String("provider", cfg.LLM.Provider), zap.String("model", provider.ModelID()))
	}
	a.Tracker = mastery.NewTracker(st.DeckRepo(), trackerOpts...)
	a.Exams = grading.NewService(st.ExamRepo(), examOpts...)

	return a, nil
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
