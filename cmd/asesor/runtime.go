package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/asesor/internal/advisor"
	"github.com/hpungsan/asesor/internal/config"
	"github.com/hpungsan/asesor/internal/crm"
	"github.com/hpungsan/asesor/internal/db"
	"github.com/hpungsan/asesor/internal/docstore"
	"github.com/hpungsan/asesor/internal/ingest"
	"github.com/hpungsan/asesor/internal/llm"
	"github.com/hpungsan/asesor/internal/logging"
	"github.com/hpungsan/asesor/internal/mcp"
	"github.com/hpungsan/asesor/internal/metrics"
	"github.com/hpungsan/asesor/internal/retrieval"
)

// runtime wires the process-wide collaborators shared by the CLI commands
// and the MCP server.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	catalog  *sql.DB
	store    *docstore.Store
	engine   *retrieval.Engine
	advisor  *advisor.Advisor
	sessions *advisor.Sessions
	report   ingest.Report
}

// newRuntime loads the knowledge base and builds the advisor from cfg.
func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(),
		sessions: advisor.NewSessions(),
	}

	if cfg.CatalogPath != "" {
		rt.catalog, err = db.Init(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
	}

	docs, rep := ingest.Bootstrap(ctx, ingest.Options{
		KnowledgeFile: cfg.KnowledgeFile,
		Catalog:       rt.catalog,
		DocsDir:       cfg.DocsDir,
		Logger:        logger,
	})
	rt.report = rep
	rt.store = docstore.New(docs...)
	rt.engine = retrieval.New(rt.store,
		retrieval.WithLogger(logger),
		retrieval.WithRecorder(rt.metrics))

	prompt, err := advisor.LoadSystemPrompt(cfg.SystemPromptPath, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	completer := llm.New(llm.Options{
		URL:      cfg.LLMURL,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		Timeout:  time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		Logger:   logger,
		Recorder: rt.metrics,
	})
	crmClient := crm.New(crm.Options{
		URL:      cfg.CRMURL,
		APIKey:   cfg.CRMAPIKey,
		Timeout:  time.Duration(cfg.CRMTimeoutSeconds) * time.Second,
		Logger:   logger,
		Recorder: rt.metrics,
	})
	if !crmClient.Configured() {
		logger.Info("crm not configured, qualified leads will not be assigned")
	}

	rt.advisor = advisor.New(advisor.Options{
		Completer:    completer,
		Searcher:     rt.engine,
		CRM:          crmClient,
		SystemPrompt: prompt,
		TopK:         cfg.SearchTopK,
		Logger:       logger,
		Observer:     rt.metrics.TransitionObserver(),
	})
	return rt, nil
}

// deps returns the MCP tool dependencies.
func (rt *runtime) deps() mcp.Deps {
	return mcp.Deps{
		Store:    rt.store,
		Engine:   rt.engine,
		Advisor:  rt.advisor,
		Sessions: rt.sessions,
		Config:   rt.cfg,
		Logger:   rt.logger,
		Observer: rt.metrics.TransitionObserver(),
	}
}

// Close releases the catalog and flushes the logger. Safe to call twice.
func (rt *runtime) Close() error {
	var err error
	if rt.catalog != nil {
		err = rt.catalog.Close()
		rt.catalog = nil
	}
	_ = rt.logger.Sync()
	return err
}

// serve runs the MCP stdio server. When metricsAddr is set the Prometheus
// endpoint is served alongside; when WatchDocs is set new files in DocsDir
// are appended to the store while the server runs.
func serve(ctx context.Context, rt *runtime, metricsAddr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt.logger.Info("knowledge base loaded",
		zap.String("source", rt.report.Source),
		zap.Int("documents", rt.store.Len()),
		zap.Bool("fallback", rt.report.Fallback))

	if metricsAddr != "" {
		srv, err := startMetricsServer(rt, metricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if rt.cfg.WatchDocs {
		if err := startWatcher(ctx, rt); err != nil {
			rt.logger.Warn("docs watcher disabled", zap.String("dir", rt.cfg.DocsDir), zap.Error(err))
		}
	}

	return mcp.Run(rt.deps(), Version)
}

func startMetricsServer(rt *runtime, addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	rt.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return srv, nil
}

func startWatcher(ctx context.Context, rt *runtime) error {
	w, err := ingest.NewWatcher(rt.store, rt.logger)
	if err != nil {
		return err
	}
	events, err := w.Watch(ctx, rt.cfg.DocsDir)
	if err != nil {
		_ = w.Stop()
		return err
	}

	go func() {
		defer w.Stop()
		for ev := range events {
			if ev.Err != nil {
				continue
			}
			rt.logger.Info("document added", zap.String("id", ev.DocumentID), zap.String("path", ev.Path))
		}
	}()
	return nil
}
