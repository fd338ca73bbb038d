package ingest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hpungsan/asesor/internal/db"
	"github.com/hpungsan/asesor/internal/docstore"
	"github.com/hpungsan/asesor/internal/document"
	"github.com/hpungsan/asesor/internal/logging"
)

// Sources reported by Bootstrap.
const (
	SourceKnowledgeFile = "knowledge_file"
	SourceCatalog       = "catalog"
	SourceFiles         = "files"
	SourceExample       = "example"
)

// Options selects where Bootstrap looks for documents. Empty fields are skipped.
type Options struct {
	KnowledgeFile string
	Catalog       *sql.DB
	DocsDir       string
	Logger        *zap.Logger
}

// Report describes what Bootstrap loaded.
type Report struct {
	Source   string   `json:"source"`
	Loaded   int      `json:"loaded"`
	Fallback bool     `json:"fallback"`
	Skipped  []string `json:"skipped,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// Bootstrap loads the initial knowledge base. It tries, in order, the
// knowledge file, the SQLite catalog, and the .txt/.md files of DocsDir and
// DocsDir/manuals; the first non-empty source wins. When all are empty the
// built-in example corpus is returned so search never runs on an empty store.
func Bootstrap(ctx context.Context, opts Options) ([]document.Document, Report) {
	log := logging.OrNop(opts.Logger)
	var rep Report

	if opts.KnowledgeFile != "" {
		if _, err := os.Stat(opts.KnowledgeFile); err == nil {
			docs, err := docstore.ReadFile(opts.KnowledgeFile)
			if err != nil {
				log.Warn("knowledge file unusable", zap.String("path", opts.KnowledgeFile), zap.Error(err))
				rep.Errors = append(rep.Errors, err.Error())
			} else if len(docs) > 0 {
				return finish(log, docs, rep, SourceKnowledgeFile, false)
			}
		}
	}

	if opts.Catalog != nil {
		docs, err := db.ListDocuments(ctx, opts.Catalog)
		if err != nil {
			log.Warn("catalog unusable", zap.Error(err))
			rep.Errors = append(rep.Errors, err.Error())
		} else if len(docs) > 0 {
			return finish(log, docs, rep, SourceCatalog, false)
		}
	}

	if opts.DocsDir != "" {
		docs := loadDocsDir(log, opts.DocsDir, &rep)
		if len(docs) > 0 {
			return finish(log, docs, rep, SourceFiles, false)
		}
	}

	return finish(log, docstore.ExampleCorpus(), rep, SourceExample, true)
}

func finish(log *zap.Logger, docs []document.Document, rep Report, source string, fallback bool) ([]document.Document, Report) {
	rep.Source = source
	rep.Loaded = len(docs)
	rep.Fallback = fallback
	if fallback {
		log.Warn("using example documents", zap.Int("documents", len(docs)))
	} else {
		log.Info("knowledge base loaded", zap.String("source", source), zap.Int("documents", len(docs)))
	}
	return docs, rep
}

// loadDocsDir reads dir and dir/manuals. PDFs are reported as skipped.
func loadDocsDir(log *zap.Logger, dir string, rep *Report) []document.Document {
	var docs []document.Document
	for _, d := range []string{dir, filepath.Join(dir, "manuals")} {
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(d, e.Name())
			if !Supported(path) {
				if filepath.Ext(path) == ".pdf" {
					log.Warn("skipping pdf, text extraction unavailable", zap.String("path", path))
					rep.Skipped = append(rep.Skipped, path)
				}
				continue
			}
			doc, ok, err := LoadFile(path)
			if err != nil {
				log.Warn("failed to load document", zap.String("path", path), zap.Error(err))
				rep.Errors = append(rep.Errors, err.Error())
				continue
			}
			if ok {
				docs = append(docs, doc)
			}
		}
	}
	return docs
}

// ScanDocsDir loads the .txt and .md files of dir and dir/manuals the way
// Bootstrap does, without falling back to anything else.
func ScanDocsDir(dir string, logger *zap.Logger) ([]document.Document, Report) {
	rep := Report{Source: SourceFiles}
	docs := loadDocsDir(logging.OrNop(logger), dir, &rep)
	rep.Loaded = len(docs)
	return docs, rep
}
