package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpungsan/asesor/internal/document"
	"github.com/hpungsan/asesor/internal/errors"
)

// InsertDocuments appends docs to the catalog in one transaction.
// source records where the documents came from (e.g. a directory or file); empty is stored as NULL.
func InsertDocuments(ctx context.Context, db *sql.DB, docs []document.Document, source string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, content, metadata_json, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	src := toNullString(source)
	for _, d := range docs {
		meta := d.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Content, string(metaJSON), src, now); err != nil {
			return errors.NewInternal(fmt.Errorf("insert document %s: %w", d.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListDocuments returns every catalog document in insertion order.
func ListDocuments(ctx context.Context, db *sql.DB) ([]document.Document, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, content, metadata_json FROM documents ORDER BY seq`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var (
			id, content, metaJSON string
			meta                  map[string]string
		)
		if err := rows.Scan(&id, &content, &metaJSON); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("document %s: bad metadata: %w", id, err))
		}
		docs = append(docs, document.New(id, content, meta))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return docs, nil
}

// CountDocuments returns the number of catalog documents.
func CountDocuments(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// SourceCounts returns the number of documents per source, NULL sources under "".
func SourceCounts(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT source, COUNT(*) FROM documents GROUP BY source`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			source sql.NullString
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts[fromNullString(source)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

// toNullString converts an empty string to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// fromNullString converts NULL to "".
func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
