package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

// LexicalIndex runs keyword retrieval against the chunks table using
// Postgres full text search.
type LexicalIndex struct {
	db *sql.DB
}

func NewLexicalIndex(db *sql.DB) *LexicalIndex {
	return &LexicalIndex{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (l *LexicalIndex) EnsureSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	section TEXT,
	source_type TEXT NOT NULL,
	content TEXT NOT NULL,
	content_tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chunks_tsv ON chunks USING GIN (content_tsv);
CREATE INDEX IF NOT EXISTS idx_chunks_source_type ON chunks(source_type);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (l *LexicalIndex) Search(ctx context.Context, query string, limit int, sources []domain.SourceType) ([]domain.Candidate, error) {
	text := strings.TrimSpace(query)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "lexical search", fmt.Errorf("empty query"))
	}
	if limit <= 0 {
		limit = 10
	}
	if len(sources) == 0 {
		return []domain.Candidate{}, nil
	}

	names := make([]string, 0, len(sources))
	for _, source := range sources {
		names = append(names, string(source))
	}

	rows, err := l.db.QueryContext(ctx, `
SELECT document_id, content, COALESCE(section, ''), source_type,
	ts_rank_cd(content_tsv, websearch_to_tsquery('english', $1)) AS rank
FROM chunks
WHERE content_tsv @@ websearch_to_tsquery('english', $1)
	AND source_type = ANY(string_to_array($2, ','))
ORDER BY rank DESC
LIMIT $3
`, text, strings.Join(names, ","), limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "lexical search", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var candidate domain.Candidate
		var sourceType string
		if err := rows.Scan(&candidate.DocumentID, &candidate.Text, &candidate.Section, &sourceType, &candidate.LexicalScore); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		candidate.SourceType = domain.SourceType(sourceType)
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "lexical search", err)
	}
	return candidates, nil
}
