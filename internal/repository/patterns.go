package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-discovery/internal/entity"
)

// PGXPatternsRepository keeps the current email pattern of each company.
type PGXPatternsRepository struct {
	pool pgxPool
}

// NewPGXPatternsRepository wires a pgx backed pattern store.
func NewPGXPatternsRepository(pool *pgxpool.Pool) *PGXPatternsRepository {
	return &PGXPatternsRepository{pool: pool}
}

const patternColumns = `company_id, template, confidence, source_snippet, source, created_at, updated_at`

// GetByCompanyIDs returns the stored patterns for the given companies. Companies
// without a pattern are absent from the result.
func (r *PGXPatternsRepository) GetByCompanyIDs(ctx context.Context, ids []uuid.UUID) ([]entity.EmailPattern, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+patternColumns+` FROM email_patterns WHERE company_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("query email patterns: %w", err)
	}
	defer rows.Close()

	var patterns []entity.EmailPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate email patterns: %w", err)
	}
	return patterns, nil
}

const upsertPatternSQL = `
        INSERT INTO email_patterns (company_id, template, confidence, source_snippet, source, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (company_id) DO UPDATE SET
            template = EXCLUDED.template,
            confidence = EXCLUDED.confidence,
            source_snippet = EXCLUDED.source_snippet,
            source = EXCLUDED.source,
            updated_at = NOW()
        RETURNING ` + patternColumns

// Upsert replaces the current pattern of each company. The latest write wins.
func (r *PGXPatternsRepository) Upsert(ctx context.Context, patterns []entity.EmailPattern) ([]entity.EmailPattern, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("start pattern upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]entity.EmailPattern, 0, len(patterns))
	for _, p := range patterns {
		if p.CompanyID == uuid.Nil {
			return nil, fmt.Errorf("pattern %q has no company", p.Template)
		}
		stored, err := scanPattern(tx.QueryRow(ctx, upsertPatternSQL,
			p.CompanyID,
			p.Template,
			p.Confidence,
			textOrNil(p.SourceSnippet),
			string(p.Source),
		))
		if err != nil {
			return nil, fmt.Errorf("upsert pattern for %s: %w", p.CompanyID, err)
		}
		out = append(out, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit pattern upsert tx: %w", err)
	}
	return out, nil
}

func scanPattern(row pgx.Row) (entity.EmailPattern, error) {
	var (
		p       entity.EmailPattern
		snippet sql.NullString
		source  string
	)
	if err := row.Scan(&p.CompanyID, &p.Template, &p.Confidence, &snippet, &source, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return entity.EmailPattern{}, err
	}
	p.SourceSnippet = snippet.String
	p.Source = entity.PatternSource(source)
	return p, nil
}
