package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-discovery/internal/entity"
)

// ErrAlreadyFinalized is returned when a request row was finalized before.
var ErrAlreadyFinalized = errors.New("discovery request already finalized")

// PGXRequestsRepository records discovery requests.
type PGXRequestsRepository struct {
	pool pgxPool
}

// NewPGXRequestsRepository wires a pgx backed request store.
func NewPGXRequestsRepository(pool *pgxpool.Pool) *PGXRequestsRepository {
	return &PGXRequestsRepository{pool: pool}
}

// Create inserts the running request.
func (r *PGXRequestsRepository) Create(ctx context.Context, req *entity.DiscoveryRequest) error {
	if req == nil {
		return fmt.Errorf("discovery request is nil")
	}
	_, err := r.pool.Exec(ctx, `
        INSERT INTO discovery_requests (id, query, target_count, status, started_at)
        VALUES ($1, $2, $3, $4, $5)
    `, req.ID, req.Query, req.TargetCount, string(req.Status), req.StartedAt)
	if err != nil {
		return fmt.Errorf("insert discovery request: %w", err)
	}
	return nil
}

// Finalize writes the outcome of the request. A row can be finalized once;
// later calls return ErrAlreadyFinalized.
func (r *PGXRequestsRepository) Finalize(ctx context.Context, req *entity.DiscoveryRequest) error {
	if req == nil {
		return fmt.Errorf("discovery request is nil")
	}
	tag, err := r.pool.Exec(ctx, `
        UPDATE discovery_requests SET
            search_term = $2,
            resolved_location = $3,
            status = $4,
            companies_found = $5,
            contacts_found = $6,
            emails_generated = $7,
            error = $8,
            finished_at = $9
        WHERE id = $1 AND finished_at IS NULL
    `,
		req.ID,
		textOrNil(req.SearchTerm),
		textOrNil(req.ResolvedLocation),
		string(req.Status),
		req.CompaniesFound,
		req.ContactsFound,
		req.EmailsGenerated,
		stringOrNil(req.Error),
		req.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("finalize discovery request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFinalized
	}
	return nil
}
