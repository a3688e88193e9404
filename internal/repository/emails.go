package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-discovery/internal/entity"
)

// PGXEmailsRepository stores candidate emails.
type PGXEmailsRepository struct {
	pool pgxPool
}

// NewPGXEmailsRepository wires a pgx backed email store.
func NewPGXEmailsRepository(pool *pgxpool.Pool) *PGXEmailsRepository {
	return &PGXEmailsRepository{pool: pool}
}

const upsertEmailSQL = `
        INSERT INTO candidate_emails (contact_id, address, confidence, basis, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (contact_id, address) DO UPDATE SET
            confidence = GREATEST(candidate_emails.confidence, EXCLUDED.confidence),
            status = EXCLUDED.status
        RETURNING xmax = 0;
    `

// Upsert stores the address for its contact. persisted is false when the
// (contact, address) pair already existed.
func (r *PGXEmailsRepository) Upsert(ctx context.Context, email entity.CandidateEmail) (bool, error) {
	if email.ContactID == uuid.Nil || email.Address == "" {
		return false, fmt.Errorf("candidate email requires a contact and an address")
	}
	status := email.Status
	if status == "" {
		status = entity.EmailStatusUnverified
	}

	var inserted bool
	err := r.pool.QueryRow(ctx, upsertEmailSQL,
		email.ContactID,
		email.Address,
		email.Confidence,
		email.Basis,
		string(status),
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert candidate email %q: %w", email.Address, err)
	}
	return inserted, nil
}

// ListByContacts returns each contact's emails ranked by confidence.
func (r *PGXEmailsRepository) ListByContacts(ctx context.Context, contactIDs []uuid.UUID) (map[uuid.UUID][]entity.CandidateEmail, error) {
	out := make(map[uuid.UUID][]entity.CandidateEmail)
	if len(contactIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
        SELECT contact_id, address, confidence, basis, status, created_at
        FROM candidate_emails
        WHERE contact_id = ANY($1::uuid[])
        ORDER BY contact_id, confidence DESC, address ASC
    `, contactIDs)
	if err != nil {
		return nil, fmt.Errorf("list candidate emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e      entity.CandidateEmail
			status string
		)
		if err := rows.Scan(&e.ContactID, &e.Address, &e.Confidence, &e.Basis, &status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate email: %w", err)
		}
		e.Status = entity.EmailStatus(status)
		out[e.ContactID] = append(out[e.ContactID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate emails: %w", err)
	}
	return out, nil
}
