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

// PGXContactsRepository stores contacts keyed by their identity.
type PGXContactsRepository struct {
	pool pgxPool
}

// NewPGXContactsRepository wires a pgx backed contact store.
func NewPGXContactsRepository(pool *pgxpool.Pool) *PGXContactsRepository {
	return &PGXContactsRepository{pool: pool}
}

const contactColumns = `id, company_id, first_name, last_name, profile_url, title, bio_snippet, created_at, updated_at`

// ListByCompany returns the company's contacts, leaving out excludeIDs.
func (r *PGXContactsRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, excludeIDs []uuid.UUID) ([]entity.Contact, error) {
	if excludeIDs == nil {
		excludeIDs = []uuid.UUID{}
	}
	rows, err := r.pool.Query(ctx, `
        SELECT `+contactColumns+`
        FROM contacts
        WHERE company_id = $1 AND NOT (id = ANY($2::uuid[]))
        ORDER BY created_at ASC
    `, companyID, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []entity.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

// identity_key holds entity.Contact.IdentityKey so the profile-or-name rule is
// enforced by one unique index.
const upsertContactSQL = `
        INSERT INTO contacts (company_id, first_name, last_name, profile_url, title, bio_snippet, identity_key, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        ON CONFLICT (identity_key) DO UPDATE SET
            last_name = COALESCE(EXCLUDED.last_name, contacts.last_name),
            profile_url = COALESCE(EXCLUDED.profile_url, contacts.profile_url),
            title = COALESCE(EXCLUDED.title, contacts.title),
            bio_snippet = COALESCE(EXCLUDED.bio_snippet, contacts.bio_snippet),
            updated_at = NOW()
        RETURNING ` + contactColumns

// UpsertByIdentity inserts contacts or merges them into the row with the same
// identity key.
func (r *PGXContactsRepository) UpsertByIdentity(ctx context.Context, contacts []entity.Contact) ([]entity.Contact, error) {
	if len(contacts) == 0 {
		return nil, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("start contact upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]entity.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.CompanyID == uuid.Nil || c.FirstName == "" {
			return nil, fmt.Errorf("contact requires a company and a first name")
		}
		stored, err := scanContact(tx.QueryRow(ctx, upsertContactSQL,
			c.CompanyID,
			c.FirstName,
			stringOrNil(c.LastName),
			stringOrNil(c.ProfileURL),
			stringOrNil(c.Title),
			textOrNil(c.BioSnippet),
			c.IdentityKey(),
		))
		if err != nil {
			return nil, fmt.Errorf("upsert contact %q: %w", c.FirstName, err)
		}
		out = append(out, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit contact upsert tx: %w", err)
	}
	return out, nil
}

func scanContact(row pgx.Row) (entity.Contact, error) {
	var (
		c          entity.Contact
		lastName   sql.NullString
		profileURL sql.NullString
		title      sql.NullString
		bio        sql.NullString
	)
	err := row.Scan(&c.ID, &c.CompanyID, &c.FirstName, &lastName, &profileURL, &title, &bio, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return entity.Contact{}, err
	}
	c.LastName = nullStringToPtr(lastName)
	c.ProfileURL = nullStringToPtr(profileURL)
	c.Title = nullStringToPtr(title)
	c.BioSnippet = bio.String
	return c, nil
}
