package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-discovery/internal/dto"
	"github.com/octobees/leads-discovery/internal/entity"
)

// PGXCompaniesRepository stores discovered companies keyed by normalized domain.
type PGXCompaniesRepository struct {
	pool pgxPool
}

// NewPGXCompaniesRepository wires a pgx backed repository.
func NewPGXCompaniesRepository(pool *pgxpool.Pool) *PGXCompaniesRepository {
	return &PGXCompaniesRepository{pool: pool}
}

const companyColumns = `id, name, address, website, normalized_domain, phone, category, description,
            rating, reviews, source_url, discovered_at, created_at, updated_at`

const upsertCompanySQL = `
        INSERT INTO companies (
            name, address, website, normalized_domain, phone, category, description,
            rating, reviews, source_url, discovered_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
        ON CONFLICT (normalized_domain) DO UPDATE SET
            name = EXCLUDED.name,
            address = COALESCE(EXCLUDED.address, companies.address),
            website = COALESCE(EXCLUDED.website, companies.website),
            phone = COALESCE(EXCLUDED.phone, companies.phone),
            category = COALESCE(EXCLUDED.category, companies.category),
            description = COALESCE(EXCLUDED.description, companies.description),
            rating = COALESCE(EXCLUDED.rating, companies.rating),
            reviews = COALESCE(EXCLUDED.reviews, companies.reviews),
            source_url = COALESCE(EXCLUDED.source_url, companies.source_url),
            discovered_at = COALESCE(companies.discovered_at, EXCLUDED.discovered_at),
            updated_at = NOW()
        RETURNING ` + companyColumns

// UpsertByDomain merges companies into existing rows keyed by normalized
// domain and returns the stored records in input order.
func (r *PGXCompaniesRepository) UpsertByDomain(ctx context.Context, companies []entity.Company) ([]entity.Company, error) {
	if len(companies) == 0 {
		return nil, nil
	}
	for _, c := range companies {
		if strings.TrimSpace(c.NormalizedDomain) == "" {
			return nil, fmt.Errorf("company %q has no normalized domain", c.Name)
		}
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("start company upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]entity.Company, 0, len(companies))
	for _, c := range companies {
		row := tx.QueryRow(ctx, upsertCompanySQL,
			c.Name,
			stringOrNil(c.Address),
			stringOrNil(c.Website),
			c.NormalizedDomain,
			stringOrNil(c.Phone),
			stringOrNil(c.Category),
			stringOrNil(c.Description),
			floatOrNil(c.Rating),
			intOrNil(c.Reviews),
			stringOrNil(c.SourceURL),
			c.DiscoveredAt,
		)
		stored, err := scanCompany(row)
		if err != nil {
			return nil, fmt.Errorf("upsert company %q: %w", c.NormalizedDomain, err)
		}
		out = append(out, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit company upsert tx: %w", err)
	}
	return out, nil
}

// GetByID fetches a single company.
func (r *PGXCompaniesRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch company: %w", err)
	}
	return &company, nil
}

// List retrieves companies matching the provided filter, sorted by rating then reviews.
func (r *PGXCompaniesRepository) List(ctx context.Context, filter dto.ListFilter) ([]entity.Company, error) {
	baseQuery := strings.Builder{}
	baseQuery.WriteString(`SELECT ` + companyColumns + ` FROM companies`)

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.Q != "" {
		pattern := fmt.Sprintf("%%%s%%", filter.Q)
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR address ILIKE $%d OR normalized_domain ILIKE $%d)", idx, idx+1, idx+2))
		args = append(args, pattern, pattern, pattern)
		idx += 3
	}
	if filter.Category != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(category) = LOWER($%d)", idx))
		args = append(args, filter.Category)
		idx++
	}
	if filter.Domain != "" {
		clauses = append(clauses, fmt.Sprintf("normalized_domain = LOWER($%d)", idx))
		args = append(args, filter.Domain)
		idx++
	}
	if filter.MinRating != nil {
		clauses = append(clauses, fmt.Sprintf("rating >= $%d", idx))
		args = append(args, *filter.MinRating)
		idx++
	}
	switch strings.ToLower(filter.PhoneStatus) {
	case "missing":
		clauses = append(clauses, "phone IS NULL")
	case "available":
		clauses = append(clauses, "phone IS NOT NULL")
	}
	if filter.UpdatedSince != nil {
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", idx))
		args = append(args, *filter.UpdatedSince)
		idx++
	}

	if len(clauses) > 0 {
		baseQuery.WriteString(" WHERE ")
		baseQuery.WriteString(strings.Join(clauses, " AND "))
	}

	orderClause := "rating DESC NULLS LAST, reviews DESC NULLS LAST, name ASC"
	if strings.EqualFold(filter.Sort, "recent") {
		orderClause = "updated_at DESC, rating DESC NULLS LAST, name ASC"
	}
	baseQuery.WriteString(" ORDER BY ")
	baseQuery.WriteString(orderClause)

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	baseQuery.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1))
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []entity.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

func scanCompany(row pgx.Row) (entity.Company, error) {
	var (
		c            entity.Company
		address      sql.NullString
		website      sql.NullString
		phone        sql.NullString
		category     sql.NullString
		description  sql.NullString
		rating       sql.NullFloat64
		reviews      sql.NullInt64
		sourceURL    sql.NullString
		discoveredAt sql.NullTime
	)

	err := row.Scan(
		&c.ID,
		&c.Name,
		&address,
		&website,
		&c.NormalizedDomain,
		&phone,
		&category,
		&description,
		&rating,
		&reviews,
		&sourceURL,
		&discoveredAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return entity.Company{}, err
	}

	c.Address = nullStringToPtr(address)
	c.Website = nullStringToPtr(website)
	c.Phone = nullStringToPtr(phone)
	c.Category = nullStringToPtr(category)
	c.Description = nullStringToPtr(description)
	c.SourceURL = nullStringToPtr(sourceURL)
	if rating.Valid {
		val := rating.Float64
		c.Rating = &val
	}
	if reviews.Valid {
		cast := int(reviews.Int64)
		c.Reviews = &cast
	}
	if discoveredAt.Valid {
		ts := discoveredAt.Time
		c.DiscoveredAt = &ts
	}
	return c, nil
}
