package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/octobees/leads-discovery/internal/dto"
	"github.com/octobees/leads-discovery/internal/entity"
)

var companyID = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")

func scanCompanyRow(name, domain string) func(dest ...any) error {
	return func(dest ...any) error {
		created := time.Now()
		*dest[0].(*uuid.UUID) = companyID
		*dest[1].(*string) = name
		*dest[2].(*sql.NullString) = sql.NullString{String: "1 Main St, Chicago, IL", Valid: true}
		*dest[3].(*sql.NullString) = sql.NullString{String: "https://www." + domain, Valid: true}
		*dest[4].(*string) = domain
		*dest[5].(*sql.NullString) = sql.NullString{String: "+13125550100", Valid: true}
		*dest[6].(*sql.NullString) = sql.NullString{String: "LegalService", Valid: true}
		*dest[7].(*sql.NullString) = sql.NullString{}
		*dest[8].(*sql.NullFloat64) = sql.NullFloat64{Float64: 4.5, Valid: true}
		*dest[9].(*sql.NullInt64) = sql.NullInt64{Int64: 12, Valid: true}
		*dest[10].(*sql.NullString) = sql.NullString{}
		*dest[11].(*sql.NullTime) = sql.NullTime{Time: created, Valid: true}
		*dest[12].(*time.Time) = created
		*dest[13].(*time.Time) = created
		return nil
	}
}

func TestPGXCompaniesRepository_UpsertByDomain(t *testing.T) {
	var args [][]any
	tx := &stubTx{queryRowFunc: func(_ context.Context, query string, a ...any) pgx.Row {
		if !strings.Contains(query, "ON CONFLICT (normalized_domain)") {
			t.Fatalf("expected domain conflict key, got %s", query)
		}
		args = append(args, a)
		return &stubRow{scan: scanCompanyRow(a[0].(string), a[3].(string))}
	}}
	repo := &PGXCompaniesRepository{pool: txPool(tx)}

	website := "https://www.smithjones.com"
	out, err := repo.UpsertByDomain(context.Background(), []entity.Company{
		{Name: "Smith Jones LLP", Website: &website, NormalizedDomain: "smithjones.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ID != companyID || out[0].Rating == nil || *out[0].Rating != 4.5 {
		t.Fatalf("unexpected stored company: %+v", out)
	}
	if out[0].Description != nil || out[0].Address == nil {
		t.Fatalf("unexpected nullable mapping: %+v", out[0])
	}
	if args[0][1] != nil || args[0][2] != website {
		t.Fatalf("expected nil address and website arg, got %v", args[0])
	}
	if !tx.committed {
		t.Fatalf("expected commit")
	}
}

func TestPGXCompaniesRepository_UpsertByDomainErrors(t *testing.T) {
	repo := &PGXCompaniesRepository{}
	if out, err := repo.UpsertByDomain(context.Background(), nil); err != nil || out != nil {
		t.Fatalf("expected no-op for empty input, got %v %v", out, err)
	}
	if _, err := repo.UpsertByDomain(context.Background(), []entity.Company{{Name: "No Site"}}); err == nil {
		t.Fatalf("expected error for missing domain")
	}

	tx := &stubTx{queryRowFunc: func(context.Context, string, ...any) pgx.Row {
		return &stubRow{scan: func(...any) error { return errors.New("boom") }}
	}}
	repo = &PGXCompaniesRepository{pool: txPool(tx)}
	if _, err := repo.UpsertByDomain(context.Background(), []entity.Company{{Name: "A", NormalizedDomain: "a.com"}}); err == nil {
		t.Fatalf("expected scan error")
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback without commit")
	}
}

func TestPGXCompaniesRepository_List(t *testing.T) {
	minRating := 4.0
	var gotQuery string
	var gotArgs []any
	repo := &PGXCompaniesRepository{pool: &stubPool{
		queryFunc: func(_ context.Context, query string, args ...any) (pgx.Rows, error) {
			gotQuery, gotArgs = query, args
			return &stubRows{scans: []func(dest ...any) error{scanCompanyRow("Acme", "acme.com")}}, nil
		},
	}}

	companies, err := repo.List(context.Background(), dto.ListFilter{Q: "acme", Category: "LegalService", MinRating: &minRating, PhoneStatus: "available", Page: 2, PerPage: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(companies) != 1 || companies[0].Name != "Acme" {
		t.Fatalf("unexpected companies: %+v", companies)
	}
	if !strings.Contains(gotQuery, "phone IS NOT NULL") || !strings.Contains(gotQuery, "LIMIT $6 OFFSET $7") {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if gotArgs[len(gotArgs)-2] != 100 || gotArgs[len(gotArgs)-1] != 100 {
		t.Fatalf("expected per_page capped at 100 and offset 100, got %v", gotArgs)
	}
}

func TestPGXCompaniesRepository_GetByID(t *testing.T) {
	repo := &PGXCompaniesRepository{pool: &stubPool{
		queryRowFunc: func(context.Context, string, ...any) pgx.Row {
			return &stubRow{scan: func(...any) error { return pgx.ErrNoRows }}
		},
	}}
	if _, err := repo.GetByID(context.Background(), companyID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	repo.pool = &stubPool{queryRowFunc: func(context.Context, string, ...any) pgx.Row {
		return &stubRow{scan: scanCompanyRow("Acme", "acme.com")}
	}}
	company, err := repo.GetByID(context.Background(), companyID)
	if err != nil || company.NormalizedDomain != "acme.com" || company.Reviews == nil || *company.Reviews != 12 {
		t.Fatalf("unexpected company: %+v, %v", company, err)
	}
}

func TestHelperConversions(t *testing.T) {
	if stringOrNil(nil) != nil {
		t.Fatalf("expected nil when pointer nil")
	}
	empty := ""
	if stringOrNil(&empty) != nil {
		t.Fatalf("expected nil for empty string")
	}
	value := "hello"
	if stringOrNil(&value) != "hello" {
		t.Fatalf("expected string value")
	}
	if floatOrNil(nil) != nil {
		t.Fatalf("expected nil for nil float pointer")
	}
	f := 3.14
	if floatOrNil(&f) != f {
		t.Fatalf("expected float value")
	}
	if intOrNil(nil) != nil {
		t.Fatalf("expected nil for nil int pointer")
	}
	i := 42
	if intOrNil(&i) != i {
		t.Fatalf("expected int value")
	}
	if textOrNil("") != nil || textOrNil("x") != "x" {
		t.Fatalf("unexpected textOrNil behaviour")
	}
	if nullStringToPtr(sql.NullString{}) != nil {
		t.Fatalf("expected nil for invalid null string")
	}
}
