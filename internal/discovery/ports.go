package discovery

import (
	"context"

	"github.com/google/uuid"

	"github.com/octobees/leads-discovery/internal/entity"
)

// CompanyStore persists companies keyed by normalized domain.
type CompanyStore interface {
	UpsertByDomain(ctx context.Context, companies []entity.Company) ([]entity.Company, error)
}

// PatternStore keeps the current pattern per company.
type PatternStore interface {
	GetByCompanyIDs(ctx context.Context, ids []uuid.UUID) ([]entity.EmailPattern, error)
	Upsert(ctx context.Context, patterns []entity.EmailPattern) ([]entity.EmailPattern, error)
}

// ContactStore persists contacts keyed by identity.
type ContactStore interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID, excludeIDs []uuid.UUID) ([]entity.Contact, error)
	UpsertByIdentity(ctx context.Context, contacts []entity.Contact) ([]entity.Contact, error)
}

// EmailStore persists candidate emails keyed by (contact, address). persisted
// is false when the row already existed.
type EmailStore interface {
	Upsert(ctx context.Context, email entity.CandidateEmail) (persisted bool, err error)
}

// RequestStore records discovery requests.
type RequestStore interface {
	Create(ctx context.Context, req *entity.DiscoveryRequest) error
	Finalize(ctx context.Context, req *entity.DiscoveryRequest) error
}

// Stores groups the persistence collaborators.
type Stores struct {
	Companies CompanyStore
	Patterns  PatternStore
	Contacts  ContactStore
	Emails    EmailStore
	Requests  RequestStore
}

// EmailChecker attaches an advisory deliverability status to an address.
type EmailChecker interface {
	Check(ctx context.Context, address string) entity.EmailStatus
}
