package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/octobees/leads-discovery/internal/dto"
	"github.com/octobees/leads-discovery/internal/entity"
	"github.com/octobees/leads-discovery/internal/scoring"
)

// CompanyReader is the read side of the company store.
type CompanyReader interface {
	List(ctx context.Context, filter dto.ListFilter) ([]entity.Company, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Company, error)
}

// PatternReader loads stored email patterns.
type PatternReader interface {
	GetByCompanyIDs(ctx context.Context, ids []uuid.UUID) ([]entity.EmailPattern, error)
}

// ContactReader loads a company's contacts.
type ContactReader interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID, excludeIDs []uuid.UUID) ([]entity.Contact, error)
}

// EmailReader loads candidate emails per contact.
type EmailReader interface {
	ListByContacts(ctx context.Context, contactIDs []uuid.UUID) (map[uuid.UUID][]entity.CandidateEmail, error)
}

// CompaniesService exposes the discovered company catalogue.
type CompaniesService struct {
	companies CompanyReader
	patterns  PatternReader
	contacts  ContactReader
	emails    EmailReader
}

// NewCompaniesService creates a new instance of CompaniesService.
func NewCompaniesService(companies CompanyReader, patterns PatternReader, contacts ContactReader, emails EmailReader) *CompaniesService {
	return &CompaniesService{companies: companies, patterns: patterns, contacts: contacts, emails: emails}
}

// ListCompanies returns scored companies respecting pagination defaults.
func (s *CompaniesService) ListCompanies(ctx context.Context, filter dto.ListFilter) ([]dto.CompanyItem, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	companies, err := s.companies.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CompanyItem, 0, len(companies))
	for _, c := range companies {
		items = append(items, scoreCompany(c, 0))
	}
	return items, nil
}

// CompanyContacts returns a company with its pattern and contacts, each
// contact carrying its candidate emails.
func (s *CompaniesService) CompanyContacts(ctx context.Context, id uuid.UUID) (dto.CompanyContacts, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return dto.CompanyContacts{}, err
	}

	out := dto.CompanyContacts{Contacts: []dto.ContactItem{}}

	patterns, err := s.patterns.GetByCompanyIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return dto.CompanyContacts{}, fmt.Errorf("load pattern: %w", err)
	}
	if len(patterns) > 0 {
		out.Pattern = &patterns[0]
	}

	contacts, err := s.contacts.ListByCompany(ctx, id, nil)
	if err != nil {
		return dto.CompanyContacts{}, fmt.Errorf("load contacts: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}
	emails, err := s.emails.ListByContacts(ctx, ids)
	if err != nil {
		return dto.CompanyContacts{}, fmt.Errorf("load emails: %w", err)
	}
	for _, c := range contacts {
		list := emails[c.ID]
		if list == nil {
			list = []entity.CandidateEmail{}
		}
		out.Contacts = append(out.Contacts, dto.ContactItem{Contact: c, Emails: list})
	}

	out.Company = scoreCompany(*company, len(contacts))
	return out, nil
}

func scoreCompany(c entity.Company, contacts int) dto.CompanyItem {
	features := scoring.CompanyFeatures{
		Website:  deref(c.Website),
		Address:  deref(c.Address),
		Phone:    deref(c.Phone),
		Contacts: contacts,
	}
	if c.Rating != nil {
		features.Rating = *c.Rating
	}
	if c.Reviews != nil {
		features.Reviews = *c.Reviews
	}
	score := scoring.ScoreCompany(features)
	return dto.CompanyItem{Company: c, LeadScore: score.Total, Breakdown: score.Breakdown}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
