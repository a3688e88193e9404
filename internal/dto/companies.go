package dto

import (
	"time"

	"github.com/octobees/leads-discovery/internal/entity"
)

// ListFilter contains query parameters for company listing endpoints.
type ListFilter struct {
	Q            string
	Category     string
	Domain       string
	PhoneStatus  string
	MinRating    *float64
	UpdatedSince *time.Time
	Sort         string
	Page         int
	PerPage      int
}

// CompanyItem is a company with its lead score.
type CompanyItem struct {
	entity.Company
	LeadScore int            `json:"lead_score"`
	Breakdown map[string]int `json:"score_breakdown,omitempty"`
}

// ContactItem is a contact with its ranked candidate emails.
type ContactItem struct {
	entity.Contact
	Emails []entity.CandidateEmail `json:"emails"`
}

// CompanyContacts is the payload of GET /companies/:id/contacts.
type CompanyContacts struct {
	Company  CompanyItem          `json:"company"`
	Pattern  *entity.EmailPattern `json:"pattern,omitempty"`
	Contacts []ContactItem        `json:"contacts"`
}
