package discovery

import (
	"github.com/google/uuid"

	"github.com/octobees/leads-discovery/internal/entity"
)

// EventType discriminates the events of a discovery stream.
type EventType string

const (
	EventStatus           EventType = "status"
	EventCompanyFound     EventType = "company_found"
	EventPatternGenerated EventType = "pattern_generated"
	EventContactFound     EventType = "contact_found"
	EventWarning          EventType = "warning"
	EventComplete         EventType = "complete"
	EventError            EventType = "error"
)

// Stage names the pipeline state a status event announces.
type Stage string

const (
	StageCompanies Stage = "companies"
	StagePatterns  Stage = "patterns"
	StageContacts  Stage = "contacts"
	StageComplete  Stage = "complete"
	StageError     Stage = "error"
)

// Counts summarises a finished request.
type Counts struct {
	CompaniesFound  int `json:"companies_found"`
	ContactsFound   int `json:"contacts_found"`
	EmailsGenerated int `json:"emails_generated"`
}

// Event is one message of a discovery stream. Only the fields relevant to
// Type are set.
type Event struct {
	Type    EventType `json:"type"`
	Stage   Stage     `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`

	Company *entity.Company `json:"company,omitempty"`

	CompanyID  *uuid.UUID `json:"company_id,omitempty"`
	Pattern    string     `json:"pattern,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`

	Contact *entity.Contact         `json:"contact,omitempty"`
	Emails  []entity.CandidateEmail `json:"emails,omitempty"`

	*Counts
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
