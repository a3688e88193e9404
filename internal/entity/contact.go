package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Contact is a person inferred to work at a company.
type Contact struct {
	ID         uuid.UUID `json:"id"`
	CompanyID  uuid.UUID `json:"company_id"`
	FirstName  string    `json:"first_name"`
	LastName   *string   `json:"last_name,omitempty"`
	ProfileURL *string   `json:"profile_url,omitempty"`
	Title      *string   `json:"title,omitempty"`
	BioSnippet string    `json:"bio_snippet,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IdentityKey returns the strongest deduplication key available for the contact.
// A profile URL outranks the name tuple.
func (c Contact) IdentityKey() string {
	if key := c.ProfileKey(); key != "" {
		return key
	}
	return c.NameKey()
}

// ProfileKey returns the (profile, company) identity or an empty string when no profile is known.
func (c Contact) ProfileKey() string {
	if c.ProfileURL == nil {
		return ""
	}
	profile := strings.ToLower(strings.TrimRight(strings.TrimSpace(*c.ProfileURL), "/"))
	if profile == "" {
		return ""
	}
	return "profile|" + profile + "|" + c.CompanyID.String()
}

// NameKey returns the case-insensitive (first, last, company) identity.
func (c Contact) NameKey() string {
	last := ""
	if c.LastName != nil {
		last = *c.LastName
	}
	return "name|" + strings.ToLower(strings.TrimSpace(c.FirstName)) + "|" + strings.ToLower(strings.TrimSpace(last)) + "|" + c.CompanyID.String()
}

// EmailStatus is the advisory deliverability verdict attached to a candidate email.
type EmailStatus string

const (
	EmailStatusUnverified EmailStatus = "unverified"
	EmailStatusMXOK       EmailStatus = "mx_ok"
	EmailStatusNoMX       EmailStatus = "no_mx"
	EmailStatusInvalid    EmailStatus = "invalid"
)

// CandidateEmail is one generated address for a contact.
type CandidateEmail struct {
	ContactID  uuid.UUID   `json:"contact_id"`
	Address    string      `json:"address"`
	Confidence float64     `json:"confidence"`
	Basis      string      `json:"basis"`
	Status     EmailStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}
