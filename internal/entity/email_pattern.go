package entity

import (
	"time"

	"github.com/google/uuid"
)

// PatternSource records how an email pattern was derived.
type PatternSource string

const (
	PatternSourceEvidence   PatternSource = "ai_evidence"
	PatternSourceNoEvidence PatternSource = "ai_no_evidence"
	PatternSourceFallback   PatternSource = "fallback"
)

// EmailPattern is the current naming convention inferred for one company.
type EmailPattern struct {
	CompanyID     uuid.UUID     `json:"company_id"`
	Template      string        `json:"template"`
	Confidence    float64       `json:"confidence"`
	SourceSnippet string        `json:"source_snippet,omitempty"`
	Source        PatternSource `json:"source"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
