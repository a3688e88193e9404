package entity

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus tracks the lifecycle of a discovery request.
type RequestStatus string

const (
	RequestStatusRunning   RequestStatus = "running"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// DiscoveryRequest is one end-to-end invocation of the pipeline.
type DiscoveryRequest struct {
	ID               uuid.UUID     `json:"id"`
	Query            string        `json:"query"`
	TargetCount      int           `json:"target_count"`
	SearchTerm       string        `json:"search_term,omitempty"`
	ResolvedLocation string        `json:"resolved_location,omitempty"`
	Status           RequestStatus `json:"status"`
	CompaniesFound   int           `json:"companies_found"`
	ContactsFound    int           `json:"contacts_found"`
	EmailsGenerated  int           `json:"emails_generated"`
	Error            *string       `json:"error,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       *time.Time    `json:"finished_at,omitempty"`
}
