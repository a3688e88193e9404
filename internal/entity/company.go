package entity

import (
	"time"

	"github.com/google/uuid"
)

// Company represents a business discovered by the collector.
type Company struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Address          *string    `json:"address,omitempty"`
	Website          *string    `json:"website,omitempty"`
	NormalizedDomain string     `json:"normalized_domain"`
	Phone            *string    `json:"phone,omitempty"`
	Category         *string    `json:"category,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Rating           *float64   `json:"rating,omitempty"`
	Reviews          *int       `json:"reviews,omitempty"`
	SourceURL        *string    `json:"source_url,omitempty"`
	DiscoveredAt     *time.Time `json:"discovered_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Persisted reports whether the company has been assigned an identifier by the store.
func (c Company) Persisted() bool {
	return c.ID != uuid.Nil
}
