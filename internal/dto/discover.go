package dto

import (
	"fmt"
	"strings"
)

const (
	DefaultTargetCount = 10
	MaxTargetCount     = 100
	maxQueryLength     = 200
)

// DiscoverRequest is the body of POST /discover.
type DiscoverRequest struct {
	Query       string `json:"query"`
	TargetCount int    `json:"target_count"`
}

// Normalize trims the query, applies the default target and validates bounds.
func (r *DiscoverRequest) Normalize() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	if len(r.Query) > maxQueryLength {
		return fmt.Errorf("query must be at most %d characters", maxQueryLength)
	}
	if r.TargetCount == 0 {
		r.TargetCount = DefaultTargetCount
	}
	if r.TargetCount < 0 || r.TargetCount > MaxTargetCount {
		return fmt.Errorf("target_count must be between 1 and %d", MaxTargetCount)
	}
	return nil
}
