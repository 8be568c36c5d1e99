// Package models defines the core domain models for content-analysis runs.
package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Depth selects how far the analysis pipeline goes for a run.
type Depth string

const (
	DepthQuick    Depth = "quick"    // Fetch + summary only
	DepthStandard Depth = "standard" // Adds claim extraction and verification
	DepthDeep     Depth = "deep"     // Adds topic/sentiment analysis and storage
)

// AnalysisRequest describes one content-analysis run. Immutable once created.
type AnalysisRequest struct {
	TargetURL   string         `json:"target_url"   validate:"required,url"`
	Depth       Depth          `json:"depth"        validate:"required"`
	TenantID    string         `json:"tenant_id"    validate:"required"`
	WorkspaceID string         `json:"workspace_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

var validate = validator.New()

// Validate checks the request against its declared constraints. Failures
// wrap ErrInvalidRequest so callers can classify them with
// IsValidationError.
func (r *AnalysisRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return nil
}
