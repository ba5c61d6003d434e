// Package web provides HTTP request and response types for the hub API.
package web

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/webrpa/hub/pkg/models"
)

// ShareWorkflowRequest represents the request body for sharing a workflow.
// Workflow carries the uploaded document verbatim; the raw bytes are what
// get fingerprinted and stored.
type ShareWorkflowRequest struct {
	Name        string          `json:"name"        validate:"required,min=1,max=100"`
	Author      string          `json:"author"      validate:"omitempty,max=100"`
	Description string          `json:"description" validate:"omitempty,max=2000"`
	Workflow    json.RawMessage `json:"workflow"    validate:"required"`
}

// ValidateWorkflowRequest represents the request body for a dry-run check.
type ValidateWorkflowRequest struct {
	Workflow json.RawMessage `json:"workflow" validate:"required"`
}

// WorkflowSummary is the listing shape: everything except the document.
type WorkflowSummary struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	NodeCount   int    `json:"node_count"`
	Downloads   int64  `json:"downloads"`
	CreatedAt   string `json:"created_at"`
}

// TransformWorkflowSummary strips the stored document from a shared workflow.
func TransformWorkflowSummary(shared *models.SharedWorkflow) WorkflowSummary {
	return WorkflowSummary{
		ID:          shared.ID,
		Fingerprint: shared.Fingerprint,
		Name:        shared.Name,
		Author:      shared.Author,
		Description: shared.Description,
		NodeCount:   shared.NodeCount,
		Downloads:   shared.Downloads,
		CreatedAt:   shared.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// shareEnvelopeSchema constrains the outer shape of a share request before
// the document itself is validated structurally.
var shareEnvelopeSchema = map[string]any{
	"type":     "object",
	"required": []any{"name", "workflow"},
	"properties": map[string]any{
		"name":        map[string]any{"type": "string", "minLength": 1, "maxLength": 100},
		"author":      map[string]any{"type": "string", "maxLength": 100},
		"description": map[string]any{"type": "string", "maxLength": 2000},
		"workflow":    map[string]any{"type": "object"},
	},
}

// validateShareEnvelope checks the raw request body against the envelope
// schema. It catches shape errors JSON binding cannot, such as a workflow
// field holding an array or a string.
func validateShareEnvelope(body []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(shareEnvelopeSchema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
