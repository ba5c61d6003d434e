// Package services implements the hub's application layer: sharing,
// fetching, and downloading deduplicated workflow documents.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/webrpa/hub/pkg/eventbus"
	"github.com/webrpa/hub/pkg/events"
	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/otelhelper"
	"github.com/webrpa/hub/pkg/persistence"
	"github.com/webrpa/hub/pkg/workflow"
)

// ErrWorkflowNotFound is returned when a shared workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

const tracerName = "webrpa-hub/services"

// Workflow is the shared-workflow service.
type Workflow struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewWorkflow creates a new workflow service. The event bus is optional;
// a nil bus disables lifecycle events.
func NewWorkflow(persistence persistence.Persistence, eventBus eventbus.EventBus, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		eventBus:    eventBus,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ShareRequest carries one upload. Document holds the raw bytes exactly as
// submitted; they are stored unmodified when the share is accepted.
type ShareRequest struct {
	Name        string
	Author      string
	Description string
	Document    json.RawMessage
}

// Share validates the uploaded document, fingerprints it, and stores it if
// no workflow with the same fingerprint exists. On a duplicate, the already
// stored record is returned together with ErrDuplicateWorkflow so callers
// can point the uploader at the existing share.
func (w *Workflow) Share(ctx context.Context, req ShareRequest) (*models.SharedWorkflow, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.share",
		attribute.String(otelhelper.WorkflowNameKey, req.Name))
	defer span.End()

	var doc any
	if err := json.Unmarshal(req.Document, &doc); err != nil {
		return nil, NewValidationError("Share", "MALFORMED_JSON", "工作流不是合法的 JSON", ErrInvalidDocument)
	}

	result := workflow.Validate(doc)
	if !result.Valid {
		return nil, NewValidationError("Share", "INVALID_WORKFLOW", result.Error, ErrInvalidDocument)
	}

	fingerprint := workflow.Fingerprint(doc)
	span.SetAttributes(
		attribute.String(otelhelper.FingerprintKey, fingerprint),
		attribute.Int(otelhelper.NodeCountKey, result.NodeCount),
	)

	existing, err := w.persistence.SharedWorkflowByFingerprint(ctx, fingerprint)
	if err != nil && !persistence.IsWorkflowNotFound(err) {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to check fingerprint uniqueness: %w", err)
	}

	if existing != nil {
		return existing, NewValidationError("Share", "DUPLICATE_WORKFLOW",
			"identical workflow already shared as "+existing.Fingerprint, ErrDuplicateWorkflow)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
	}

	now := time.Now().UTC()
	shared := &models.SharedWorkflow{
		ID:          id.String(),
		Fingerprint: fingerprint,
		Name:        req.Name,
		Author:      req.Author,
		Description: req.Description,
		Document:    req.Document,
		NodeCount:   result.NodeCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = w.persistence.SaveSharedWorkflow(ctx, shared)
	if err != nil {
		// Concurrent upload of the same document can win the race between
		// the uniqueness check and the insert.
		if persistence.IsDuplicateFingerprint(err) {
			return nil, NewValidationError("Share", "DUPLICATE_WORKFLOW",
				"identical workflow already shared as "+fingerprint, ErrDuplicateWorkflow)
		}

		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to store shared workflow: %w", err)
	}

	w.publish(ctx, fingerprint, events.WorkflowShared{
		BaseEvent:  w.baseEvent(events.WorkflowSharedEvent, fingerprint),
		WorkflowID: shared.ID,
		Name:       shared.Name,
		Author:     shared.Author,
		NodeCount:  shared.NodeCount,
	})

	return shared, nil
}

// CheckDocument runs the validator without storing anything.
func (w *Workflow) CheckDocument(raw json.RawMessage) workflow.Result {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return workflow.Result{Valid: false, Error: "工作流不是合法的 JSON"}
	}

	return workflow.Validate(doc)
}

// FetchByFingerprint retrieves a shared workflow including its document.
func (w *Workflow) FetchByFingerprint(ctx context.Context, fingerprint string) (*models.SharedWorkflow, error) {
	if !validFingerprint(fingerprint) {
		return nil, NewValidationError("FetchByFingerprint", "INVALID_FINGERPRINT",
			"fingerprint must be 64 hex characters", ErrInvalidFingerprint)
	}

	return w.persistence.SharedWorkflowByFingerprint(ctx, fingerprint)
}

// Download returns the stored document bytes unmodified and bumps the
// download counter.
func (w *Workflow) Download(ctx context.Context, fingerprint string) (json.RawMessage, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.download",
		attribute.String(otelhelper.FingerprintKey, fingerprint))
	defer span.End()

	shared, err := w.FetchByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}

	downloads, err := w.persistence.IncrementDownloads(ctx, fingerprint)
	if err != nil {
		// The download itself succeeded; a lost count is not worth failing
		// the request over.
		w.logger.WarnContext(ctx, "failed to increment download counter",
			"fingerprint", fingerprint, "error", err)
	} else {
		w.publish(ctx, fingerprint, events.WorkflowDownloaded{
			BaseEvent: w.baseEvent(events.WorkflowDownloadedEvent, fingerprint),
			Downloads: downloads,
		})
	}

	return shared.Document, nil
}

// ListRequest contains options for listing shared workflows.
type ListRequest struct {
	Limit     int
	Offset    int
	Author    string
	SortBy    string
	SortOrder string
}

// List retrieves shared workflows with filtering, sorting, and pagination.
func (w *Workflow) List(ctx context.Context, req ListRequest) ([]*models.SharedWorkflow, error) {
	if err := w.validateListRequest(&req); err != nil {
		return nil, err
	}

	workflows, err := w.persistence.SharedWorkflows(ctx, persistence.ListOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Author:    req.Author,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list shared workflows: %w", err)
	}

	return workflows, nil
}

func (w *Workflow) validateListRequest(req *ListRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "downloads", "name"}
	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"List",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"List",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	return nil
}

// Trending returns the download-ranked listing.
func (w *Workflow) Trending(ctx context.Context, limit int) ([]*models.TrendingEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	entries, err := w.persistence.TopDownloaded(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load trending workflows: %w", err)
	}

	return entries, nil
}

// Delete removes a shared workflow by fingerprint.
func (w *Workflow) Delete(ctx context.Context, fingerprint string) error {
	if !validFingerprint(fingerprint) {
		return NewValidationError("Delete", "INVALID_FINGERPRINT",
			"fingerprint must be 64 hex characters", ErrInvalidFingerprint)
	}

	err := w.persistence.DeleteSharedWorkflow(ctx, fingerprint)
	if err != nil {
		return err
	}

	w.publish(ctx, fingerprint, events.WorkflowDeleted{
		BaseEvent: w.baseEvent(events.WorkflowDeletedEvent, fingerprint),
	})

	return nil
}

func (w *Workflow) baseEvent(eventType events.EventType, fingerprint string) events.BaseEvent {
	id := uuid.NewString()
	if w.eventBus != nil {
		id = w.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:          id,
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		Fingerprint: fingerprint,
	}
}

func (w *Workflow) publish(ctx context.Context, key string, event eventbus.Event) {
	if w.eventBus == nil {
		return
	}

	if err := w.eventBus.Publish(ctx, key, event); err != nil {
		w.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func validFingerprint(fingerprint string) bool {
	if len(fingerprint) != 64 {
		return false
	}

	for _, char := range fingerprint {
		isDigit := char >= '0' && char <= '9'
		isHex := char >= 'a' && char <= 'f'

		if !isDigit && !isHex {
			return false
		}
	}

	return true
}
