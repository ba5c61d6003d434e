// Package web provides HTTP handlers and REST API endpoints for the hub.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/webrpa/hub/pkg/catalog"
	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/persistence"
	"github.com/webrpa/hub/pkg/services"
	"github.com/webrpa/hub/pkg/workflow"
)

// TrendingSource serves the precomputed download ranking.
type TrendingSource interface {
	Entries() []*models.TrendingEntry
}

type APIHandlers struct {
	workflowService *services.Workflow
	trending        TrendingSource
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	trending TrendingSource,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		trending:        trending,
		validator:       validator,
	}
}

func (h *APIHandlers) ShareWorkflow(c fiber.Ctx) error {
	if err := validateShareEnvelope(c.Body()); err != nil {
		return badRequest(c, "Invalid share request: "+err.Error())
	}

	var req ShareWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	shared, err := h.workflowService.Share(c.Context(), services.ShareRequest{
		Name:        req.Name,
		Author:      req.Author,
		Description: req.Description,
		Document:    req.Workflow,
	})
	if err != nil {
		// A duplicate share points the uploader at the existing record.
		if services.IsConflictError(err) && shared != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"type":     "conflict",
				"detail":   err.Error(),
				"existing": TransformWorkflowSummary(shared),
			})
		}

		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformWorkflowSummary(shared))
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := h.parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	workflows, err := h.workflowService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	summaries := make([]WorkflowSummary, 0, len(workflows))
	for _, shared := range workflows {
		summaries = append(summaries, TransformWorkflowSummary(shared))
	}

	return c.JSON(fiber.Map{
		"workflows": summaries,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListWorkflowsRequest parses and validates query parameters for listing workflows.
func (h *APIHandlers) parseListWorkflowsRequest(c fiber.Ctx) (*services.ListRequest, error) {
	req := &services.ListRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.Author = c.Query("author")
	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	fingerprint := c.Params("fingerprint")
	if fingerprint == "" {
		return badRequest(c, "Workflow fingerprint is required")
	}

	shared, err := h.workflowService.FetchByFingerprint(c.Context(), fingerprint)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return handleServiceError(c, err)
	}

	return c.JSON(shared)
}

// DownloadWorkflow serves the stored document bytes exactly as uploaded.
func (h *APIHandlers) DownloadWorkflow(c fiber.Ctx) error {
	fingerprint := c.Params("fingerprint")
	if fingerprint == "" {
		return badRequest(c, "Workflow fingerprint is required")
	}

	document, err := h.workflowService.Download(c.Context(), fingerprint)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return c.Send(document)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	fingerprint := c.Params("fingerprint")
	if fingerprint == "" {
		return badRequest(c, "Workflow fingerprint is required")
	}

	err := h.workflowService.Delete(c.Context(), fingerprint)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateWorkflow runs the structural checks without storing anything. The
// verdict is returned with HTTP 200 either way; invalid documents are not a
// transport error.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	var req ValidateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result := h.workflowService.CheckDocument(req.Workflow)

	response := fiber.Map{
		"valid": result.Valid,
	}

	if result.Valid {
		response["node_count"] = result.NodeCount
	} else {
		response["error"] = result.Error
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetCatalog(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"module_count": catalog.ModuleCount(),
		"families":     catalog.Families(),
		"shell_types": []string{
			catalog.ShellTypeModule,
			catalog.ShellTypeGroup,
			catalog.ShellTypeNote,
			catalog.ShellTypeSubflowHeader,
		},
		"limits": fiber.Map{
			"max_nodes":           workflow.MaxNodes,
			"max_node_data_bytes": workflow.MaxNodeDataBytes,
			"max_document_bytes":  workflow.MaxDocumentBytes,
		},
	})
}

func (h *APIHandlers) GetTrending(c fiber.Ctx) error {
	entries := h.trending.Entries()
	if entries == nil {
		entries = []*models.TrendingEntry{}
	}

	return c.JSON(fiber.Map{
		"workflows": entries,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Web RPA hub is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Web RPA hub is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
