package web_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/persistence/file"
	"github.com/webrpa/hub/pkg/services"
	"github.com/webrpa/hub/pkg/stats"
	"github.com/webrpa/hub/pkg/web"
)

const sampleDocument = `{"nodes":[` +
	`{"id":"a","type":"open_page","data":{"url":"https://example.com"}},` +
	`{"id":"b","type":"click_element","data":{"selector":"#go"}}],` +
	`"edges":[{"source":"a","target":"b"}]}`

func shareBody(name, document string) string {
	return fmt.Sprintf(`{"name":%q,"author":"tester","workflow":%s}`, name, document)
}

func setupTestApp(t *testing.T) (*fiber.App, *services.Workflow, *stats.Refresher) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = persistence.Close(t.Context()) })

	workflowService := services.NewWorkflow(persistence, nil, slog.Default())
	trending := stats.NewRefresher(workflowService, slog.Default(), "", 10)
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(workflowService, trending, validate)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.ShareWorkflow)
	w.Post("/validate", handlers.ValidateWorkflow)
	w.Get("/trending", handlers.GetTrending)
	w.Get("/:fingerprint", handlers.GetWorkflow)
	w.Get("/:fingerprint/download", handlers.DownloadWorkflow)
	w.Delete("/:fingerprint", handlers.DeleteWorkflow)

	app.Get("/catalog", handlers.GetCatalog)
	app.Get("/health", handlers.HealthCheck)

	return app, workflowService, trending
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, payload
}

func TestAPIHandlers_ShareWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    string
		expectedStatus int
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name:           "successful share",
			requestBody:    shareBody("Checkout flow", sampleDocument),
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var summary web.WorkflowSummary
				require.NoError(t, json.Unmarshal(body, &summary))
				assert.Equal(t, "Checkout flow", summary.Name)
				assert.Equal(t, "tester", summary.Author)
				assert.Equal(t, 2, summary.NodeCount)
				assert.Regexp(t, "^[0-9a-f]{64}$", summary.Fingerprint)
				assert.NotEmpty(t, summary.ID)
			},
		},
		{
			name:           "missing name",
			requestBody:    `{"workflow":` + sampleDocument + `}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "workflow is not an object",
			requestBody:    `{"name":"bad","workflow":[1,2,3]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "structurally invalid document",
			requestBody:    shareBody("bad", `{"nodes":[],"edges":[]}`),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _, _ := setupTestApp(t)

			resp, body := doJSON(t, app, http.MethodPost, "/workflows", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validateResult != nil {
				tt.validateResult(t, body)
			}
		})
	}
}

func TestAPIHandlers_ShareWorkflowDuplicate(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", shareBody("first", sampleDocument))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created web.WorkflowSummary
	require.NoError(t, json.Unmarshal(body, &created))

	// Same document under a different name still collides on the fingerprint.
	resp, body = doJSON(t, app, http.MethodPost, "/workflows", shareBody("second", sampleDocument))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var conflict struct {
		Type     string              `json:"type"`
		Existing web.WorkflowSummary `json:"existing"`
	}
	require.NoError(t, json.Unmarshal(body, &conflict))
	assert.Equal(t, "conflict", conflict.Type)
	assert.Equal(t, created.Fingerprint, conflict.Existing.Fingerprint)
	assert.Equal(t, "first", conflict.Existing.Name)
}

func TestAPIHandlers_DownloadWorkflow(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", shareBody("dl", sampleDocument))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created web.WorkflowSummary
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/"+created.Fingerprint+"/download", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The stored document comes back byte for byte.
	assert.Equal(t, sampleDocument, string(body))

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/"+created.Fingerprint, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var shared models.SharedWorkflow
	require.NoError(t, json.Unmarshal(body, &shared))
	assert.Equal(t, int64(1), shared.Downloads)
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/"+strings.Repeat("0", 64), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/not-a-fingerprint", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_DeleteWorkflow(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", shareBody("gone", sampleDocument))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created web.WorkflowSummary
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+created.Fingerprint, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+created.Fingerprint, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ValidateWorkflow(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/validate",
		`{"workflow":`+sampleDocument+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verdict struct {
		Valid     bool   `json:"valid"`
		NodeCount int    `json:"node_count"`
		Error     string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &verdict))
	assert.True(t, verdict.Valid)
	assert.Equal(t, 2, verdict.NodeCount)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/validate",
		`{"workflow":{"edges":[]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.Unmarshal(body, &verdict))
	assert.False(t, verdict.Valid)
	assert.Equal(t, "缺少 nodes 字段", verdict.Error)
}

func TestAPIHandlers_ListWorkflows(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	documents := []string{
		sampleDocument,
		`{"nodes":[{"id":"x","type":"db_query","data":{"sql":"select 1"}}],"edges":[]}`,
	}
	for i, document := range documents {
		resp, _ := doJSON(t, app, http.MethodPost, "/workflows",
			shareBody(fmt.Sprintf("wf-%d", i), document))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/?sort_by=name&sort_order=asc", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Workflows []web.WorkflowSummary `json:"workflows"`
		Sorting   struct {
			SortBy    string `json:"sort_by"`
			SortOrder string `json:"sort_order"`
		} `json:"sorting"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing.Workflows, 2)
	assert.Equal(t, "wf-0", listing.Workflows[0].Name)
	assert.Equal(t, "wf-1", listing.Workflows[1].Name)
	assert.Equal(t, "name", listing.Sorting.SortBy)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/?sort_by=bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_GetTrending(t *testing.T) {
	t.Parallel()

	app, _, trending := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", shareBody("hot", sampleDocument))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created web.WorkflowSummary
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+created.Fingerprint+"/download", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	trending.Refresh(t.Context())

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/trending", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ranking struct {
		Workflows []*models.TrendingEntry `json:"workflows"`
	}
	require.NoError(t, json.Unmarshal(body, &ranking))
	require.Len(t, ranking.Workflows, 1)
	assert.Equal(t, created.Fingerprint, ranking.Workflows[0].Fingerprint)
	assert.Equal(t, int64(1), ranking.Workflows[0].Downloads)
}

func TestAPIHandlers_GetCatalog(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/catalog", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		ModuleCount int                 `json:"module_count"`
		Families    map[string][]string `json:"families"`
		ShellTypes  []string            `json:"shell_types"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.GreaterOrEqual(t, payload.ModuleCount, 230)
	assert.NotEmpty(t, payload.Families)
	assert.Contains(t, payload.ShellTypes, "moduleNode")
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
}
