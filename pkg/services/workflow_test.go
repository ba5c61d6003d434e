package services_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrpa/hub/pkg/channels/gochannel"
	"github.com/webrpa/hub/pkg/eventbus"
	"github.com/webrpa/hub/pkg/events"
	"github.com/webrpa/hub/pkg/persistence"
	"github.com/webrpa/hub/pkg/persistence/file"
	"github.com/webrpa/hub/pkg/services"
)

const sampleDocument = `{"nodes":[` +
	`{"id":"a","type":"open_page","data":{"url":"https://example.com"}},` +
	`{"id":"b","type":"get_element_text","data":{"selector":"h1"}}],` +
	`"edges":[{"source":"a","target":"b"}]}`

func setupService(t *testing.T) (*services.Workflow, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = store.Close(t.Context()) })

	return services.NewWorkflow(store, nil, slog.Default()), store
}

func shareSample(t *testing.T, service *services.Workflow, name string) string {
	t.Helper()

	shared, err := service.Share(t.Context(), services.ShareRequest{
		Name:     name,
		Author:   "tester",
		Document: json.RawMessage(sampleDocument),
	})
	require.NoError(t, err)

	return shared.Fingerprint
}

func TestShareAndFetch(t *testing.T) {
	t.Parallel()

	service, _ := setupService(t)

	shared, err := service.Share(t.Context(), services.ShareRequest{
		Name:        "Scrape headlines",
		Author:      "tester",
		Description: "Opens a page and extracts the headline",
		Document:    json.RawMessage(sampleDocument),
	})
	require.NoError(t, err)
	assert.Regexp(t, "^[0-9a-f]{64}$", shared.Fingerprint)
	assert.Equal(t, 2, shared.NodeCount)
	assert.NotEmpty(t, shared.ID)

	fetched, err := service.FetchByFingerprint(t.Context(), shared.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "Scrape headlines", fetched.Name)
	assert.Equal(t, sampleDocument, string(fetched.Document))
}

func TestShareDuplicateReturnsExisting(t *testing.T) {
	t.Parallel()

	service, _ := setupService(t)

	fingerprint := shareSample(t, service, "original")

	existing, err := service.Share(t.Context(), services.ShareRequest{
		Name:     "copycat",
		Document: json.RawMessage(sampleDocument),
	})
	require.Error(t, err)
	assert.True(t, services.IsConflictError(err))
	require.NotNil(t, existing)
	assert.Equal(t, fingerprint, existing.Fingerprint)
	assert.Equal(t, "original", existing.Name)
}

func TestShareCosmeticVariantIsDuplicate(t *testing.T) {
	t.Parallel()

	service, _ := setupService(t)

	fingerprint := shareSample(t, service, "original")

	// Same graph with node order flipped and labels added hashes identically.
	variant := `{"nodes":[` +
		`{"id":"b","type":"get_element_text","label":"Grab title","data":{"selector":"h1"}},` +
		`{"id":"a","type":"open_page","data":{"url":"https://example.com"}}],` +
		`"edges":[{"source":"a","target":"b"}]}`

	existing, err := service.Share(t.Context(), services.ShareRequest{
		Name:     "variant",
		Document: json.RawMessage(variant),
	})
	require.Error(t, err)
	assert.True(t, services.IsConflictError(err))
	require.NotNil(t, existing)
	assert.Equal(t, fingerprint, existing.Fingerprint)
}

func TestShareRejectsInvalidDocument(t *testing.T) {
	t.Parallel()

	service, _ := setupService(t)

	tests := []struct {
		name     string
		document string
	}{
		{"malformed JSON", `{"nodes":`},
		{"missing nodes", `{"edges":[]}`},
		{"empty nodes", `{"nodes":[],"edges":[]}`},
		{"unknown module type", `{"nodes":[{"id":"a","type":"hack_the_planet"}],"edges":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.Share(t.Context(), services.ShareRequest{
				Name:     "bad",
				Document: json.RawMessage(tt.document),
			})
			require.Error(t, err)
			assert.True(t, services.IsValidationError(err))
		})
	}
}

func TestDownloadReturnsExactBytesAndCounts(t *testing.T) {
	t.Parallel()

	service, _ := setupService(t)

	fingerprint := shareSample(t, service, "download-me")

	document, err := service.Download(t.Context(), fingerprint)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument, string(document))

	document, err = service.Download(t.Context(), fingerprint)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument, string(document))

	shared, err := service.FetchByFingerprint(t.Context(), fingerprint)
	require.NoError(t, err)
	assert.Equal(t, int64(2), shared.Downloads)
}

func TestFetchRejectsMalformedFingerprint(t *testing.T) {
	t.Parallel()

	service, _ := setupService(t)

	_, err := service.FetchByFingerprint(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))

	_, err = service.FetchByFingerprint(t.Context(), strings.Repeat("Z", 64))
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestListValidation(t *testing.T) {
	t.Parallel()

	service, _ := setupService(t)

	_, err := service.List(t.Context(), services.ListRequest{SortBy: "password"})
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))

	_, err = service.List(t.Context(), services.ListRequest{SortOrder: "sideways"})
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestDeleteRemovesWorkflow(t *testing.T) {
	t.Parallel()

	service, _ := setupService(t)

	fingerprint := shareSample(t, service, "ephemeral")

	require.NoError(t, service.Delete(t.Context(), fingerprint))

	_, err := service.FetchByFingerprint(t.Context(), fingerprint)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = service.Delete(t.Context(), fingerprint)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestShareEmitsEvent(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = store.Close(t.Context()) })

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.WorkflowShared, 1)
	require.NoError(t, bus.Handle(events.WorkflowSharedEvent, func(ctx context.Context, event any) error {
		shared, ok := event.(*events.WorkflowShared)
		if ok {
			received <- shared
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	service := services.NewWorkflow(store, bus, slog.Default())

	shared, err := service.Share(t.Context(), services.ShareRequest{
		Name:     "eventful",
		Document: json.RawMessage(sampleDocument),
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, shared.Fingerprint, event.Fingerprint)
		assert.Equal(t, "eventful", event.Name)
		assert.Equal(t, 2, event.NodeCount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for workflow shared event")
	}
}
