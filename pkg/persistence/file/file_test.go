package file_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/persistence"
	"github.com/webrpa/hub/pkg/persistence/file"
)

func testWorkflow(name string, downloads int64, createdAt time.Time) *models.SharedWorkflow {
	fingerprint := fmt.Sprintf("%064x", len(name)*31+int(downloads))

	return &models.SharedWorkflow{
		ID:          "id-" + name,
		Fingerprint: fingerprint,
		Name:        name,
		Author:      "tester",
		Document:    json.RawMessage(`{"nodes":[],"edges":[]}`),
		NodeCount:   1,
		Downloads:   downloads,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestSaveAndFetchRoundTrip(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	document := json.RawMessage(`{"nodes":[{"id":"a","type":"open_page"}],"edges":[]}`)
	workflow := &models.SharedWorkflow{
		ID:          "wf-1",
		Fingerprint: strings.Repeat("ab", 32),
		Name:        "round trip",
		Document:    document,
		NodeCount:   1,
		CreatedAt:   time.Now().UTC(),
	}

	require.NoError(t, store.SaveSharedWorkflow(t.Context(), workflow))

	fetched, err := store.SharedWorkflowByFingerprint(t.Context(), workflow.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "round trip", fetched.Name)
	assert.Equal(t, string(document), string(fetched.Document))
}

func TestSaveRefusesDuplicateFingerprint(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	workflow := testWorkflow("dup", 0, time.Now().UTC())
	require.NoError(t, store.SaveSharedWorkflow(t.Context(), workflow))

	err := store.SaveSharedWorkflow(t.Context(), workflow)
	require.Error(t, err)
	assert.True(t, persistence.IsDuplicateFingerprint(err))
}

func TestFetchUnknownFingerprint(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	_, err := store.SharedWorkflowByFingerprint(t.Context(), strings.Repeat("0", 64))
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDelete(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	workflow := testWorkflow("doomed", 0, time.Now().UTC())
	require.NoError(t, store.SaveSharedWorkflow(t.Context(), workflow))
	require.NoError(t, store.DeleteSharedWorkflow(t.Context(), workflow.Fingerprint))

	err := store.DeleteSharedWorkflow(t.Context(), workflow.Fingerprint)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestIncrementDownloads(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	workflow := testWorkflow("counted", 0, time.Now().UTC())
	require.NoError(t, store.SaveSharedWorkflow(t.Context(), workflow))

	for want := int64(1); want <= 3; want++ {
		got, err := store.IncrementDownloads(t.Context(), workflow.Fingerprint)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestListSortingAndPagination(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"alpha", "bravo", "charlie"}

	for i, name := range names {
		workflow := testWorkflow(name, int64(i*10), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.SaveSharedWorkflow(t.Context(), workflow))
	}

	byName, err := store.SharedWorkflows(t.Context(), persistence.ListOptions{
		SortBy: "name", SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, byName, 3)
	assert.Equal(t, "alpha", byName[0].Name)
	assert.Equal(t, "charlie", byName[2].Name)

	newestFirst, err := store.SharedWorkflows(t.Context(), persistence.ListOptions{
		SortBy: "created_at", SortOrder: "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, "charlie", newestFirst[0].Name)

	paged, err := store.SharedWorkflows(t.Context(), persistence.ListOptions{
		SortBy: "name", SortOrder: "asc", Limit: 1, Offset: 1,
	})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "bravo", paged[0].Name)

	beyond, err := store.SharedWorkflows(t.Context(), persistence.ListOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestListFiltersByAuthor(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	mine := testWorkflow("mine", 0, time.Now().UTC())
	mine.Author = "me"
	require.NoError(t, store.SaveSharedWorkflow(t.Context(), mine))

	theirs := testWorkflow("theirs", 5, time.Now().UTC())
	theirs.Author = "them"
	require.NoError(t, store.SaveSharedWorkflow(t.Context(), theirs))

	workflows, err := store.SharedWorkflows(t.Context(), persistence.ListOptions{Author: "me"})
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, "mine", workflows[0].Name)
}

func TestTopDownloaded(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	base := time.Now().UTC()
	for i, name := range []string{"cold", "warm", "hot"} {
		workflow := testWorkflow(name, int64(i*100), base)
		require.NoError(t, store.SaveSharedWorkflow(t.Context(), workflow))
	}

	entries, err := store.TopDownloaded(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hot", entries[0].Name)
	assert.Equal(t, int64(200), entries[0].Downloads)
	assert.Equal(t, "warm", entries[1].Name)
}
