package stats_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/persistence/file"
	"github.com/webrpa/hub/pkg/services"
	"github.com/webrpa/hub/pkg/stats"
)

func seedWorkflow(t *testing.T, store *file.Persistence, name string, downloads int64) {
	t.Helper()

	err := store.SaveSharedWorkflow(t.Context(), &models.SharedWorkflow{
		ID:          "id-" + name,
		Fingerprint: fmt.Sprintf("%064x", downloads+int64(len(name))),
		Name:        name,
		Document:    json.RawMessage(`{"nodes":[],"edges":[]}`),
		NodeCount:   1,
		Downloads:   downloads,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestRefresherSnapshot(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	service := services.NewWorkflow(store, nil, slog.Default())
	refresher := stats.NewRefresher(service, slog.Default(), "", 2)

	assert.Empty(t, refresher.Entries())

	seedWorkflow(t, store, "cold", 1)
	seedWorkflow(t, store, "warm", 50)
	seedWorkflow(t, store, "hot", 900)

	refresher.Refresh(t.Context())

	entries := refresher.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "hot", entries[0].Name)
	assert.Equal(t, "warm", entries[1].Name)
}

func TestRefresherKeepsLastSnapshotOnFailure(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "store")
	store := file.NewPersistence(root)
	service := services.NewWorkflow(store, nil, slog.Default())
	refresher := stats.NewRefresher(service, slog.Default(), "", 10)

	seedWorkflow(t, store, "survivor", 7)
	refresher.Refresh(t.Context())
	require.Len(t, refresher.Entries(), 1)

	// Break the backing store; the failed refresh must leave the old
	// snapshot in place.
	require.NoError(t, os.RemoveAll(root))
	require.NoError(t, os.WriteFile(root, []byte("not a directory"), 0o644))
	refresher.Refresh(t.Context())

	assert.Len(t, refresher.Entries(), 1)
}
