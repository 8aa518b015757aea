package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-complete/assets"
	"portfolio-complete/core"
	"portfolio-complete/stores/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, mgr *assets.Manager) core.CatalogStore {
		store, err := NewStore(t.TempDir(), mgr)
		require.NoError(t, err)
		return store
	})
}

func newTestStore(t *testing.T) (*fileStore, string) {
	t.Helper()
	mgr, err := assets.NewManager(t.TempDir())
	require.NoError(t, err)
	basePath := t.TempDir()
	store, err := NewStore(basePath, mgr)
	require.NoError(t, err)
	return store, basePath
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, basePath := newTestStore(t)

	created, err := store.Create(ctx, core.ProjectFields{
		Title:       "Portfolio A",
		Category:    "Web",
		Description: "desc",
		Tech:        []string{"Go"},
	}, nil)
	require.NoError(t, err)

	// A second store over the same directory sees the persisted record.
	mgr, err := assets.NewManager(t.TempDir())
	require.NoError(t, err)
	reopened, err := NewStore(basePath, mgr)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Portfolio A", got.Title)
	assert.Equal(t, []string{"Go"}, got.Tech)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, 0)
}

func TestSnapshotDocumentLayout(t *testing.T) {
	ctx := context.Background()
	store, basePath := newTestStore(t)

	_, err := store.Create(ctx, core.ProjectFields{
		Title:       "A",
		Category:    "Web",
		Description: "d",
		Tech:        []string{},
	}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(basePath, snapshotFile))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, "projects", "snapshot must keep the projects collection layout")

	var records []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["projects"], &records))
	require.Len(t, records, 1)
	for _, field := range []string{"id", "title", "category", "description", "tech", "url", "image", "createdAt"} {
		assert.Contains(t, records[0], field)
	}
	assert.Equal(t, "null", string(records[0]["image"]))
}

func TestCorruptSnapshotFailsClosed(t *testing.T) {
	ctx := context.Background()
	store, basePath := newTestStore(t)

	_, err := store.Create(ctx, core.ProjectFields{Title: "A", Category: "B", Description: "C"}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(basePath, snapshotFile), []byte("{not json"), 0644))

	_, err = store.List(ctx)
	require.Error(t, err)

	// A mutation must not clobber the (corrupt, but possibly recoverable)
	// snapshot with a fresh one.
	_, err = store.Create(ctx, core.ProjectFields{Title: "A", Category: "B", Description: "C"}, nil)
	require.Error(t, err)
	data, readErr := os.ReadFile(filepath.Join(basePath, snapshotFile))
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data))
}

func TestNoTempFileLeftBehind(t *testing.T) {
	ctx := context.Background()
	store, basePath := newTestStore(t)

	_, err := store.Create(ctx, core.ProjectFields{Title: "A", Category: "B", Description: "C"}, nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(basePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, snapshotFile, entries[0].Name())
}
