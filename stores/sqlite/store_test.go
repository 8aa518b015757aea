package sqlite

import (
	"context"
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
		store, err := NewStore(filepath.Join(t.TempDir(), "portfolio.db"), mgr)
		require.NoError(t, err)
		return store
	})
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	mgr, err := assets.NewManager(t.TempDir())
	require.NoError(t, err)
	dbPath := filepath.Join(t.TempDir(), "portfolio.db")

	store, err := NewStore(dbPath, mgr)
	require.NoError(t, err)

	created, err := store.Create(ctx, core.ProjectFields{
		Title:       "Portfolio A",
		Category:    "Web",
		Description: "desc",
		Tech:        []string{"Go", "React"},
		URL:         "https://example.com",
	}, nil)
	require.NoError(t, err)

	reopened, err := NewStore(dbPath, mgr)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Portfolio A", got.Title)
	assert.Equal(t, []string{"Go", "React"}, got.Tech)
	assert.Equal(t, "https://example.com", got.URL)
	assert.Nil(t, got.Image)
}

func TestEmptyTechRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr, err := assets.NewManager(t.TempDir())
	require.NoError(t, err)
	store, err := NewStore(filepath.Join(t.TempDir(), "portfolio.db"), mgr)
	require.NoError(t, err)

	created, err := store.Create(ctx, core.ProjectFields{
		Title:       "A",
		Category:    "B",
		Description: "C",
		Tech:        []string{},
	}, nil)
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Tech)
	assert.Empty(t, got.Tech)
}
