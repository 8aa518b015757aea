// Package storetest is a contract suite run against every catalog backend.
// The backends differ in how they persist, not in what they promise; the
// suite pins down the shared promises: round-tripping, unique IDs under
// concurrent creates, partial updates, and asset lifecycle.
package storetest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-complete/assets"
	"portfolio-complete/core"
)

// Factory builds a fresh, empty store wired to the given asset manager.
type Factory func(t *testing.T, mgr *assets.Manager) core.CatalogStore

func sampleFields() core.ProjectFields {
	return core.ProjectFields{
		Title:       "Portfolio A",
		Category:    "Web",
		Description: "desc",
		Tech:        []string{"Go", "React"},
		URL:         "https://example.com",
	}
}

// Run executes the full contract suite against the backend built by factory.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	newStore := func(t *testing.T) (core.CatalogStore, *assets.Manager) {
		mgr, err := assets.NewManager(t.TempDir())
		require.NoError(t, err)
		return factory(t, mgr), mgr
	}

	t.Run("RoundTrip", func(t *testing.T) {
		store, _ := newStore(t)

		created, err := store.Create(ctx, sampleFields(), nil)
		require.NoError(t, err)
		require.NotZero(t, created.ID)
		require.False(t, created.CreatedAt.IsZero())

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Portfolio A", got.Title)
		assert.Equal(t, "Web", got.Category)
		assert.Equal(t, "desc", got.Description)
		assert.Equal(t, []string{"Go", "React"}, got.Tech)
		assert.Equal(t, "https://example.com", got.URL)
		assert.Nil(t, got.Image)
	})

	t.Run("ListInsertionOrder", func(t *testing.T) {
		store, _ := newStore(t)

		var ids []int64
		for i := 0; i < 5; i++ {
			fields := sampleFields()
			fields.Title = fmt.Sprintf("Project %d", i)
			p, err := store.Create(ctx, fields, nil)
			require.NoError(t, err)
			ids = append(ids, p.ID)
		}

		listed, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 5)
		for i, p := range listed {
			assert.Equal(t, ids[i], p.ID)
			assert.Equal(t, fmt.Sprintf("Project %d", i), p.Title)
		}
	})

	t.Run("ConcurrentCreatesLoseNothing", func(t *testing.T) {
		store, _ := newStore(t)

		const n = 20
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				fields := sampleFields()
				fields.Title = fmt.Sprintf("Concurrent %d", i)
				_, errs[i] = store.Create(ctx, fields, nil)
			}(i)
		}
		wg.Wait()
		for i, err := range errs {
			require.NoError(t, err, "create %d", i)
		}

		listed, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, n, "a create was lost")

		seen := map[int64]bool{}
		for _, p := range listed {
			require.False(t, seen[p.ID], "duplicate id %d", p.ID)
			seen[p.ID] = true
		}
	})

	t.Run("ValidationRecheck", func(t *testing.T) {
		store, _ := newStore(t)

		_, err := store.Create(ctx, core.ProjectFields{Title: "x"}, nil)
		require.ErrorIs(t, err, core.ErrValidation)

		listed, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		store, _ := newStore(t)

		created, err := store.Create(ctx, sampleFields(), nil)
		require.NoError(t, err)

		title := "X"
		updated, err := store.Update(ctx, created.ID, core.ProjectPatch{Title: &title}, nil)
		require.NoError(t, err)
		assert.Equal(t, "X", updated.Title)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "X", got.Title)
		assert.Equal(t, created.Category, got.Category)
		assert.Equal(t, created.Description, got.Description)
		assert.Equal(t, created.Tech, got.Tech)
		assert.Equal(t, created.URL, got.URL)
	})

	t.Run("NotFound", func(t *testing.T) {
		store, _ := newStore(t)

		_, err := store.Get(ctx, 42)
		require.ErrorIs(t, err, core.ErrNotFound)

		title := "X"
		_, err = store.Update(ctx, 42, core.ProjectPatch{Title: &title}, nil)
		require.ErrorIs(t, err, core.ErrNotFound)

		err = store.Delete(ctx, 42)
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("CreateWithAsset", func(t *testing.T) {
		store, mgr := newStore(t)

		created, err := store.Create(ctx, sampleFields(), &core.AssetUpload{Name: "shot.png", Data: []byte("img")})
		require.NoError(t, err)
		require.NotNil(t, created.Image)

		path, ok := mgr.Resolve(*created.Image)
		require.True(t, ok)
		_, err = os.Stat(path)
		require.NoError(t, err, "image ref must resolve to an existing file")
	})

	t.Run("DeleteRemovesAsset", func(t *testing.T) {
		store, mgr := newStore(t)

		created, err := store.Create(ctx, sampleFields(), &core.AssetUpload{Name: "shot.png", Data: []byte("img")})
		require.NoError(t, err)
		require.NotNil(t, created.Image)
		path, ok := mgr.Resolve(*created.Image)
		require.True(t, ok)

		require.NoError(t, store.Delete(ctx, created.ID))

		listed, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)

		// Release is fire and forget; only its eventual effect is promised.
		require.Eventually(t, func() bool {
			_, err := os.Stat(path)
			return os.IsNotExist(err)
		}, 2*time.Second, 10*time.Millisecond, "asset file should be removed")
	})

	t.Run("ReplaceReleasesOldAsset", func(t *testing.T) {
		store, mgr := newStore(t)

		created, err := store.Create(ctx, sampleFields(), &core.AssetUpload{Name: "old.png", Data: []byte("old")})
		require.NoError(t, err)
		oldPath, ok := mgr.Resolve(*created.Image)
		require.True(t, ok)

		updated, err := store.Update(ctx, created.ID, core.ProjectPatch{}, &core.AssetUpload{Name: "new.png", Data: []byte("new")})
		require.NoError(t, err)
		require.NotNil(t, updated.Image)
		assert.NotEqual(t, *created.Image, *updated.Image)

		newPath, ok := mgr.Resolve(*updated.Image)
		require.True(t, ok)
		_, err = os.Stat(newPath)
		require.NoError(t, err, "new image must exist immediately")

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Image)
		gotPath, ok := mgr.Resolve(*got.Image)
		require.True(t, ok)
		_, err = os.Stat(gotPath)
		require.NoError(t, err, "the referenced image must always resolve")

		require.Eventually(t, func() bool {
			_, err := os.Stat(oldPath)
			return os.IsNotExist(err)
		}, 2*time.Second, 10*time.Millisecond, "old asset should be released")
	})

	t.Run("UpdateWithoutAssetKeepsImage", func(t *testing.T) {
		store, mgr := newStore(t)

		created, err := store.Create(ctx, sampleFields(), &core.AssetUpload{Name: "keep.png", Data: []byte("img")})
		require.NoError(t, err)

		title := "renamed"
		updated, err := store.Update(ctx, created.ID, core.ProjectPatch{Title: &title}, nil)
		require.NoError(t, err)
		require.NotNil(t, updated.Image)
		assert.Equal(t, *created.Image, *updated.Image)

		path, ok := mgr.Resolve(*updated.Image)
		require.True(t, ok)
		_, err = os.Stat(path)
		require.NoError(t, err)
	})
}
