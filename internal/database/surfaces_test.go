package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surface-tracker/internal/markers"
	"surface-tracker/internal/surface"
)

func newTestStore(t *testing.T) *SurfaceStore {
	t.Helper()
	store, err := New(context.Background(), Path(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDefinition(name string, ids ...int) surface.Definition {
	reg := make(map[int]surface.RegisteredMarker, len(ids))
	for i, id := range ids {
		off := float64(i) * 0.5
		reg[id] = surface.RegisteredMarker{ID: id, Verts: [4]markers.Point{
			markers.Pt(off, 1), markers.Pt(off+0.25, 1), markers.Pt(off+0.25, 0.75), markers.Pt(off, 0.75),
		}}
	}
	return surface.Definition{
		UID:               uuid.New(),
		Name:              name,
		RegisteredMarkers: reg,
		RealWorldSize:     [2]float64{29.7, 21},
		HeatmapSmoothness: 0.35,
		MinMarkers:        1,
	}
}

func TestReplaceAndListSurfaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defs := []surface.Definition{testDefinition("screen", 1, 2), testDefinition("desk", 7)}
	require.NoError(t, store.ReplaceSurfaces(ctx, defs))

	got, err := store.ListSurfaces(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(defs, got); diff != "" {
		t.Errorf("ListSurfaces mismatch (-want +got):\n%s", diff)
	}

	last, err := store.LastReplaced(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), last, time.Minute)
}

func TestReplaceSurfacesRemovesOldDefinitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceSurfaces(ctx, []surface.Definition{testDefinition("a", 1), testDefinition("b", 2)}))
	keep := testDefinition("c", 3, 4)
	require.NoError(t, store.ReplaceSurfaces(ctx, []surface.Definition{keep}))

	got, err := store.ListSurfaces(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Name)
	assert.Len(t, got[0].RegisteredMarkers, 2)
}

func TestReplaceSurfacesIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := []surface.Definition{testDefinition("a", 1)}
	require.NoError(t, store.ReplaceSurfaces(ctx, original))

	// Duplicate names violate the UNIQUE constraint halfway through.
	err := store.ReplaceSurfaces(ctx, []surface.Definition{testDefinition("x", 1), testDefinition("x", 2)})
	require.Error(t, err)

	got, err := store.ListSurfaces(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(original, got); diff != "" {
		t.Errorf("Expected the previous definitions after a failed replace (-want +got):\n%s", diff)
	}
}

func TestListSurfacesEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.ListSurfaces(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
