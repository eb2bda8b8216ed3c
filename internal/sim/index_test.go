package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBookkeepingUpdatedTracksSystemMove(t *testing.T) {
	w := NewWorld()
	ix := NewIndexes()

	e := w.NewEntity()
	startPath := NewObjPath("sol", KindPlayerShip, "alice")
	w.GameObjects.Set(e, GameObject{Path: startPath})
	ix.BookkeepingUpdated(w)

	got, ok := ix.Lookup(startPath)
	require.True(t, ok)
	require.Equal(t, e, got)
	require.Contains(t, ix.EntitiesInSystem("sol"), e)

	newPath := startPath.WithSystem("alpha-centauri")
	go_ := w.GameObjects.Get(e)
	go_.Path = newPath
	w.GameObjects.MarkModified(e)
	ix.BookkeepingUpdated(w)

	_, staleOK := ix.Lookup(startPath)
	require.False(t, staleOK, "old path must be scrubbed after a system move")
	require.NotContains(t, ix.EntitiesInSystem("sol"), e)

	got, ok = ix.Lookup(newPath)
	require.True(t, ok)
	require.Equal(t, e, got)
	require.Contains(t, ix.EntitiesInSystem("alpha-centauri"), e)
}

func TestBookkeepingRemovedEvictsDespawnedEntity(t *testing.T) {
	w := NewWorld()
	ix := NewIndexes()

	e := w.NewEntity()
	path := NewObjPath("sol", KindContainer, "wreck-1")
	w.GameObjects.Set(e, GameObject{Path: path})
	ix.BookkeepingUpdated(w)
	w.ClearTickFlags()

	w.Despawn(e)
	ix.BookkeepingRemoved(w)

	_, ok := ix.Lookup(path)
	require.False(t, ok)
	require.NotContains(t, ix.EntitiesInSystem("sol"), e)
}
