package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRescanSensorsClassifiesByDistance(t *testing.T) {
	w := NewWorld()
	ix := NewIndexes()
	bus := NewBus()

	observer := w.NewEntity()
	obsPath := NewObjPath("sol", KindPlayerShip, "alice")
	w.GameObjects.Set(observer, GameObject{Path: obsPath})
	w.Transforms.Set(observer, Transform{Pos: Vec3{0, 0, 0}})
	w.Sensors.Set(observer, NewSensor())

	near := w.NewEntity()
	nearPath := NewObjPath("sol", KindPlayerShip, "bob")
	w.GameObjects.Set(near, GameObject{Path: nearPath})
	w.Transforms.Set(near, Transform{Pos: Vec3{1000, 0, 0}})
	w.Signatures.Set(near, Signature{Radius: 10})

	far := w.NewEntity()
	farPath := NewObjPath("sol", KindPlayerShip, "carol")
	w.GameObjects.Set(far, GameObject{Path: farPath})
	w.Transforms.Set(far, Transform{Pos: Vec3{200_000, 0, 0}})
	w.Signatures.Set(far, Signature{Radius: 10})

	static := w.NewEntity()
	staticPath := NewObjPath("sol", KindStation, "hub")
	w.GameObjects.Set(static, GameObject{Path: staticPath})
	w.Transforms.Set(static, Transform{Pos: Vec3{500_000, 0, 0}})

	ix.BookkeepingUpdated(w)

	RescanSensors(w, ix, bus)

	sn := w.Sensors.Get(observer)
	require.Contains(t, sn.VisibleObjs, nearPath)
	require.NotContains(t, sn.VisibleObjs, farPath)
	require.NotContains(t, sn.VisibleObjs, staticPath, "static archetypes are never carried in the visible set")
	require.NotContains(t, sn.LockableObjs, staticPath)

	events := bus.DrainStates()
	require.Len(t, events, 1) // near newly visible; static generates no event; far never entered
}

func TestRescanSensorsEmitsLostSight(t *testing.T) {
	w := NewWorld()
	ix := NewIndexes()
	bus := NewBus()

	observer := w.NewEntity()
	obsPath := NewObjPath("sol", KindPlayerShip, "alice")
	w.GameObjects.Set(observer, GameObject{Path: obsPath})
	w.Transforms.Set(observer, Transform{Pos: Vec3{0, 0, 0}})
	sn := NewSensor()
	otherPath := NewObjPath("sol", KindPlayerShip, "bob")
	sn.VisibleObjs[otherPath] = struct{}{}
	sn.LockableObjs[otherPath] = struct{}{}
	w.Sensors.Set(observer, sn)

	other := w.NewEntity()
	w.GameObjects.Set(other, GameObject{Path: otherPath})
	w.Transforms.Set(other, Transform{Pos: Vec3{200_000, 0, 0}})
	w.Signatures.Set(other, Signature{Radius: 10})

	ix.BookkeepingUpdated(w)
	RescanSensors(w, ix, bus)

	events := bus.DrainStates()
	require.Len(t, events, 1)
	require.Equal(t, EStateLostSight, events[0].Kind)
}
