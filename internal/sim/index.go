/*
Package sim
File: index.go
Description:
    The two derived indexes: path→entity and system→entity-set. Both
    are rebuilt incrementally every tick from GameObject change events
    (Bookkeeping-updated) and the world's removal log
    (Bookkeeping-removed); never mutated anywhere else. Per the
    ordering guarantee, a command that references a path changed
    earlier in the same tick still observes the index's pre-change
    value until Bookkeeping runs.
*/

package sim

// Indexes holds both derived lookup tables. A zero value is usable; use
// NewIndexes for clarity at call sites.
type Indexes struct {
	pathToEntity map[ObjPath]EntityID
	bySystem     map[string]map[EntityID]struct{}
}

func NewIndexes() *Indexes {
	return &Indexes{
		pathToEntity: make(map[ObjPath]EntityID),
		bySystem:     make(map[string]map[EntityID]struct{}),
	}
}

// Lookup resolves a path to its entity, per the component invariant that
// path-entity indexing is a function of a live GameObject.
func (ix *Indexes) Lookup(p ObjPath) (EntityID, bool) {
	e, ok := ix.pathToEntity[p]
	return e, ok
}

// EntitiesInSystem returns the live entity set for a system. The
// returned map must not be mutated by the caller.
func (ix *Indexes) EntitiesInSystem(sys string) map[EntityID]struct{} {
	return ix.bySystem[sys]
}

func (ix *Indexes) insert(e EntityID, p ObjPath) {
	if ix.pathToEntity == nil {
		ix.pathToEntity = make(map[ObjPath]EntityID)
	}
	if ix.bySystem == nil {
		ix.bySystem = make(map[string]map[EntityID]struct{})
	}
	ix.pathToEntity[p] = e
	set, ok := ix.bySystem[p.Sys]
	if !ok {
		set = make(map[EntityID]struct{})
		ix.bySystem[p.Sys] = set
	}
	set[e] = struct{}{}
}

func (ix *Indexes) removePath(e EntityID, p ObjPath) {
	if cur, ok := ix.pathToEntity[p]; ok && cur == e {
		delete(ix.pathToEntity, p)
	}
	if set, ok := ix.bySystem[p.Sys]; ok {
		delete(set, e)
		if len(set) == 0 {
			delete(ix.bySystem, p.Sys)
		}
	}
}

// BookkeepingUpdated refreshes the indexes for every GameObject changed
// this tick. A changed GameObject may have moved
// systems (e.g. Jump rewrites Path.Sys), so the old path/system
// membership for that entity is scrubbed before reinserting.
func (ix *Indexes) BookkeepingUpdated(w *World) {
	for e := range w.GameObjects.Modified() {
		go_ := w.GameObjects.Get(e)
		if go_ == nil {
			continue
		}
		ix.scrubStale(e, go_.Path)
		ix.insert(e, go_.Path)
	}
}

// scrubStale removes any index entry that still names e under a path
// other than keep — needed because BookkeepingUpdated only knows the
// entity's *current* path, not what it used to be keyed under.
func (ix *Indexes) scrubStale(e EntityID, keep ObjPath) {
	for p, owner := range ix.pathToEntity {
		if owner == e && p != keep {
			delete(ix.pathToEntity, p)
		}
	}
	for sys, set := range ix.bySystem {
		if sys == keep.Sys {
			continue
		}
		if _, ok := set[e]; ok {
			delete(set, e)
			if len(set) == 0 {
				delete(ix.bySystem, sys)
			}
		}
	}
}

// BookkeepingRemoved drops every entity whose GameObject was removed
// this tick, using the world's removal log rather than the (now empty)
// GameObjects column.
func (ix *Indexes) BookkeepingRemoved(w *World) {
	for _, r := range w.DrainRemoved() {
		ix.removePath(r.Entity, r.Path)
	}
}
