package production

import (
	"github.com/fibc/backend/internal/domain/numbering"
	"github.com/fibc/backend/internal/domain/plant"
)

// UnitStatus is the lifecycle status of a material unit
type UnitStatus string

const (
	// StatusActive means the unit is on a machine and being produced or processed
	StatusActive UnitStatus = "active"
	// StatusCompleted means production finished and the unit has not moved yet
	StatusCompleted UnitStatus = "completed"
	// StatusAvailable means the unit is ready for downstream use at its location
	StatusAvailable UnitStatus = "available"
	// StatusUsed means the unit has been fully consumed downstream
	StatusUsed UnitStatus = "used"
)

// IsValid returns true if the status is known
func (s UnitStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusAvailable, StatusUsed:
		return true
	}
	return false
}

// IsTransferable returns true if a unit in this status may leave its location
func (s UnitStatus) IsTransferable() bool {
	return s == StatusCompleted || s == StatusAvailable
}

// UnitKind is the class of material unit, fixed by the department that produced it
type UnitKind string

const (
	KindYarnBatch     UnitKind = "yarn_batch"
	KindFabricRoll    UnitKind = "fabric_roll"
	KindLaminatedRoll UnitKind = "laminated_roll"
	KindCutBatch      UnitKind = "cut_batch"
	KindSewnBatch     UnitKind = "sewn_batch"
)

type kindInfo struct {
	origin plant.Department
	prefix string
}

var kinds = map[UnitKind]kindInfo{
	KindYarnBatch:     {plant.DepartmentExtrusion, numbering.PrefixExtrusion},
	KindFabricRoll:    {plant.DepartmentWeaving, numbering.PrefixWeaving},
	KindLaminatedRoll: {plant.DepartmentLamination, numbering.PrefixLamination},
	KindCutBatch:      {plant.DepartmentCutting, numbering.PrefixCutting},
	KindSewnBatch:     {plant.DepartmentSewing, numbering.PrefixSewing},
}

// IsValid returns true if the kind is known
func (k UnitKind) IsValid() bool {
	_, ok := kinds[k]
	return ok
}

// Origin returns the department that produces this kind of unit
func (k UnitKind) Origin() plant.Department {
	return kinds[k].origin
}

// NumberPrefix returns the document prefix used for unit numbers of this kind
func (k UnitKind) NumberPrefix() string {
	return kinds[k].prefix
}

// KindFor returns the kind of unit a department produces
func KindFor(d plant.Department) (UnitKind, bool) {
	for k, info := range kinds {
		if info.origin == d {
			return k, true
		}
	}
	return "", false
}

// State is a (status, location) pair
type State struct {
	Status   UnitStatus
	Location plant.Department
}

// StateSet is a set of legal states
type StateSet map[State]struct{}

// Allows reports whether the pair is a member of the set
func (s StateSet) Allows(status UnitStatus, location plant.Department) bool {
	_, ok := s[State{Status: status, Location: location}]
	return ok
}

var legalStates = func() map[UnitKind]StateSet {
	out := make(map[UnitKind]StateSet, len(kinds))
	for k := range kinds {
		out[k] = buildStates(k.Origin())
	}
	return out
}()

// buildStates derives the legal states of a kind from its origin and the
// departments reachable from it:
//
//	active, completed: origin and reachable processing departments
//	available:         origin and every reachable department
//	used:              every reachable department
func buildStates(origin plant.Department) StateSet {
	set := StateSet{}
	add := func(s UnitStatus, d plant.Department) { set[State{Status: s, Location: d}] = struct{}{} }

	add(StatusActive, origin)
	add(StatusCompleted, origin)
	add(StatusAvailable, origin)
	for _, d := range plant.Reachable(origin) {
		if d != plant.DepartmentWarehouse {
			add(StatusActive, d)
			add(StatusCompleted, d)
		}
		add(StatusAvailable, d)
		add(StatusUsed, d)
	}
	return set
}

// LegalStates returns the enumerated legal states for a kind
func LegalStates(k UnitKind) StateSet {
	return legalStates[k]
}
