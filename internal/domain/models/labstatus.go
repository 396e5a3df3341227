package models

import "time"

// LabStatusKey is the fixed document key of the singleton lab status
// aggregate in the lab_status collection.
const LabStatusKey = "current"

// LabStatus is the shared occupancy aggregate. Present holds the hex
// ObjectIDs of members currently in the lab; membership is keyed by id
// only, so renaming a member cannot strand a ghost entry in the array.
//
// IsLabOpen does not flip to false automatically when Present empties:
// the last member out must confirm the physical-security checklist first
// (ConfirmClosure), so the flag lags the empty set on purpose.
type LabStatus struct {
	ID           string    `bson:"_id" json:"id"`
	IsLabOpen    bool      `bson:"is_lab_open" json:"is_lab_open"`
	Present      []string  `bson:"present" json:"present"`
	LastActivity time.Time `bson:"last_activity" json:"last_activity"`
}

// Occupancy returns the number of members currently present.
func (s *LabStatus) Occupancy() int {
	return len(s.Present)
}
