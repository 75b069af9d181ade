// Package models contains the request, result and catalogue types shared by
// the API, the simulation controller and the stores.
package models

import (
	"fmt"

	"github.com/radioastro101/backend/internal/interferometry"
)

// AntennaTable is a parsed antenna position file. Positions are ECEF
// metres; the index of a position is the antenna ID.
type AntennaTable struct {
	Columns   []string              `json:"columns"`
	Names     []string              `json:"names,omitempty"`
	Positions []interferometry.Vec3 `json:"positions"`
}

// Len returns the number of antennas.
func (t *AntennaTable) Len() int {
	return len(t.Positions)
}

// ParseError represents an error encountered on one line of an input file.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return e.Reason
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}
