package models

import (
	"errors"
	"fmt"
)

// ErrInvalidQuadrant is returned when a quadrant id outside 1..4 is used.
var ErrInvalidQuadrant = errors.New("invalid quadrant")

// Quadrant is one of the four Eisenhower matrix cells.
type Quadrant int

const (
	QuadrantDo        Quadrant = 1 // important, urgent
	QuadrantSchedule  Quadrant = 2 // important, not urgent
	QuadrantDelegate  Quadrant = 3 // not important, urgent
	QuadrantEliminate Quadrant = 4 // neither
)

// Quadrants lists every quadrant in display order.
var Quadrants = []Quadrant{QuadrantDo, QuadrantSchedule, QuadrantDelegate, QuadrantEliminate}

// Classify maps the important/urgent flag pair to its quadrant. The SQL
// generated column in embed/sql uses the same table and is the stored value.
func Classify(important, urgent bool) Quadrant {
	switch {
	case important && urgent:
		return QuadrantDo
	case important:
		return QuadrantSchedule
	case urgent:
		return QuadrantDelegate
	default:
		return QuadrantEliminate
	}
}

// FlagsFor is the inverse of Classify, used when a task is created by
// picking a quadrant.
func FlagsFor(q Quadrant) (important, urgent bool, err error) {
	switch q {
	case QuadrantDo:
		return true, true, nil
	case QuadrantSchedule:
		return true, false, nil
	case QuadrantDelegate:
		return false, true, nil
	case QuadrantEliminate:
		return false, false, nil
	}
	return false, false, fmt.Errorf("%w: %d", ErrInvalidQuadrant, int(q))
}

func (q Quadrant) Valid() bool {
	return q >= QuadrantDo && q <= QuadrantEliminate
}

func (q Quadrant) String() string {
	switch q {
	case QuadrantDo:
		return "do"
	case QuadrantSchedule:
		return "schedule"
	case QuadrantDelegate:
		return "delegate"
	case QuadrantEliminate:
		return "eliminate"
	}
	return fmt.Sprintf("quadrant(%d)", int(q))
}
