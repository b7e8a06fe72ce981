// Package clearance defines the ordered staff clearance hierarchy used by
// every authorization check in WardWatch.
package clearance

import (
	"fmt"
	"strings"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// Level is a staff clearance tier. Levels are totally ordered by declaration
// order: L1 < L2 < L3 < L4.
type Level string

const (
	L1 Level = "L1"
	L2 Level = "L2"
	L3 Level = "L3"
	L4 Level = "L4"
)

// Levels lists every valid level in ascending order.
var Levels = []Level{L1, L2, L3, L4}

// Rank returns the position of l in the hierarchy (1 for L1 through 4 for L4).
// Unknown levels rank 0 and therefore satisfy no requirement.
func Rank(l Level) int {
	for i, v := range Levels {
		if v == l {
			return i + 1
		}
	}
	return 0
}

// AtLeast reports whether caller meets or exceeds required.
func AtLeast(caller, required Level) bool {
	rc := Rank(caller)
	return rc > 0 && rc >= Rank(required)
}

// Valid reports whether l is one of the declared levels.
func (l Level) Valid() bool {
	return Rank(l) > 0
}

func (l Level) String() string {
	return string(l)
}

// ParseLevel converts a string such as "l3" or "L3" into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown clearance level %q", models.ErrInvalidInput, s)
	}
	return l, nil
}
