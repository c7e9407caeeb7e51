// Package geometry picks connection anchor sides from node positions.
package geometry

import (
	"fmt"
	"math"
	"strings"

	"github.com/dukex/opsflow/pkg/models"
)

// HandlePair is the anchor side used at each end of a connection.
type HandlePair struct {
	Source models.Handle `json:"source"`
	Target models.Handle `json:"target"`
}

// DefaultHandles is used when both endpoints share the same position (including self-loops).
var DefaultHandles = HandlePair{Source: models.HandleRight, Target: models.HandleLeft}

// SelectHandles chooses the facing sides of two nodes along the dominant axis of displacement.
// Horizontal wins only when |dx| is strictly greater than |dy|.
func SelectHandles(source, target models.Position) HandlePair {
	dx := target.X - source.X
	dy := target.Y - source.Y

	if dx == 0 && dy == 0 {
		return DefaultHandles
	}

	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return HandlePair{Source: models.HandleRight, Target: models.HandleLeft}
		}

		return HandlePair{Source: models.HandleLeft, Target: models.HandleRight}
	}

	if dy > 0 {
		return HandlePair{Source: models.HandleBottom, Target: models.HandleTop}
	}

	return HandlePair{Source: models.HandleTop, Target: models.HandleBottom}
}

// Opposite returns the side facing h.
func Opposite(h models.Handle) models.Handle {
	switch h {
	case models.HandleTop:
		return models.HandleBottom
	case models.HandleBottom:
		return models.HandleTop
	case models.HandleLeft:
		return models.HandleRight
	case models.HandleRight:
		return models.HandleLeft
	default:
		return h
	}
}

// ParseHandle accepts a bare side ("left") or a render handle id ("left-target").
func ParseHandle(s string) (models.Handle, error) {
	side, _, _ := strings.Cut(s, "-")

	h := models.Handle(side)
	if !h.IsValid() {
		return "", fmt.Errorf("unknown handle %q", s)
	}

	return h, nil
}
