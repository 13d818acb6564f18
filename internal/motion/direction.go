package motion

import (
	"fmt"
	"strings"
)

// Direction is the single request a driver may pass per tick. The driver
// collapses simultaneous raw inputs into at most one of these.
type Direction int

const (
	None Direction = iota
	Forward
	Backward
	TurnLeft
	TurnRight
	Reset
)

var directionNames = [...]string{"none", "forward", "backward", "left", "right", "reset"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// Letter is the one-letter script form.
func (d Direction) Letter() string {
	switch d {
	case Forward:
		return "F"
	case Backward:
		return "B"
	case TurnLeft:
		return "L"
	case TurnRight:
		return "R"
	case Reset:
		return "X"
	}
	return "-"
}

func (d Direction) IsDrive() bool { return d == Forward || d == Backward }
func (d Direction) IsTurn() bool  { return d == TurnLeft || d == TurnRight }

// ParseDirection accepts full names and the one-letter script forms
// F, B, L, R, X (reset) and "-" (none).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "-", "none":
		return None, nil
	case "f", "forward":
		return Forward, nil
	case "b", "backward":
		return Backward, nil
	case "l", "left":
		return TurnLeft, nil
	case "r", "right":
		return TurnRight, nil
	case "x", "reset":
		return Reset, nil
	}
	return None, fmt.Errorf("motion: unknown direction %q", s)
}
