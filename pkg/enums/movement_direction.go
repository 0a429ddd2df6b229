package enums

import "fmt"

// MovementDirection encodes whether a ledger entry adds or removes stock.
type MovementDirection string

const (
	MovementDirectionIn  MovementDirection = "in"
	MovementDirectionOut MovementDirection = "out"
)

var validMovementDirections = []MovementDirection{
	MovementDirectionIn,
	MovementDirectionOut,
}

// IsValid reports whether the value matches the canonical direction enum.
func (d MovementDirection) IsValid() bool {
	for _, candidate := range validMovementDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

func (d MovementDirection) String() string {
	return string(d)
}

// ParseMovementDirection converts raw input into MovementDirection.
func ParseMovementDirection(value string) (MovementDirection, error) {
	for _, candidate := range validMovementDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement direction %q", value)
}
