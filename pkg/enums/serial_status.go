package enums

import "fmt"

// SerialStatus tracks physical custody of a serialized unit.
type SerialStatus string

const (
	SerialStatusCreated   SerialStatus = "created"
	SerialStatusAssigned  SerialStatus = "assigned"
	SerialStatusSold      SerialStatus = "sold"
	SerialStatusDestroyed SerialStatus = "destroyed"
)

var validSerialStatuses = []SerialStatus{
	SerialStatusCreated,
	SerialStatusAssigned,
	SerialStatusSold,
	SerialStatusDestroyed,
}

// serialStatusTransitions is the closed custody state machine.
var serialStatusTransitions = map[SerialStatus][]SerialStatus{
	SerialStatusCreated:   {SerialStatusAssigned, SerialStatusDestroyed},
	SerialStatusAssigned:  {SerialStatusSold, SerialStatusDestroyed},
	SerialStatusSold:      {},
	SerialStatusDestroyed: {},
}

// IsValid reports whether the value matches the canonical status enum.
func (s SerialStatus) IsValid() bool {
	for _, candidate := range validSerialStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s SerialStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the custody state machine allows the move.
func (s SerialStatus) CanTransitionTo(next SerialStatus) bool {
	for _, candidate := range serialStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSerialStatus converts raw input into SerialStatus.
func ParseSerialStatus(value string) (SerialStatus, error) {
	for _, candidate := range validSerialStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid serial status %q", value)
}
