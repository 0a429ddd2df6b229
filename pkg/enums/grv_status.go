package enums

import "fmt"

// GRVStatus tracks the lifecycle of a goods received voucher.
type GRVStatus string

const (
	GRVStatusDraft     GRVStatus = "draft"
	GRVStatusApproved  GRVStatus = "approved"
	GRVStatusCancelled GRVStatus = "cancelled"
)

var validGRVStatuses = []GRVStatus{
	GRVStatusDraft,
	GRVStatusApproved,
	GRVStatusCancelled,
}

var grvStatusTransitions = map[GRVStatus][]GRVStatus{
	GRVStatusDraft:     {GRVStatusApproved, GRVStatusCancelled},
	GRVStatusApproved:  {GRVStatusCancelled},
	GRVStatusCancelled: {},
}

// IsValid reports whether the value matches the canonical GRV status enum.
func (s GRVStatus) IsValid() bool {
	for _, candidate := range validGRVStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s GRVStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the GRV lifecycle allows the move.
func (s GRVStatus) CanTransitionTo(next GRVStatus) bool {
	for _, candidate := range grvStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseGRVStatus converts raw input into GRVStatus.
func ParseGRVStatus(value string) (GRVStatus, error) {
	for _, candidate := range validGRVStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid grv status %q", value)
}
