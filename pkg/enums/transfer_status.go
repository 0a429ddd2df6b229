package enums

import "fmt"

// TransferStatus tracks the lifecycle of an inter-site stock transfer.
type TransferStatus string

const (
	TransferStatusDraft     TransferStatus = "draft"
	TransferStatusApproved  TransferStatus = "approved"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusCancelled TransferStatus = "cancelled"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusDraft,
	TransferStatusApproved,
	TransferStatusCompleted,
	TransferStatusCancelled,
}

var transferStatusTransitions = map[TransferStatus][]TransferStatus{
	TransferStatusDraft:     {TransferStatusApproved, TransferStatusCancelled},
	TransferStatusApproved:  {TransferStatusCompleted, TransferStatusCancelled},
	TransferStatusCompleted: {},
	TransferStatusCancelled: {},
}

// IsValid reports whether the value matches the canonical transfer status enum.
func (s TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s TransferStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the transfer lifecycle allows the move.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	for _, candidate := range transferStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseTransferStatus converts raw input into TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}
