package enums

import "fmt"

// SequenceType distinguishes the two serial-number counters a site maintains.
type SequenceType string

const (
	// SequenceTypeUnit is scoped to (site, batch type, production date, batch
	// sequence) and feeds the unit ordinal inside full serial numbers.
	SequenceTypeUnit SequenceType = "unit"
	// SequenceTypeDaily is scoped to (site, production date) and feeds the
	// short barcode form.
	SequenceTypeDaily SequenceType = "daily"
)

var validSequenceTypes = []SequenceType{
	SequenceTypeUnit,
	SequenceTypeDaily,
}

// IsValid reports whether the value matches the canonical sequence type enum.
func (s SequenceType) IsValid() bool {
	for _, candidate := range validSequenceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s SequenceType) String() string {
	return string(s)
}

// ParseSequenceType converts raw input into SequenceType.
func ParseSequenceType(value string) (SequenceType, error) {
	for _, candidate := range validSequenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sequence type %q", value)
}
