package enums

import "fmt"

// BatchType classifies why a batch exists. Each type owns a fixed two-digit
// code embedded in batch numbers.
type BatchType string

const (
	BatchTypeProduction BatchType = "production"
	BatchTypeGRV        BatchType = "grv"
	BatchTypeRepack     BatchType = "repack"
	BatchTypeSample     BatchType = "sample"
	BatchTypeQuarantine BatchType = "quarantine"
	BatchTypeResearch   BatchType = "research"
)

var batchTypeCodes = map[BatchType]string{
	BatchTypeProduction: "01",
	BatchTypeGRV:        "02",
	BatchTypeRepack:     "03",
	BatchTypeSample:     "04",
	BatchTypeQuarantine: "05",
	BatchTypeResearch:   "06",
}

// IsValid reports whether the value matches the canonical batch type enum.
func (b BatchType) IsValid() bool {
	_, ok := batchTypeCodes[b]
	return ok
}

func (b BatchType) String() string {
	return string(b)
}

// Code returns the two-digit wire code embedded in identifiers.
func (b BatchType) Code() string {
	return batchTypeCodes[b]
}

// ParseBatchType converts raw input into BatchType.
func ParseBatchType(value string) (BatchType, error) {
	candidate := BatchType(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid batch type %q", value)
	}
	return candidate, nil
}

// BatchTypeFromCode resolves the enum from its two-digit wire code.
func BatchTypeFromCode(code string) (BatchType, error) {
	for batchType, candidate := range batchTypeCodes {
		if candidate == code {
			return batchType, nil
		}
	}
	return "", fmt.Errorf("unknown batch type code %q", code)
}
