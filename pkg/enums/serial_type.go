package enums

import "fmt"

// SerialType describes the purpose of a serialized unit. Its two-digit code
// is embedded in serial numbers; it is independent of the parent batch type.
type SerialType string

const (
	SerialTypeUnit   SerialType = "unit"
	SerialTypePack   SerialType = "pack"
	SerialTypeSample SerialType = "sample"
)

var serialTypeCodes = map[SerialType]string{
	SerialTypeUnit:   "01",
	SerialTypePack:   "02",
	SerialTypeSample: "03",
}

// IsValid reports whether the value matches the canonical serial type enum.
func (s SerialType) IsValid() bool {
	_, ok := serialTypeCodes[s]
	return ok
}

func (s SerialType) String() string {
	return string(s)
}

// Code returns the two-digit wire code embedded in serial numbers.
func (s SerialType) Code() string {
	return serialTypeCodes[s]
}

// ParseSerialType converts raw input into SerialType.
func ParseSerialType(value string) (SerialType, error) {
	candidate := SerialType(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid serial type %q", value)
	}
	return candidate, nil
}

// SerialTypeFromCode resolves the enum from its two-digit wire code.
func SerialTypeFromCode(code string) (SerialType, error) {
	for serialType, candidate := range serialTypeCodes {
		if candidate == code {
			return serialType, nil
		}
	}
	return "", fmt.Errorf("unknown serial type code %q", code)
}
