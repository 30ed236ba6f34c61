package enums

import "fmt"

// SolutionType selects whether the processor requires shoppers to hold an account.
type SolutionType string

const (
	// SolutionTypeMark requires a processor account at checkout.
	SolutionTypeMark SolutionType = "Mark"
	// SolutionTypeSole allows guest checkout on the hosted page.
	SolutionTypeSole SolutionType = "Sole"
)

var validSolutionTypes = []SolutionType{
	SolutionTypeMark,
	SolutionTypeSole,
}

// String implements fmt.Stringer.
func (s SolutionType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SolutionType.
func (s SolutionType) IsValid() bool {
	for _, candidate := range validSolutionTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSolutionType converts raw input into a SolutionType.
func ParseSolutionType(value string) (SolutionType, error) {
	for _, candidate := range validSolutionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid solution type %q", value)
}
