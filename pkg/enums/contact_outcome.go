package enums

import "fmt"

// ContactOutcome records the result of a single confirmation call.
type ContactOutcome string

const (
	ContactOutcomeAnswered    ContactOutcome = "answered"
	ContactOutcomeNoAnswer    ContactOutcome = "no_answer"
	ContactOutcomeWrongNumber ContactOutcome = "wrong_number"
)

var validContactOutcomes = []ContactOutcome{
	ContactOutcomeAnswered,
	ContactOutcomeNoAnswer,
	ContactOutcomeWrongNumber,
}

// String implements fmt.Stringer.
func (c ContactOutcome) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContactOutcome.
func (c ContactOutcome) IsValid() bool {
	for _, candidate := range validContactOutcomes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContactOutcome converts raw input into a ContactOutcome.
func ParseContactOutcome(value string) (ContactOutcome, error) {
	for _, candidate := range validContactOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contact outcome %q", value)
}
