package enums

import "fmt"

// CreditEntryType labels entries in the merged credit history feed.
type CreditEntryType string

const (
	CreditEntryPurchase CreditEntryType = "PURCHASE"
	CreditEntrySpent    CreditEntryType = "SPENT"
)

var validCreditEntryTypes = []CreditEntryType{
	CreditEntryPurchase,
	CreditEntrySpent,
}

// String implements fmt.Stringer.
func (c CreditEntryType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CreditEntryType) IsValid() bool {
	for _, candidate := range validCreditEntryTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCreditEntryType converts raw input into a CreditEntryType.
func ParseCreditEntryType(value string) (CreditEntryType, error) {
	for _, candidate := range validCreditEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit entry type %q", value)
}
