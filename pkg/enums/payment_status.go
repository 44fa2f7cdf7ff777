package enums

import "strings"

// PaymentStatus mirrors the status strings Cashfree reports for a payment
// attempt. The set is open ended since the provider adds statuses over time,
// so unknown values are stored verbatim for audit and simply never fulfill.
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "PENDING"
	PaymentStatusSuccess     PaymentStatus = "SUCCESS"
	PaymentStatusPaid        PaymentStatus = "PAID"
	PaymentStatusFailed      PaymentStatus = "FAILED"
	PaymentStatusVerified    PaymentStatus = "VERIFIED"
	PaymentStatusUserDropped PaymentStatus = "USER_DROPPED"
	PaymentStatusCancelled   PaymentStatus = "CANCELLED"
)

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsSuccess reports whether the status counts as a completed payment. Only
// these statuses ever trigger fulfillment.
func (p PaymentStatus) IsSuccess() bool {
	switch p {
	case PaymentStatusSuccess, PaymentStatusPaid:
		return true
	default:
		return false
	}
}

// NormalizePaymentStatus uppercases raw provider input into a PaymentStatus.
func NormalizePaymentStatus(value string) PaymentStatus {
	return PaymentStatus(strings.ToUpper(strings.TrimSpace(value)))
}
