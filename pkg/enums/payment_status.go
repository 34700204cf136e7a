package enums

import "fmt"

// PaymentStatus records whether the buyer's funds were captured. Checkout
// debits the wallet in the same transaction that creates the order, so
// orders are written as paid; pending exists for rows imported from
// external payment flows.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid:
		return true
	}
	return false
}

// Captured reports whether the funds backing the order have been taken.
func (p PaymentStatus) Captured() bool {
	return p == PaymentStatusPaid
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	if p := PaymentStatus(value); p.IsValid() {
		return p, nil
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
