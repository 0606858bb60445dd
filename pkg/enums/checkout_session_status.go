package enums

import "fmt"

// CheckoutSessionStatus mirrors the lifecycle of a hosted checkout session.
type CheckoutSessionStatus string

const (
	CheckoutSessionStatusOpen      CheckoutSessionStatus = "open"
	CheckoutSessionStatusCompleted CheckoutSessionStatus = "completed"
	CheckoutSessionStatusExpired   CheckoutSessionStatus = "expired"
)

var validCheckoutSessionStatuses = []CheckoutSessionStatus{
	CheckoutSessionStatusOpen,
	CheckoutSessionStatusCompleted,
	CheckoutSessionStatusExpired,
}

func (s CheckoutSessionStatus) String() string {
	return string(s)
}

func (s CheckoutSessionStatus) IsValid() bool {
	for _, candidate := range validCheckoutSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseCheckoutSessionStatus(value string) (CheckoutSessionStatus, error) {
	for _, candidate := range validCheckoutSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout session status %q", value)
}
