package enums

import "fmt"

// TransactionType maps to the transaction_type enum in Postgres.
type TransactionType string

const (
	TransactionTypeIncoming   TransactionType = "INCOMING"
	TransactionTypeOutgoing   TransactionType = "OUTGOING"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeIncoming,
	TransactionTypeOutgoing,
	TransactionTypeAdjustment,
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// DefaultDirection returns the implied direction; adjustments have none.
func (t TransactionType) DefaultDirection() (TransactionDirection, bool) {
	switch t {
	case TransactionTypeIncoming:
		return TransactionDirectionIn, true
	case TransactionTypeOutgoing:
		return TransactionDirectionOut, true
	default:
		return "", false
	}
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

// TransactionDirection records whether stock entered or left an organization.
type TransactionDirection string

const (
	TransactionDirectionIn  TransactionDirection = "IN"
	TransactionDirectionOut TransactionDirection = "OUT"
)

func (d TransactionDirection) IsValid() bool {
	return d == TransactionDirectionIn || d == TransactionDirectionOut
}

// Opposite flips IN and OUT.
func (d TransactionDirection) Opposite() TransactionDirection {
	if d == TransactionDirectionIn {
		return TransactionDirectionOut
	}
	return TransactionDirectionIn
}

// Sign returns +1 for IN and -1 for OUT.
func (d TransactionDirection) Sign() int {
	if d == TransactionDirectionOut {
		return -1
	}
	return 1
}

// ParseTransactionDirection converts raw input into a TransactionDirection.
func ParseTransactionDirection(value string) (TransactionDirection, error) {
	d := TransactionDirection(value)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid transaction direction %q", value)
	}
	return d, nil
}
