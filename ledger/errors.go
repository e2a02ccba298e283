package ledger

import "fmt"

// RejectReason classifies an authorization rejection by the ledger service.
type RejectReason int

const (
	RejectGeneric RejectReason = iota
	RejectInsufficientBalance
	RejectInvalidCode
	RejectNotVerified
)

func (r RejectReason) String() string {
	switch r {
	case RejectInsufficientBalance:
		return "insufficient-balance"
	case RejectInvalidCode:
		return "invalid-palm-code"
	case RejectNotVerified:
		return "palm-not-verified"
	default:
		return "generic"
	}
}

// Exact error strings the deployed ledger returns; classification matches on
// them verbatim.
const (
	msgInsufficientBalance = "Insufficient balance"
	msgInvalidPalmCode     = "Invalid palm code"
	msgPalmNotVerified     = "Palm not verified"
)

// RejectionError is a non-2xx ledger response interpreted into the reason
// taxonomy. CurrentBalance and RequiredAmount are populated only for
// insufficient-balance rejections.
type RejectionError struct {
	Status         int
	Reason         RejectReason
	Message        string
	CurrentBalance int64
	RequiredAmount int64
}

func (e *RejectionError) Error() string {
	if e.Reason == RejectInsufficientBalance {
		return fmt.Sprintf("ledger rejected: %s (current %d, required %d)", e.Message, e.CurrentBalance, e.RequiredAmount)
	}
	return "ledger rejected: " + e.Message
}

func classifyReason(message string) RejectReason {
	switch message {
	case msgInsufficientBalance:
		return RejectInsufficientBalance
	case msgInvalidPalmCode:
		return RejectInvalidCode
	case msgPalmNotVerified:
		return RejectNotVerified
	default:
		return RejectGeneric
	}
}
