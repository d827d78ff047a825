package ledger

import "errors"

var (
	ErrUnauthorized          = errors.New("caller lacks required role")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotFound              = errors.New("not found")
	ErrAlreadyMinted         = errors.New("already minted")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidAddress        = errors.New("invalid address")

	// ErrPaymentRequired wraps the token error when a replay fee cannot be collected.
	ErrPaymentRequired = errors.New("replay fee required")
)

// Stable error codes surfaced by the transports.
const (
	CodeOK                    = "ok"
	CodeUnauthorized          = "unauthorized"
	CodeInsufficientBalance   = "insufficient_balance"
	CodeInsufficientAllowance = "insufficient_allowance"
	CodeNotFound              = "not_found"
	CodeAlreadyMinted         = "already_minted"
	CodeInvalidAmount         = "invalid_amount"
	CodeInvalidAddress        = "invalid_address"
	CodePaymentRequired       = "payment_required"
	CodeInternal              = "internal"
)

// ErrorCode maps an error to its stable code. Token errors win over
// ErrPaymentRequired so callers learn whether to top up or approve more.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrInsufficientAllowance):
		return CodeInsufficientAllowance
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrPaymentRequired):
		return CodePaymentRequired
	case errors.Is(err, ErrAlreadyMinted):
		return CodeAlreadyMinted
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidAddress):
		return CodeInvalidAddress
	default:
		return CodeInternal
	}
}
