package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"palmpay/ledger"
	"palmpay/observability/logging"
)

// Method is how the palm code was obtained.
type Method int

const (
	MethodManual Method = iota
	MethodScan
)

func (m Method) String() string {
	if m == MethodScan {
		return "scan"
	}
	return "manual"
}

// OutcomeKind is the terminal judgment of one authorization attempt.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeApproved
	OutcomeInsufficientBalance
	OutcomeInvalidCode
	OutcomeNotVerified
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApproved:
		return "approved"
	case OutcomeInsufficientBalance:
		return "insufficient-balance"
	case OutcomeInvalidCode:
		return "invalid-code"
	case OutcomeNotVerified:
		return "not-verified"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Outcome carries everything the confirmation or failure view renders.
type Outcome struct {
	Kind    OutcomeKind
	OrderID string
	Amount  int64
	Items   int
	// NewBalance is the post-top-up balance as the ledger renders it.
	NewBalance string
	// CurrentBalance and RequiredAmount are set only for
	// insufficient-balance outcomes and are relayed verbatim.
	CurrentBalance int64
	RequiredAmount int64
	Message        string
}

// Prompt is the operator-facing text for the outcome.
func (o Outcome) Prompt() string {
	switch o.Kind {
	case OutcomeApproved:
		if o.OrderID != "" {
			return fmt.Sprintf("Approved: order %s, amount %d, %d items", o.OrderID, o.Amount, o.Items)
		}
		return fmt.Sprintf("Approved: amount %d", o.Amount)
	case OutcomeInsufficientBalance:
		return fmt.Sprintf("Insufficient balance. Current: %d, Required: %d", o.CurrentBalance, o.RequiredAmount)
	case OutcomeInvalidCode:
		return "Palm verification failed. Please check your palm code or try scanning again."
	case OutcomeNotVerified:
		return "Your palm is not verified in the system. Please register your palm first."
	case OutcomeFailed:
		if o.Message != "" {
			return o.Message
		}
		return "Order failed. Please try again."
	default:
		return "Processing..."
	}
}

// Attempt is one checkout submission: exactly one code, one amount, one
// terminal outcome. Attempts are rendered and discarded, never persisted.
type Attempt struct {
	Method  Method
	Code    string
	Amount  int64
	Outcome Outcome
}

var (
	ErrEmptyCode          = errors.New("checkout: palm code required")
	ErrEmptyCart          = errors.New("checkout: cart is empty")
	ErrSubmissionInFlight = errors.New("checkout: submission already in flight")
)

// TopupBounds is the inclusive amount range a top-up must fall in.
type TopupBounds struct {
	Min int64
	Max int64
}

// DefaultTopupBounds matches the deployed limit of 1–1000 currency units.
var DefaultTopupBounds = TopupBounds{Min: 1, Max: 1000}

// AmountError reports a top-up amount outside the bounds. It is raised
// locally, before any network call.
type AmountError struct {
	Amount int64
	Bounds TopupBounds
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("checkout: enter a valid amount between %d and %d (got %d)", e.Bounds.Min, e.Bounds.Max, e.Amount)
}

// LedgerAPI is the slice of the ledger client the authorizer needs.
// *ledger.Client satisfies it.
type LedgerAPI interface {
	CreateOrder(ctx context.Context, params ledger.OrderParams, palmCode string) (*ledger.OrderResult, error)
	Topup(ctx context.Context, amount int64, palmCode string) (*ledger.TopupResult, error)
}

// Authorizer submits palm-authorized purchases and top-ups. While a
// submission is in flight, resubmission is refused; no outcome ever triggers
// an automatic retry.
type Authorizer struct {
	ledger LedgerAPI
	bounds TopupBounds
	logger *slog.Logger

	mu       sync.Mutex
	inFlight bool
}

// AuthorizerOption customizes an Authorizer.
type AuthorizerOption func(*Authorizer)

// WithTopupBounds overrides the top-up amount bounds.
func WithTopupBounds(b TopupBounds) AuthorizerOption {
	return func(a *Authorizer) { a.bounds = b }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) AuthorizerOption {
	return func(a *Authorizer) { a.logger = logger }
}

func NewAuthorizer(api LedgerAPI, opts ...AuthorizerOption) *Authorizer {
	if api == nil {
		panic("checkout: ledger api required")
	}
	a := &Authorizer{
		ledger: api,
		bounds: DefaultTopupBounds,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authorizer) begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight {
		return ErrSubmissionInFlight
	}
	a.inFlight = true
	return nil
}

func (a *Authorizer) end() {
	a.mu.Lock()
	a.inFlight = false
	a.mu.Unlock()
}

// Purchase submits the cart authorized by the palm code. Local precondition
// failures (missing code, empty cart, in-flight submission) return an error
// and no attempt; otherwise the returned attempt carries exactly one terminal
// outcome and the cart is cleared only on approval.
func (a *Authorizer) Purchase(ctx context.Context, cart *Cart, method Method, code string) (*Attempt, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	if cart == nil || cart.Empty() {
		return nil, ErrEmptyCart
	}
	if err := a.begin(); err != nil {
		return nil, err
	}
	defer a.end()

	attempt := &Attempt{Method: method, Code: code, Amount: cart.Total()}
	params := ledger.OrderParams{
		Amount:      cart.Total(),
		Description: fmt.Sprintf("Store purchase of %d items", cart.Len()),
		Items:       cart.Items(),
	}

	res, err := a.ledger.CreateOrder(ctx, params, code)
	if err != nil {
		attempt.Outcome = interpretFailure(err)
		a.logger.Info("order rejected",
			slog.String("outcome", attempt.Outcome.Kind.String()),
			slog.String("method", method.String()),
			logging.MaskCredential("palm_code", code))
		return attempt, nil
	}

	attempt.Outcome = Outcome{
		Kind:    OutcomeApproved,
		OrderID: res.Order.ID,
		Amount:  cart.Total(),
		Items:   cart.Len(),
	}
	cart.Clear()
	a.logger.Info("order approved",
		slog.String("order_id", res.Order.ID),
		slog.Int64("amount", attempt.Amount),
		slog.String("method", method.String()))
	return attempt, nil
}

// TopUp submits a balance increase authorized by the palm code. The amount
// must fall inside the inclusive bounds; violations are rejected locally
// before any network call.
func (a *Authorizer) TopUp(ctx context.Context, amount int64, method Method, code string) (*Attempt, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	if amount < a.bounds.Min || amount > a.bounds.Max {
		return nil, &AmountError{Amount: amount, Bounds: a.bounds}
	}
	if err := a.begin(); err != nil {
		return nil, err
	}
	defer a.end()

	attempt := &Attempt{Method: method, Code: code, Amount: amount}

	res, err := a.ledger.Topup(ctx, amount, code)
	if err != nil {
		attempt.Outcome = interpretFailure(err)
		a.logger.Info("topup rejected",
			slog.String("outcome", attempt.Outcome.Kind.String()),
			logging.MaskCredential("palm_code", code))
		return attempt, nil
	}

	attempt.Outcome = Outcome{
		Kind:       OutcomeApproved,
		Amount:     amount,
		NewBalance: res.User.Amount,
	}
	a.logger.Info("topup approved", slog.Int64("amount", amount))
	return attempt, nil
}

// interpretFailure maps a ledger error onto the outcome taxonomy. Unknown
// rejections and transport failures both land on OutcomeFailed with a generic
// message; the operator re-attempts manually.
func interpretFailure(err error) Outcome {
	var rej *ledger.RejectionError
	if errors.As(err, &rej) {
		switch rej.Reason {
		case ledger.RejectInsufficientBalance:
			return Outcome{
				Kind:           OutcomeInsufficientBalance,
				CurrentBalance: rej.CurrentBalance,
				RequiredAmount: rej.RequiredAmount,
				Message:        rej.Message,
			}
		case ledger.RejectInvalidCode:
			return Outcome{Kind: OutcomeInvalidCode, Message: rej.Message}
		case ledger.RejectNotVerified:
			return Outcome{Kind: OutcomeNotVerified, Message: rej.Message}
		default:
			return Outcome{Kind: OutcomeFailed, Message: rej.Message}
		}
	}
	return Outcome{Kind: OutcomeFailed}
}
