// Package checkout hands the cart over to the hosted payment page and turns
// the processor's return redirect into a confirmed order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dyluth/shop/internal/session"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/rs/zerolog"
)

// DefaultFallbackBaseURL builds a hosted page URL from a bare session id.
const DefaultFallbackBaseURL = "https://checkout.stripe.com/c/pay/"

// CartRoute is where error states point the user.
const CartRoute = "cart"

// Remote is the subset of the storefront client the orchestrator needs.
type Remote interface {
	CreateCheckoutSession(ctx context.Context) (*storefront.CheckoutSession, error)
	ConfirmPayment(ctx context.Context, sessionID string) (*storefront.Order, error)
}

// Gate reports whether a session is authenticated.
type Gate interface {
	Require(ctx context.Context) (storefront.Profile, error)
}

// CartView exposes the cached cart without a network call.
type CartView interface {
	Peek() (storefront.Cart, bool)
}

// Invalidator is a cache refreshed after a confirmed payment.
type Invalidator interface {
	Invalidate()
}

// Opener sends the user to the hosted payment page.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Redirect describes where Begin sent the user.
type Redirect struct {
	URL       string
	SessionID string
	// Degraded is set when the backend omitted the hosted URL and it was
	// built from the session id instead.
	Degraded bool
}

// ResultState is the outcome shown after returning from the processor.
type ResultState int

const (
	ResultSuccess ResultState = iota
	ResultError
	ResultCancelled
)

func (s ResultState) String() string {
	switch s {
	case ResultSuccess:
		return "success"
	case ResultError:
		return "error"
	case ResultCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("result(%d)", int(s))
	}
}

// Result is the confirmation outcome. Error and Cancelled carry BackTo so
// the view can offer a way back to the cart.
type Result struct {
	State  ResultState
	Order  *storefront.Order
	Err    error
	BackTo string
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Remote          Remote
	Gate            Gate
	Cart            CartView
	Opener          Opener
	Invalidates     []Invalidator // cart and order caches
	FallbackBaseURL string
	Logger          zerolog.Logger
}

// Orchestrator runs the checkout hand-off.
type Orchestrator struct {
	cfg Config
}

// New validates cfg and returns an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Remote == nil {
		return nil, fmt.Errorf("checkout remote is required")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("checkout gate is required")
	}
	if cfg.Opener == nil {
		return nil, fmt.Errorf("checkout opener is required")
	}
	if cfg.FallbackBaseURL == "" {
		cfg.FallbackBaseURL = DefaultFallbackBaseURL
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Begin creates a hosted checkout session and opens it. The opener is not
// called unless a session was created.
func (o *Orchestrator) Begin(ctx context.Context) (Redirect, error) {
	if _, err := o.cfg.Gate.Require(ctx); err != nil {
		if session.IsRedirect(err) {
			return Redirect{}, &storefront.UnauthenticatedError{Op: "begin checkout", Message: "log in to check out"}
		}
		return Redirect{}, err
	}

	if o.cfg.Cart != nil {
		if cart, fresh := o.cfg.Cart.Peek(); fresh && cart.IsEmpty() {
			return Redirect{}, &storefront.EmptyResourceError{Resource: "cart"}
		}
	}

	sess, err := o.cfg.Remote.CreateCheckoutSession(ctx)
	if err != nil {
		return Redirect{}, err
	}
	if sess.SessionID == "" && sess.URL == "" {
		return Redirect{}, &storefront.ServerError{Op: "create checkout session", Status: 200, Message: "response has neither url nor sessionId"}
	}

	redirect := Redirect{URL: sess.URL, SessionID: sess.SessionID}
	if redirect.URL == "" {
		redirect.URL = strings.TrimRight(o.cfg.FallbackBaseURL, "/") + "/" + url.PathEscape(sess.SessionID)
		redirect.Degraded = true
		o.cfg.Logger.Warn().Str("session_id", sess.SessionID).Msg("backend omitted hosted checkout URL, using fallback")
	}

	o.cfg.Logger.Info().Str("session_id", redirect.SessionID).Bool("degraded", redirect.Degraded).Msg("checkout session created")
	if err := o.cfg.Opener.Open(ctx, redirect.URL); err != nil {
		return redirect, fmt.Errorf("failed to open checkout page: %w", err)
	}
	return redirect, nil
}

// SessionIDFromURL extracts session_id from a processor return URL.
func SessionIDFromURL(returnURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(returnURL))
	if err != nil {
		return "", fmt.Errorf("invalid return URL: %w", err)
	}
	id := strings.TrimSpace(u.Query().Get("session_id"))
	if id == "" {
		return "", &storefront.ConfirmationError{Message: "missing session token"}
	}
	return id, nil
}

// Confirm handles the return from the processor. It never reports success
// unless the server produced a paid order.
func (o *Orchestrator) Confirm(ctx context.Context, returnURL string) Result {
	sessionID, err := SessionIDFromURL(returnURL)
	if err != nil {
		var cerr *storefront.ConfirmationError
		if !errors.As(err, &cerr) {
			err = &storefront.ConfirmationError{Message: "missing session token", Err: err}
		}
		return Result{State: ResultError, Err: err, BackTo: CartRoute}
	}
	return o.ConfirmSession(ctx, sessionID)
}

// ConfirmSession confirms a known session id.
func (o *Orchestrator) ConfirmSession(ctx context.Context, sessionID string) Result {
	order, err := o.cfg.Remote.ConfirmPayment(ctx, sessionID)
	if err != nil {
		o.cfg.Logger.Warn().Str("session_id", sessionID).Err(err).Msg("payment confirmation failed")
		return Result{State: ResultError, Err: err, BackTo: CartRoute}
	}
	if order.PaymentStatus != storefront.PaymentPaid {
		err := &storefront.ConfirmationError{SessionID: sessionID, Message: fmt.Sprintf("order %s payment is %s", order.Number, order.PaymentStatus)}
		return Result{State: ResultError, Order: order, Err: err, BackTo: CartRoute}
	}

	for _, inv := range o.cfg.Invalidates {
		inv.Invalidate()
	}
	o.cfg.Logger.Info().Str("session_id", sessionID).Str("order", order.Number).Msg("payment confirmed")
	return Result{State: ResultSuccess, Order: order}
}

// Cancelled is the result for a processor cancel redirect.
func Cancelled() Result {
	return Result{State: ResultCancelled, BackTo: CartRoute}
}
