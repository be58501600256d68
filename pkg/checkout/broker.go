package checkout

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/tokengate/pkg/apperr"
	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/identity"
	"github.com/dmitrymomot/tokengate/pkg/logger"
)

// Broker runs the checkout handshake: it writes an intent document, watches
// it for the result the server extension appends, and settles exactly once
// per attempt. At most one attempt runs at a time.
type Broker struct {
	channel  docstore.Channel
	redirect Redirector
	cfg      Config
	log      *slog.Logger

	inFlight atomic.Bool
	state    atomic.Value // State
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger used for state transitions and settle races.
func WithLogger(log *slog.Logger) Option {
	return func(b *Broker) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBroker constructs a Broker. Panics on nil dependencies since those are
// programmer errors, not runtime conditions.
func NewBroker(channel docstore.Channel, redirect Redirector, cfg Config, opts ...Option) *Broker {
	if channel == nil {
		panic("checkout: nil channel")
	}
	if redirect == nil {
		panic("checkout: nil redirector")
	}
	if cfg.ResultTimeout <= 0 {
		cfg.ResultTimeout = 15 * time.Second
	}
	b := &Broker{
		channel:  channel,
		redirect: redirect,
		cfg:      cfg,
		log:      slog.Default(),
	}
	b.state.Store(StateIdle)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the observable state of the most recent attempt.
func (b *Broker) State() State {
	return b.state.Load().(State)
}

func (b *Broker) setState(s State) {
	b.state.Store(s)
	b.log.Debug("checkout state", logger.State(s))
}

// outcome is what wins the settle race: a session id from the provider, a
// declined message, or neither if the timer fired first.
type outcome struct {
	sessionID string
	declined  string
	isDecline bool
}

// Initiate starts one checkout attempt for the given plan price and blocks
// until it settles. On success it returns the provider session id after
// handing it to the redirector. currentPage is where the provider should
// send the user on abandonment.
//
// Validation happens before any I/O. While an attempt is between creation
// and settlement, further calls fail with ErrCheckoutInProgress.
func (b *Broker) Initiate(ctx context.Context, user *identity.User, planPriceRef, currentPage string) (string, error) {
	if user == nil {
		return "", apperr.ErrUnauthenticated
	}
	if planPriceRef == "" {
		return "", apperr.ValidationError{Field: "planPriceRef", Message: "plan price reference is required"}
	}
	if err := b.cfg.Validate(); err != nil {
		b.setState(StateConfigError)
		return "", apperr.ConfigError{Reason: err.Error()}
	}

	if !b.inFlight.CompareAndSwap(false, true) {
		return "", ErrCheckoutInProgress
	}
	defer b.inFlight.Store(false)

	b.setState(StateCreating)
	collection := SessionCollection(user.ID)
	intent := map[string]any{
		"planPriceRef":       planPriceRef,
		"successUrlTemplate": SuccessURLTemplate(b.cfg.Origin),
		"cancelUrl":          CancelURL(b.cfg.Origin, currentPage),
		"createdAt":          time.Now().UTC(),
	}
	docID, err := b.channel.Create(ctx, collection, intent)
	if err != nil {
		b.setState(StateFailed)
		b.log.Error("checkout intent creation failed",
			logger.Error(err), logger.UserID(user.ID), logger.PlanPriceRef(planPriceRef))
		return "", apperr.RemoteError{Code: "unavailable", Err: err}
	}

	b.setState(StateAwaitingResult)
	b.log.Info("awaiting checkout result",
		logger.CheckoutID(docID), logger.UserID(user.ID), logger.PlanPriceRef(planPriceRef))

	// settled is the settle token. Whoever flips it first owns the terminal
	// transition; every other path is a no-op.
	var settled atomic.Bool
	resultCh := make(chan outcome, 1)

	cancelSub, err := b.channel.SubscribeDocument(ctx, collection, docID, func(doc docstore.Document) {
		if sessionID, ok := doc.String("sessionId"); ok && sessionID != "" {
			if settled.CompareAndSwap(false, true) {
				resultCh <- outcome{sessionID: sessionID}
			}
			return
		}
		if msg, ok := doc.String("error.message"); ok {
			if settled.CompareAndSwap(false, true) {
				resultCh <- outcome{declined: msg, isDecline: true}
			}
		}
	})
	if err != nil {
		b.setState(StateFailed)
		return "", apperr.RemoteError{Code: "unavailable", Err: err}
	}
	defer cancelSub()

	timer := time.NewTimer(b.cfg.ResultTimeout)
	defer timer.Stop()

	var out outcome
	select {
	case out = <-resultCh:
	case <-timer.C:
		if settled.CompareAndSwap(false, true) {
			b.setState(StateTimedOut)
			b.log.Warn("checkout result timed out", logger.CheckoutID(docID))
			return "", apperr.ErrTimeout
		}
		// A result settled between the timer firing and the swap; it wins.
		out = <-resultCh
	case <-ctx.Done():
		if settled.CompareAndSwap(false, true) {
			b.setState(StateFailed)
			return "", ctx.Err()
		}
		out = <-resultCh
	}

	if out.isDecline {
		b.setState(StateFailed)
		b.log.Warn("checkout declined", logger.CheckoutID(docID), slog.String("message", out.declined))
		return "", DeclinedError{Message: out.declined}
	}

	if err := b.redirect.RedirectToCheckout(ctx, out.sessionID); err != nil {
		b.setState(StateFailed)
		b.log.Error("checkout redirect failed", logger.Error(err), logger.CheckoutID(docID))
		return "", apperr.RemoteError{Code: "unavailable", Err: err}
	}

	b.setState(StateSucceeded)
	b.log.Info("checkout session settled", logger.CheckoutID(docID))
	return out.sessionID, nil
}
