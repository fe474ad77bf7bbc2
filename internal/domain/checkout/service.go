// Package checkout prices carts for display and payment, keeps the advisory
// applied-coupon hint and commits redemptions when payment is confirmed.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/footwear-cart/internal/domain/cart"
	"github.com/xenking/footwear-cart/internal/domain/coupon"
	"github.com/xenking/footwear-cart/internal/domain/money"
)

var (
	// ErrEmptyCart is returned when confirming a cart with no lines.
	ErrEmptyCart = cart.ErrEmpty
	// ErrOrderIDRequired is returned by Confirm without an order id.
	ErrOrderIDRequired = errors.New("order id required")
)

// NoticeCouponRemoved is shown when a stored coupon no longer applies.
const NoticeCouponRemoved = "The coupon on your cart no longer applies and was removed"

// CartReader returns carts priced with live catalog prices. Checkout converts
// a cart into an order; later mutations of the cart fail with
// cart.ErrCheckedOut.
type CartReader interface {
	Get(ctx context.Context, id string) (*cart.Cart, error)
	Checkout(ctx context.Context, cartID, orderID string) (*cart.Cart, error)
}

// CouponValidator checks codes against a subtotal. Eligible skips the usage
// cap checks that the ledger enforces at commit.
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, currency string, actor coupon.Actor) (*coupon.Result, error)
	Eligible(ctx context.Context, code string, subtotal decimal.Decimal, currency string, actor coupon.Actor) (*coupon.Result, error)
}

// Config holds pricing knobs.
type Config struct {
	// FreeShippingThreshold qualifies a subtotal for free shipping. Zero
	// disables the threshold.
	FreeShippingThreshold decimal.Decimal
	CommitTimeout         time.Duration
	HintTTL               time.Duration
}

// AppliedCoupon describes the coupon reflected in a Summary.
type AppliedCoupon struct {
	Code           string
	Description    string
	Type           coupon.DiscountType
	DiscountAmount decimal.Decimal
	FreeShipping   bool
}

// Summary is a priced cart. Total == max(Subtotal-Discount, 0) + Tax + Shipping.
type Summary struct {
	CartID                string
	CurrencyCode          string
	TotalQuantity         int
	Subtotal              decimal.Decimal
	Discount              decimal.Decimal
	Tax                   decimal.Decimal
	Shipping              decimal.Decimal
	Total                 decimal.Decimal
	FreeShipping          bool
	FreeShippingRemaining decimal.Decimal
	Coupon                *AppliedCoupon
	// CouponError holds the *coupon.ValidationError of a rejected code.
	CouponError error
	// Notice is a neutral message about a silently dropped coupon.
	Notice string
}

// QuoteRequest prices a cart at payment initiation.
type QuoteRequest struct {
	CartID     string
	Actor      coupon.Actor
	CouponCode string
}

// ConfirmRequest finalizes pricing at payment confirmation. OrderID is the
// idempotency key for the redemption and the order record.
type ConfirmRequest struct {
	OrderID    string
	CartID     string
	Actor      coupon.Actor
	CouponCode string
}

// Confirmation is the outcome of Confirm.
type Confirmation struct {
	Order      *Order
	Summary    Summary
	Redemption *coupon.Redemption
	// Replayed is set when the order id had been confirmed before.
	Replayed       bool
	DiscountVoided bool
	VoidReason     string
}

// Service prices carts and commits redemptions.
type Service struct {
	carts     CartReader
	validator CouponValidator
	ledger    coupon.Ledger
	orders    OrderRepository
	hints     HintStore
	cfg       Config

	tracer  trace.Tracer
	metrics *metrics
	now     func() time.Time
}

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures Service telemetry.
type Option func(*options)

// WithTracerProvider sets the tracer provider. Defaults to noop.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. Defaults to noop.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// NewService creates a checkout Service.
func NewService(
	carts CartReader,
	validator CouponValidator,
	ledger coupon.Ledger,
	orders OrderRepository,
	hints HintStore,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	o := options{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := newMetrics(o.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}

	return &Service{
		carts:     carts,
		validator: validator,
		ledger:    ledger,
		orders:    orders,
		hints:     hints,
		cfg:       cfg,
		tracer:    o.tracerProvider.Tracer(instrumentationName),
		metrics:   m,
		now:       time.Now,
	}, nil
}

// ValidateCode checks code against a client-reported subtotal. The result is
// informational; nothing is stored.
func (s *Service) ValidateCode(ctx context.Context, code string, subtotal decimal.Decimal, currency string, actor coupon.Actor) (*coupon.Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ValidateCode")
	defer span.End()

	res, err := s.validate(ctx, code, money.ClampNonNegative(subtotal), money.NormalizeCurrency(currency), actor)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return res, nil
}

// ApplyCoupon validates code against the live cart and stores the hint.
// Rejections are returned as *coupon.ValidationError.
func (s *Service) ApplyCoupon(ctx context.Context, cartID string, actor coupon.Actor, code string) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ApplyCoupon",
		trace.WithAttributes(attribute.String("cart.id", cartID)),
	)
	defer span.End()

	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if c.CheckedOut() {
		return nil, cart.ErrCheckedOut
	}

	res, err := s.validate(ctx, code, c.Totals.Subtotal, c.CurrencyCode, actor)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	hint := &Hint{
		CartID:         c.ID,
		ActorKey:       actor.Key(),
		Code:           res.Coupon.Code,
		Description:    res.Discount.Description,
		DiscountAmount: res.Discount.Amount,
		AppliedAt:      s.now(),
	}
	if err := s.hints.Put(ctx, hint, s.cfg.HintTTL); err != nil {
		zctx.From(ctx).Warn("Store coupon hint", zap.String("cart_id", c.ID), zap.Error(err))
	}

	sum := s.price(c, res)
	return &sum, nil
}

// RemoveCoupon drops the hint and returns the undiscounted summary.
func (s *Service) RemoveCoupon(ctx context.Context, cartID string, actor coupon.Actor) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.RemoveCoupon",
		trace.WithAttributes(attribute.String("cart.id", cartID)),
	)
	defer span.End()

	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if err := s.hints.Delete(ctx, cartID, actor.Key()); err != nil {
		return nil, errors.Wrap(err, "delete coupon hint")
	}
	sum := s.price(c, nil)
	return &sum, nil
}

// CartSummary returns the cart and its summary. A stored hint is silently
// revalidated; if it no longer applies it is dropped and Notice is set.
func (s *Service) CartSummary(ctx context.Context, cartID string, actor coupon.Actor) (*cart.Cart, *Summary, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.CartSummary",
		trace.WithAttributes(attribute.String("cart.id", cartID)),
	)
	defer span.End()

	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		recordError(span, err)
		return nil, nil, err
	}
	return c, s.Summarize(ctx, c, actor), nil
}

// Summarize prices a cart the caller already holds, such as the one returned
// by a line mutation, applying the same hint revalidation as CartSummary.
func (s *Service) Summarize(ctx context.Context, c *cart.Cart, actor coupon.Actor) *Summary {
	res, notice := s.revalidateHint(ctx, c, actor)
	sum := s.price(c, res)
	sum.Notice = notice
	return &sum
}

// Quote prices the cart at payment initiation. An explicit code wins over the
// stored hint. A rejected explicit code yields an undiscounted summary with
// CouponError set; a stale hint is dropped quietly with Notice set, as in
// CartSummary.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Quote",
		trace.WithAttributes(attribute.String("cart.id", req.CartID)),
	)
	defer span.End()

	c, err := s.carts.Get(ctx, req.CartID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if c.CheckedOut() {
		return nil, cart.ErrCheckedOut
	}

	if req.CouponCode == "" {
		return s.Summarize(ctx, c, req.Actor), nil
	}

	res, err := s.validate(ctx, req.CouponCode, c.Totals.Subtotal, c.CurrencyCode, req.Actor)
	if err != nil {
		if !isRejection(err) {
			recordError(span, err)
			return nil, err
		}
		sum := s.price(c, nil)
		sum.CouponError = err
		return &sum, nil
	}

	sum := s.price(c, res)
	return &sum, nil
}

// Confirm converts the cart into the order, re-prices it, commits the coupon
// redemption and writes the order. Retrying with the same order id returns the
// stored outcome; a cart already converted into another order is rejected
// with cart.ErrCheckedOut. When the ledger rejects the commit the order is
// placed without the discount.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Confirm",
		trace.WithAttributes(
			attribute.String("cart.id", req.CartID),
			attribute.String("order.id", req.OrderID),
		),
	)
	defer span.End()

	if req.OrderID == "" {
		return nil, ErrOrderIDRequired
	}

	if o, err := s.orders.Get(ctx, req.OrderID); err == nil {
		return s.replayed(o), nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		recordError(span, err)
		return nil, errors.Wrap(err, "get order")
	}

	c, err := s.carts.Checkout(ctx, req.CartID, req.OrderID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	actorKey := req.Actor.Key()
	conf := &Confirmation{}
	var res *coupon.Result
	if code := s.couponCode(ctx, c.ID, req.Actor, req.CouponCode); code != "" {
		res, err = s.eligible(ctx, code, c.Totals.Subtotal, c.CurrencyCode, req.Actor)
		switch {
		case err == nil:
		case isRejection(err):
			conf.void(err)
		default:
			recordError(span, err)
			return nil, err
		}
	}

	if res != nil {
		r, err := coupon.Commit(ctx, s.ledger, coupon.CommitRequest{
			CouponID:       res.Coupon.ID,
			ActorKey:       actorKey,
			OrderID:        req.OrderID,
			DiscountAmount: res.Discount.Amount,
		}, s.cfg.CommitTimeout)
		switch {
		case err == nil:
			if r.Replayed {
				s.metrics.redemption(ctx, "replayed")
				res.Discount.Amount = r.DiscountAmount
			} else {
				s.metrics.redemption(ctx, "committed")
			}
			conf.Redemption = r
		case isRejection(err):
			s.metrics.redemption(ctx, "conflict")
			conf.void(err)
			res = nil
		case errors.Is(err, coupon.ErrOutcomeUnknown):
			s.metrics.redemption(ctx, "unknown")
			recordError(span, err)
			return nil, err
		default:
			s.metrics.redemption(ctx, "error")
			recordError(span, err)
			return nil, errors.Wrap(err, "commit redemption")
		}
	}

	if conf.DiscountVoided {
		s.metrics.voided.Add(ctx, 1)
		zctx.From(ctx).Info("Discount voided at confirmation",
			zap.String("order_id", req.OrderID),
			zap.String("reason", conf.VoidReason),
		)
	}

	conf.Summary = s.price(c, res)
	o := &Order{
		ID:           req.OrderID,
		CartID:       c.ID,
		ActorKey:     actorKey,
		CurrencyCode: c.CurrencyCode,
		Subtotal:     conf.Summary.Subtotal,
		Discount:     conf.Summary.Discount,
		Total:        conf.Summary.Total,
		FreeShipping: conf.Summary.FreeShipping,
		CreatedAt:    s.now(),
	}
	if res != nil {
		o.CouponCode = res.Coupon.Code
	}

	stored, created, err := s.orders.Create(ctx, o)
	if err != nil {
		recordError(span, err)
		return nil, errors.Wrap(err, "create order")
	}
	conf.Order = stored
	conf.Replayed = !created

	if err := s.hints.Delete(ctx, c.ID, actorKey); err != nil {
		zctx.From(ctx).Warn("Delete coupon hint", zap.String("cart_id", c.ID), zap.Error(err))
	}
	return conf, nil
}

// MergeIdentity moves a guest session's redemptions to the signed-in actor so
// per-user caps keep counting them.
func (s *Service) MergeIdentity(ctx context.Context, actor coupon.Actor, guestSessionID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.MergeIdentity")
	defer span.End()

	if !actor.Authenticated() {
		return 0, coupon.Reject(coupon.ErrLoginRequired)
	}
	if guestSessionID == "" {
		return 0, nil
	}

	n, err := s.ledger.MergeActors(ctx, coupon.GuestKey(guestSessionID), actor.Key())
	if err != nil {
		recordError(span, err)
		return 0, errors.Wrap(err, "merge actors")
	}
	return n, nil
}

func (s *Service) validate(ctx context.Context, code string, subtotal decimal.Decimal, currency string, actor coupon.Actor) (*coupon.Result, error) {
	res, err := s.validator.Validate(ctx, code, subtotal, currency, actor)
	s.metrics.validation(ctx, validationResult(err))
	return res, err
}

func (s *Service) eligible(ctx context.Context, code string, subtotal decimal.Decimal, currency string, actor coupon.Actor) (*coupon.Result, error) {
	res, err := s.validator.Eligible(ctx, code, subtotal, currency, actor)
	s.metrics.validation(ctx, validationResult(err))
	return res, err
}

// couponCode returns explicit when set, otherwise the code of the stored hint.
func (s *Service) couponCode(ctx context.Context, cartID string, actor coupon.Actor, explicit string) string {
	if explicit != "" {
		return explicit
	}
	h, err := s.hints.Get(ctx, cartID, actor.Key())
	if err != nil {
		if !errors.Is(err, ErrHintNotFound) {
			zctx.From(ctx).Warn("Get coupon hint", zap.String("cart_id", cartID), zap.Error(err))
		}
		return ""
	}
	if !h.boundTo(cartID, actor.Key()) {
		return ""
	}
	return h.Code
}

func (s *Service) revalidateHint(ctx context.Context, c *cart.Cart, actor coupon.Actor) (*coupon.Result, string) {
	lg := zctx.From(ctx).With(zap.String("cart_id", c.ID))
	key := actor.Key()

	h, err := s.hints.Get(ctx, c.ID, key)
	if err != nil {
		if !errors.Is(err, ErrHintNotFound) {
			lg.Warn("Get coupon hint", zap.Error(err))
		}
		return nil, ""
	}
	if !h.boundTo(c.ID, key) {
		s.dropHint(ctx, c.ID, key)
		return nil, ""
	}

	res, err := s.validate(ctx, h.Code, c.Totals.Subtotal, c.CurrencyCode, actor)
	if err != nil {
		if isRejection(err) {
			lg.Debug("Dropping stale coupon hint", zap.String("code", h.Code), zap.Error(err))
			s.dropHint(ctx, c.ID, key)
			return nil, NoticeCouponRemoved
		}
		lg.Warn("Revalidate coupon hint", zap.Error(err))
		return nil, ""
	}

	if !res.Discount.Amount.Equal(h.DiscountAmount) {
		h.DiscountAmount = res.Discount.Amount
		if err := s.hints.Put(ctx, h, s.cfg.HintTTL); err != nil {
			lg.Warn("Refresh coupon hint", zap.Error(err))
		}
	}
	return res, ""
}

func (s *Service) dropHint(ctx context.Context, cartID, actorKey string) {
	if err := s.hints.Delete(ctx, cartID, actorKey); err != nil {
		zctx.From(ctx).Warn("Delete coupon hint", zap.String("cart_id", cartID), zap.Error(err))
	}
}

// price builds a Summary from the live cart totals and an optional coupon
// result. Amounts are rounded once, here.
func (s *Service) price(c *cart.Cart, res *coupon.Result) Summary {
	currency := c.CurrencyCode
	discount := decimal.Zero
	var applied *AppliedCoupon
	freeShipping := false
	if res != nil {
		discount = money.Clamp(res.Discount.Amount, decimal.Zero, c.Totals.Subtotal)
		freeShipping = res.Discount.FreeShipping
		applied = &AppliedCoupon{
			Code:           res.Coupon.Code,
			Description:    res.Discount.Description,
			Type:           res.Coupon.Type,
			DiscountAmount: money.Round(discount, currency),
			FreeShipping:   res.Discount.FreeShipping,
		}
	}

	totals := c.Totals.WithDiscount(discount, currency)

	remaining := decimal.Zero
	if threshold := s.cfg.FreeShippingThreshold; threshold.IsPositive() {
		if totals.Subtotal.GreaterThanOrEqual(threshold) {
			freeShipping = true
		} else if !freeShipping {
			remaining = money.Round(threshold.Sub(totals.Subtotal), currency)
		}
	}

	return Summary{
		CartID:                c.ID,
		CurrencyCode:          currency,
		TotalQuantity:         totals.TotalQuantity,
		Subtotal:              totals.Subtotal,
		Discount:              totals.Discount,
		Tax:                   totals.Tax,
		Shipping:              totals.Shipping,
		Total:                 totals.Total,
		FreeShipping:          freeShipping,
		FreeShippingRemaining: remaining,
		Coupon:                applied,
	}
}

func (s *Service) replayed(o *Order) *Confirmation {
	sum := Summary{
		CartID:                o.CartID,
		CurrencyCode:          o.CurrencyCode,
		Subtotal:              o.Subtotal,
		Discount:              o.Discount,
		Tax:                   decimal.Zero,
		Shipping:              decimal.Zero,
		Total:                 o.Total,
		FreeShipping:          o.FreeShipping,
		FreeShippingRemaining: decimal.Zero,
	}
	if o.CouponCode != "" {
		sum.Coupon = &AppliedCoupon{
			Code:           o.CouponCode,
			DiscountAmount: o.Discount,
			FreeShipping:   o.FreeShipping,
		}
	}
	return &Confirmation{Order: o, Summary: sum, Replayed: true}
}

func (c *Confirmation) void(err error) {
	c.DiscountVoided = true
	c.VoidReason = err.Error()
}

func isRejection(err error) bool {
	var ve *coupon.ValidationError
	return errors.As(err, &ve)
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isRejection(err):
		return coupon.KindName(err)
	default:
		return "error"
	}
}

func recordError(span trace.Span, err error) {
	if isRejection(err) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
