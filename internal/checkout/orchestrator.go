// Package checkout drives the three-step checkout wizard and commits the
// resulting order. The wizard is linear: shipping, then payment, then a
// review of frozen totals; placing the order hands off to the payment
// gateway and commits only on a successful outcome.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/internal/event"
	"github.com/delali3/era-store-sub002/internal/payment"
	"github.com/delali3/era-store-sub002/internal/repository"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
	"github.com/delali3/era-store-sub002/pkg/validator"
)

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Total number of successfully committed orders.",
	})
	partialCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_partial_commits_total",
		Help: "Orders whose header landed but whose lines failed to persist.",
	})
)

// CartStore is the slice of the cart service the orchestrator needs.
type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// AddressSource supplies the address the user picked outside the wizard.
type AddressSource interface {
	Selected(userID string) *domain.Address
}

// Config holds the storefront checkout policy.
type Config struct {
	Currency        string
	Rules           domain.PricingRules
	ShippingMethods []domain.ShippingMethod
	// PromoCodes maps an accepted code to its whole-number percent discount.
	PromoCodes map[string]int
}

// Outcome classifies the result of a PlaceOrder call.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePending   Outcome = "pending"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeFailed    Outcome = "failed"
)

// PlacementResult is what PlaceOrder hands back. With a synchronous gateway
// the outcome is terminal; with a hosted gateway it is pending until the
// provider's webhook arrives.
type PlacementResult struct {
	Outcome      Outcome              `json:"outcome"`
	PaymentID    string               `json:"payment_id,omitempty"`
	Confirmation *domain.Confirmation `json:"confirmation,omitempty"`
	PaymentError string               `json:"payment_error,omitempty"`
}

// ShippingFormInput is the shipping address form of the first wizard step.
type ShippingFormInput struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country" validate:"required,len=2"`
}

// ShippingInput is the payload of the shipping step. Either an address book
// id or the full form must be provided.
type ShippingInput struct {
	UseAddressID     string             `json:"use_address_id,omitempty"`
	Form             *ShippingFormInput `json:"form,omitempty"`
	SaveAddress      bool               `json:"save_address"`
	ShippingMethodID string             `json:"shipping_method_id"`
}

// PaymentInput is the payload of the payment step.
type PaymentInput struct {
	Method    string     `json:"method"`
	Card      *CardInput `json:"card,omitempty"`
	PromoCode string     `json:"promo_code,omitempty"`
}

// Orchestrator owns the per-user checkout sessions and the order commit.
type Orchestrator struct {
	carts     CartStore
	addresses AddressSource
	addrRepo  repository.AddressRepository
	orders    repository.OrderRepository
	gateway   payment.Gateway
	producer  *event.Producer
	logger    *slog.Logger
	tracer    trace.Tracer
	cfg       Config

	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
	outcomes map[string]*PlacementResult
}

// NewOrchestrator creates a checkout orchestrator.
func NewOrchestrator(
	carts CartStore,
	addresses AddressSource,
	addrRepo repository.AddressRepository,
	orders repository.OrderRepository,
	gateway payment.Gateway,
	producer *event.Producer,
	logger *slog.Logger,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		carts:     carts,
		addresses: addresses,
		addrRepo:  addrRepo,
		orders:    orders,
		gateway:   gateway,
		producer:  producer,
		logger:    logger,
		tracer:    otel.Tracer("checkout"),
		cfg:       cfg,
		sessions:  make(map[string]*domain.CheckoutSession),
		outcomes:  make(map[string]*PlacementResult),
	}
}

// ShippingMethods returns the configured shipping catalog.
func (o *Orchestrator) ShippingMethods() []domain.ShippingMethod {
	methods := make([]domain.ShippingMethod, len(o.cfg.ShippingMethods))
	copy(methods, o.cfg.ShippingMethods)
	return methods
}

// Start opens a checkout session at the shipping step. The cart must not be
// empty. An existing session for the user is replaced.
func (o *Orchestrator) Start(ctx context.Context, userID string) (*domain.CheckoutSession, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := o.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	now := time.Now().UTC()
	sess := &domain.CheckoutSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Step:      domain.StepShipping,
		CreatedAt: now,
		UpdatedAt: now,
	}

	o.mu.Lock()
	o.sessions[userID] = sess
	delete(o.outcomes, userID)
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "checkout started",
		slog.String("user_id", userID),
		slog.String("session_id", sess.ID),
	)

	return o.sessionCopy(userID)
}

// Session returns the user's current checkout session.
func (o *Orchestrator) Session(userID string) (*domain.CheckoutSession, error) {
	return o.sessionCopy(userID)
}

func (o *Orchestrator) sessionCopy(userID string) (*domain.CheckoutSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.sessions[userID]
	if !ok {
		return nil, apperrors.NotFound("checkout session", userID)
	}
	cp := *sess
	return &cp, nil
}

// SubmitShipping records the shipping step and advances to payment. The
// shipping method must be from the catalog; the address comes either from
// the address book selection or from a validated form.
func (o *Orchestrator) SubmitShipping(ctx context.Context, userID string, input *ShippingInput) (*domain.CheckoutSession, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("shipping input is required")
	}
	if o.shippingMethod(input.ShippingMethodID) == nil {
		return nil, apperrors.InvalidInput("unknown shipping method")
	}

	var shipping *domain.ShippingInfo
	switch {
	case input.UseAddressID != "":
		addr := o.addresses.Selected(userID)
		if addr == nil || addr.ID != input.UseAddressID {
			return nil, apperrors.NotFound("address", input.UseAddressID)
		}
		shipping = &domain.ShippingInfo{
			FirstName:    addr.FirstName,
			LastName:     addr.LastName,
			Email:        addr.Email,
			Phone:        addr.Phone,
			AddressLine1: addr.AddressLine1,
			AddressLine2: addr.AddressLine2,
			City:         addr.City,
			State:        addr.State,
			PostalCode:   addr.PostalCode,
			Country:      addr.Country,
		}
	case input.Form != nil:
		if err := validator.Validate(input.Form); err != nil {
			return nil, err
		}
		shipping = &domain.ShippingInfo{
			FirstName:    input.Form.FirstName,
			LastName:     input.Form.LastName,
			Email:        input.Form.Email,
			Phone:        input.Form.Phone,
			AddressLine1: input.Form.AddressLine1,
			AddressLine2: input.Form.AddressLine2,
			City:         input.Form.City,
			State:        input.Form.State,
			PostalCode:   input.Form.PostalCode,
			Country:      input.Form.Country,
		}
	default:
		return nil, apperrors.InvalidInput("shipping address is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.sessions[userID]
	if !ok {
		return nil, apperrors.NotFound("checkout session", userID)
	}
	if sess.Step != domain.StepShipping {
		return nil, apperrors.Conflict("shipping step is already complete")
	}

	sess.Shipping = shipping
	sess.SelectedAddressID = input.UseAddressID
	sess.SaveAddress = input.SaveAddress && input.UseAddressID == ""
	sess.ShippingMethodID = input.ShippingMethodID
	sess.Step = domain.StepPayment
	sess.Epoch++
	sess.UpdatedAt = time.Now().UTC()

	cp := *sess
	return &cp, nil
}

// SubmitPayment records the payment step, freezes the review snapshot from
// the live cart, and advances to review.
func (o *Orchestrator) SubmitPayment(ctx context.Context, userID string, input *PaymentInput) (*domain.CheckoutSession, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("payment input is required")
	}

	var cardLast4 string
	switch input.Method {
	case domain.PaymentMethodCard:
		if input.Card == nil {
			return nil, apperrors.InvalidInput("card details are required")
		}
		if err := input.Card.Validate(time.Now().UTC()); err != nil {
			return nil, err
		}
		cardLast4 = input.Card.Last4()
	case domain.PaymentMethodGateway, domain.PaymentMethodDeferred:
		// Nothing to validate here.
	default:
		return nil, apperrors.InvalidInput("unknown payment method")
	}

	promoPercent := 0
	if input.PromoCode != "" {
		pct, ok := o.cfg.PromoCodes[strings.ToUpper(strings.TrimSpace(input.PromoCode))]
		if !ok {
			return nil, apperrors.InvalidInput("invalid promo code")
		}
		promoPercent = pct
	}

	cart, err := o.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.sessions[userID]
	if !ok {
		return nil, apperrors.NotFound("checkout session", userID)
	}
	if sess.Step != domain.StepPayment {
		return nil, apperrors.Conflict("payment step is not active")
	}

	method := o.shippingMethod(sess.ShippingMethodID)
	if method == nil {
		return nil, apperrors.Conflict("shipping step is incomplete")
	}

	lines := make([]domain.CartLine, len(cart.Lines))
	copy(lines, cart.Lines)

	sess.PaymentMethod = input.Method
	sess.CardLast4 = cardLast4
	sess.PromoCode = input.PromoCode
	sess.PaymentError = ""
	sess.Review = &domain.ReviewSnapshot{
		Lines:    lines,
		Totals:   domain.ComputeTotals(lines, *method, promoPercent, o.cfg.Rules),
		Currency: o.currency(cart),
		TakenAt:  time.Now().UTC(),
	}
	sess.Step = domain.StepReview
	sess.Epoch++
	sess.UpdatedAt = time.Now().UTC()

	cp := *sess
	return &cp, nil
}

// Back moves the wizard one step backwards. Leaving review discards the
// frozen snapshot, and any in-flight payment result becomes stale.
func (o *Orchestrator) Back(userID string) (*domain.CheckoutSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.sessions[userID]
	if !ok {
		return nil, apperrors.NotFound("checkout session", userID)
	}

	switch sess.Step {
	case domain.StepPayment:
		sess.Step = domain.StepShipping
	case domain.StepReview:
		sess.Step = domain.StepPayment
		sess.Review = nil
	default:
		return nil, apperrors.Conflict("already at the first step")
	}

	sess.Epoch++
	sess.UpdatedAt = time.Now().UTC()

	cp := *sess
	return &cp, nil
}

// Cancel abandons the checkout session. The cart is untouched.
func (o *Orchestrator) Cancel(userID string) {
	o.mu.Lock()
	delete(o.sessions, userID)
	delete(o.outcomes, userID)
	o.mu.Unlock()
}

// PlaceOrder hands the frozen review total to the payment gateway. On a
// successful payment the order is committed and the cart cleared; a cancel
// returns the wizard to the payment step with the cart untouched; a failure
// does the same and records the reason. With an asynchronous gateway the
// result is pending until the provider reports back.
func (o *Orchestrator) PlaceOrder(ctx context.Context, userID string) (*PlacementResult, error) {
	o.mu.Lock()
	sess, ok := o.sessions[userID]
	if !ok {
		o.mu.Unlock()
		return nil, apperrors.NotFound("checkout session", userID)
	}
	if sess.Step != domain.StepReview || sess.Review == nil {
		o.mu.Unlock()
		return nil, apperrors.Conflict("review step is not active")
	}

	sess.Epoch++
	epoch := sess.Epoch
	sess.PaymentError = ""
	delete(o.outcomes, userID)

	req := &payment.InitiateRequest{
		Amount:   sess.Review.Totals.Total,
		Currency: sess.Review.Currency,
		Customer: payment.Customer{
			Name:  strings.TrimSpace(sess.Shipping.FirstName + " " + sess.Shipping.LastName),
			Email: sess.Shipping.Email,
		},
		Reference: sess.ID,
	}
	method := sess.PaymentMethod
	o.mu.Unlock()

	// A deferred payment skips the gateway entirely.
	if method == domain.PaymentMethodDeferred {
		o.resolveSuccess(context.WithoutCancel(ctx), userID, epoch, "")
		return o.takeOutcome(userID), nil
	}

	bg := context.WithoutCancel(ctx)
	cb := payment.Callbacks{
		OnSuccess: func(ref string) { o.resolveSuccess(bg, userID, epoch, ref) },
		OnCancel:  func() { o.resolveCancel(bg, userID, epoch) },
		OnError:   func(reason string) { o.resolveFailure(bg, userID, epoch, reason) },
	}

	paymentID, err := o.gateway.Initiate(ctx, req, cb)
	if err != nil {
		return nil, err
	}

	result := o.takeOutcome(userID)
	if result == nil {
		result = &PlacementResult{Outcome: OutcomePending}
	}
	result.PaymentID = paymentID
	return result, nil
}

// Result pops the placement result recorded by an asynchronous gateway
// callback, or nil when none has arrived yet.
func (o *Orchestrator) Result(userID string) *PlacementResult {
	return o.takeOutcome(userID)
}

// takeOutcome pops the outcome recorded by a synchronous callback.
func (o *Orchestrator) takeOutcome(userID string) *PlacementResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := o.outcomes[userID]
	delete(o.outcomes, userID)
	return result
}

// currentSession returns the live session if its epoch still matches.
func (o *Orchestrator) currentSession(userID string, epoch int) *domain.CheckoutSession {
	sess, ok := o.sessions[userID]
	if !ok || sess.Epoch != epoch {
		return nil
	}
	return sess
}

func (o *Orchestrator) resolveSuccess(ctx context.Context, userID string, epoch int, paymentRef string) {
	o.mu.Lock()
	sess := o.currentSession(userID, epoch)
	if sess == nil {
		o.mu.Unlock()
		o.logger.WarnContext(ctx, "dropping stale payment success", slog.String("user_id", userID))
		return
	}
	cp := *sess
	o.mu.Unlock()

	conf, err := o.commit(ctx, &cp, paymentRef)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		if errors.Is(err, apperrors.ErrPartialCommit) {
			// The order header stands; surface the failure but do not
			// return the shopper to the payment step.
			o.outcomes[userID] = &PlacementResult{Outcome: OutcomeFailed, PaymentError: err.Error()}
			delete(o.sessions, userID)
			return
		}
		if live := o.currentSession(userID, epoch); live != nil {
			live.Step = domain.StepPayment
			live.Review = nil
			live.PaymentError = "payment succeeded but the order could not be created"
			live.Epoch++
		}
		o.outcomes[userID] = &PlacementResult{Outcome: OutcomeFailed, PaymentError: err.Error()}
		return
	}

	delete(o.sessions, userID)
	o.outcomes[userID] = &PlacementResult{Outcome: OutcomeCompleted, Confirmation: conf}
}

func (o *Orchestrator) resolveCancel(ctx context.Context, userID string, epoch int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess := o.currentSession(userID, epoch)
	if sess == nil {
		o.logger.WarnContext(ctx, "dropping stale payment cancel", slog.String("user_id", userID))
		return
	}

	sess.Step = domain.StepPayment
	sess.Review = nil
	sess.PaymentError = ""
	sess.Epoch++
	sess.UpdatedAt = time.Now().UTC()
	o.outcomes[userID] = &PlacementResult{Outcome: OutcomeCanceled}
}

func (o *Orchestrator) resolveFailure(ctx context.Context, userID string, epoch int, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess := o.currentSession(userID, epoch)
	if sess == nil {
		o.logger.WarnContext(ctx, "dropping stale payment failure", slog.String("user_id", userID))
		return
	}

	sess.Step = domain.StepPayment
	sess.Review = nil
	sess.PaymentError = reason
	sess.Epoch++
	sess.UpdatedAt = time.Now().UTC()
	o.outcomes[userID] = &PlacementResult{Outcome: OutcomeFailed, PaymentError: reason}
}

// commit persists the order from the session's review snapshot. The header
// and the lines are deliberately separate writes: a confirmed payment must
// always leave an order behind, so a line failure is reported as a partial
// commit and the cart is left alone for manual reconciliation.
func (o *Orchestrator) commit(ctx context.Context, sess *domain.CheckoutSession, paymentRef string) (*domain.Confirmation, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.commit",
		trace.WithAttributes(
			attribute.String("checkout.session_id", sess.ID),
			attribute.Int64("checkout.total", sess.Review.Totals.Total),
		))
	defer span.End()

	now := time.Now().UTC()
	order := &domain.Order{
		ID:               uuid.New().String(),
		UserID:           sess.UserID,
		OrderNumber:      newOrderNumber(now),
		Status:           domain.StatusProcessing,
		SubtotalAmount:   sess.Review.Totals.Subtotal,
		TaxAmount:        sess.Review.Totals.Tax,
		ShippingAmount:   sess.Review.Totals.Shipping,
		DiscountAmount:   sess.Review.Totals.PromoDiscount,
		TotalAmount:      sess.Review.Totals.Total,
		Currency:         sess.Review.Currency,
		ShippingAddress:  *sess.Shipping.AsAddress(sess.UserID),
		PaymentMethod:    sess.PaymentMethod,
		PaymentReference: paymentRef,
		CreatedAt:        now,
	}

	lines := make([]domain.OrderLine, len(sess.Review.Lines))
	for i, l := range sess.Review.Lines {
		lines[i] = domain.OrderLine{
			ID:           uuid.New().String(),
			OrderID:      order.ID,
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			PricePerUnit: l.EffectiveUnitPrice(),
			Subtotal:     l.LineSubtotal(),
		}
	}
	order.Lines = lines

	if err := o.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := o.orders.CreateLines(ctx, order.ID, lines); err != nil {
		partialCommits.Inc()
		o.logger.ErrorContext(ctx, "order lines failed to persist",
			slog.String("order_id", order.ID),
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.PartialCommit(order.ID, err)
	}

	// The address save is a courtesy step: its failure is logged and never
	// holds back the rest of the commit.
	if sess.SaveAddress {
		if err := o.saveShippingAddress(ctx, sess); err != nil {
			o.logger.ErrorContext(ctx, "failed to save shipping address",
				slog.String("user_id", sess.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := o.carts.Clear(ctx, sess.UserID); err != nil {
		o.logger.ErrorContext(ctx, "failed to clear cart after order",
			slog.String("user_id", sess.UserID),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	ordersPlaced.Inc()

	if err := o.producer.PublishOrderPlaced(ctx, order); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	o.logger.InfoContext(ctx, "order placed",
		slog.String("user_id", sess.UserID),
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.Int64("total", order.TotalAmount),
	)

	return &domain.Confirmation{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
	}, nil
}

// saveShippingAddress persists the shipping form as an address book entry,
// skipping the write when an entry with the same content already exists.
func (o *Orchestrator) saveShippingAddress(ctx context.Context, sess *domain.CheckoutSession) error {
	addr := sess.Shipping.AsAddress(sess.UserID)

	existing, err := o.addrRepo.ListByUserID(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("list addresses: %w", err)
	}
	for i := range existing {
		if addr.ContentEquals(&existing[i]) {
			return nil
		}
	}

	now := time.Now().UTC()
	addr.ID = uuid.New().String()
	addr.IsDefault = len(existing) == 0
	addr.CreatedAt = now
	addr.UpdatedAt = now

	if err := o.addrRepo.Create(ctx, addr); err != nil {
		return fmt.Errorf("create address: %w", err)
	}

	return nil
}

func (o *Orchestrator) shippingMethod(id string) *domain.ShippingMethod {
	for i := range o.cfg.ShippingMethods {
		if o.cfg.ShippingMethods[i].ID == id {
			return &o.cfg.ShippingMethods[i]
		}
	}
	return nil
}

func (o *Orchestrator) currency(cart *domain.Cart) string {
	if cart.Currency != "" {
		return cart.Currency
	}
	return o.cfg.Currency
}

// newOrderNumber derives a short human-readable order number: the date plus
// six hex characters of randomness.
func newOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("ES-%s-%s", now.Format("20060102"), suffix)
}
