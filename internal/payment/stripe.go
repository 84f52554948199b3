package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	DefaultCurrency = "usd"
	DefaultTimeout  = 15 * time.Second
)

var errChargeNotReady = errors.New("payment intent has no charge yet")

type StripeGateway struct {
	api           StripeAPI
	webhookSecret string
	timeout       time.Duration
	retry         Retry
}

type Option func(*StripeGateway)

func WithStripeAPI(api StripeAPI) Option {
	return func(g *StripeGateway) {
		g.api = api
	}
}

func WithRetry(retry Retry) Option {
	return func(g *StripeGateway) {
		g.retry = retry
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(g *StripeGateway) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

func NewStripeGateway(webhookSecret string, opts ...Option) *StripeGateway {
	g := &StripeGateway{
		api:           stripeClient{},
		webhookSecret: webhookSecret,
		timeout:       DefaultTimeout,
		retry:         NewRetry(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *StripeGateway) CreateIntent(
	ctx context.Context,
	amount decimal.Decimal,
	currency string,
	metadata map[string]string) (*domain.Intent, error) {

	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	if currency == "" {
		currency = DefaultCurrency
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(intentKey(metadata))

	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.NewPaymentIntent(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return toIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*domain.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	pi, err := g.getIntent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent %s: %w", id, err)
	}

	return toIntent(pi), nil
}

func (g *StripeGateway) CreateRefund(
	ctx context.Context,
	intentId string,
	amount decimal.Decimal,
	metadata map[string]string) (*domain.Refund, error) {

	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentId),
		Amount:        stripe.Int64(minor),
	}
	params.Context = ctx
	params.SetIdempotencyKey(refundKey(metadata, minor))

	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	r, err := g.api.NewRefund(params)
	if err != nil {
		return nil, fmt.Errorf("create refund for %s: %w", intentId, err)
	}

	return toRefund(r, intentId), nil
}

func (g *StripeGateway) GetRefundableAmount(ctx context.Context, intentId string) (*domain.RefundableAmount, error) {
	var charge *stripe.Charge

	err := g.retry.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		pi, err := g.getIntent(ctx, intentId)
		if err != nil {
			return backoff.Permanent(err)
		}

		if pi.LatestCharge == nil || pi.LatestCharge.ID == "" {
			return errChargeNotReady
		}

		charge = pi.LatestCharge
		return nil
	})

	if errors.Is(err, errChargeNotReady) {
		return nil, fmt.Errorf("%w: %s", domain.ErrChargeUnavailable, intentId)
	}

	if err != nil {
		return nil, fmt.Errorf("lookup charge of %s: %w", intentId, err)
	}

	amount := FromMinorUnits(charge.Amount)
	refunded := FromMinorUnits(charge.AmountRefunded)

	refundable := amount.Sub(refunded)
	if refundable.IsNegative() {
		refundable = decimal.Zero
	}

	return &domain.RefundableAmount{
		ChargeID:         charge.ID,
		Amount:           amount,
		AmountRefunded:   refunded,
		AmountRefundable: refundable,
	}, nil
}

func (g *StripeGateway) LatestRefund(ctx context.Context, intentId string) (*domain.Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.RefundListParams{
		PaymentIntent: stripe.String(intentId),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	refunds, err := g.api.ListRefunds(params)
	if err != nil {
		return nil, fmt.Errorf("list refunds of %s: %w", intentId, err)
	}

	if len(refunds) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	return toRefund(refunds[0], intentId), nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*domain.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	result := &domain.GatewayEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if event.Data == nil {
		return nil, domain.ErrInvalidEventPayload
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEventPayload, err)
		}

		result.Intent = toIntent(&pi)

	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEventPayload, err)
		}

		result.Charge = toCharge(&ch)

	case stripe.EventTypeChargeRefundUpdated, stripe.EventTypeRefundUpdated:
		var rf stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &rf); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEventPayload, err)
		}

		result.Refund = toRefund(&rf, "")
	}

	return result, nil
}

func (g *StripeGateway) getIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	return g.api.GetPaymentIntent(id, params)
}

func toIntent(pi *stripe.PaymentIntent) *domain.Intent {
	intent := &domain.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       FromMinorUnits(pi.Amount),
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}

	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
	}

	return intent
}

func toCharge(ch *stripe.Charge) *domain.Charge {
	charge := &domain.Charge{
		ID:             ch.ID,
		Amount:         FromMinorUnits(ch.Amount),
		AmountRefunded: FromMinorUnits(ch.AmountRefunded),
	}

	if ch.PaymentIntent != nil {
		charge.PaymentIntentID = ch.PaymentIntent.ID
	}

	return charge
}

func toRefund(r *stripe.Refund, intentId string) *domain.Refund {
	refund := &domain.Refund{
		ID:              r.ID,
		PaymentIntentID: intentId,
		Amount:          FromMinorUnits(r.Amount),
		Status:          refundStatus(r.Status),
		Metadata:        r.Metadata,
	}

	if r.PaymentIntent != nil && r.PaymentIntent.ID != "" {
		refund.PaymentIntentID = r.PaymentIntent.ID
	}

	if r.Charge != nil {
		refund.ChargeID = r.Charge.ID
	}

	return refund
}

func refundStatus(status stripe.RefundStatus) domain.PaymentStatus {
	switch status {
	case stripe.RefundStatusSucceeded:
		return domain.PaymentStatusSucceeded
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		return domain.PaymentStatusFailed
	default:
		return domain.PaymentStatusPending
	}
}
