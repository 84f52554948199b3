package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded         = "charge.refunded"
	EventChargeRefundUpdated    = "charge.refund.updated"
	EventRefundUpdated          = "refund.updated"
)

// Metadata keys attached to intents and refunds.
const (
	MetaPaymentPurpose    = "payment_purpose"
	MetaBookingID         = "booking_id"
	MetaListingID         = "listing_id"
	MetaUserID            = "user_id"
	MetaStartDate         = "start_date"
	MetaEndDate           = "end_date"
	MetaStartTime         = "start_time"
	MetaEndTime           = "end_time"
	MetaPriceType         = "price_type"
	MetaRefundType        = "refund_type"
	MetaOriginalPaymentID = "original_payment_id"
)

const (
	PurposeInitialBooking   = "initial_booking"
	PurposeUpdateAdditional = "update_additional"

	RefundTypeFullCancellation = "full_cancellation"
	RefundTypePartial          = "partial"
)

// Intent is the processor-neutral view of a payment intent. Amounts are in major units.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
	Status       string
	ChargeID     string
	Metadata     map[string]string
}

type Charge struct {
	ID              string
	PaymentIntentID string
	Amount          decimal.Decimal
	AmountRefunded  decimal.Decimal
}

type Refund struct {
	ID              string
	PaymentIntentID string
	ChargeID        string
	Amount          decimal.Decimal
	Status          PaymentStatus
	Metadata        map[string]string
}

type RefundableAmount struct {
	ChargeID         string
	Amount           decimal.Decimal
	AmountRefunded   decimal.Decimal
	AmountRefundable decimal.Decimal
}

// GatewayEvent is a verified, decoded processor webhook event. Intent is set for payment intent
// events, Charge for charge events and Refund for refund status changes.
type GatewayEvent struct {
	ID     string
	Type   string
	Intent *Intent
	Charge *Charge
	Refund *Refund
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CreateRefund(ctx context.Context, intentId string, amount decimal.Decimal, metadata map[string]string) (*Refund, error)
	// GetRefundableAmount tolerates charges that are not materialized yet by retrying the lookup
	// before failing with ErrChargeUnavailable.
	GetRefundableAmount(ctx context.Context, intentId string) (*RefundableAmount, error)
	LatestRefund(ctx context.Context, intentId string) (*Refund, error)
	ParseWebhook(payload []byte, signature string) (*GatewayEvent, error)
}
