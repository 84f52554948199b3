package payment

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeAPI is the slice of the Stripe API the gateway talks to.
type StripeAPI interface {
	NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	NewRefund(params *stripe.RefundParams) (*stripe.Refund, error)
	ListRefunds(params *stripe.RefundListParams) ([]*stripe.Refund, error)
}

// stripeClient calls the Stripe API through the package level clients configured by stripe.Key.
type stripeClient struct{}

func (stripeClient) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(params)
}

func (stripeClient) GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, params)
}

func (stripeClient) NewRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	return refund.New(params)
}

func (stripeClient) ListRefunds(params *stripe.RefundListParams) ([]*stripe.Refund, error) {
	refunds := make([]*stripe.Refund, 0)

	i := refund.List(params)
	for i.Next() {
		refunds = append(refunds, i.Refund())

		if params.Limit != nil && int64(len(refunds)) >= *params.Limit {
			break
		}
	}

	if err := i.Err(); err != nil {
		return nil, err
	}

	return refunds, nil
}
