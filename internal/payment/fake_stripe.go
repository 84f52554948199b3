package payment

import (
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v82"
)

// FakeStripe is an in-memory StripeAPI. Intents succeed with a charge immediately and refunds
// succeed, unless Err is set.
type FakeStripe struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*stripe.PaymentIntent
	refunds map[string][]*stripe.Refund

	Err error
}

func NewFakeStripe() *FakeStripe {
	return &FakeStripe{
		intents: make(map[string]*stripe.PaymentIntent),
		refunds: make(map[string][]*stripe.Refund),
	}
}

func (f *FakeStripe) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	f.seq++
	id := fmt.Sprintf("pi_fake_%d", f.seq)

	pi := &stripe.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       *params.Amount,
		Currency:     stripe.Currency(*params.Currency),
		Status:       stripe.PaymentIntentStatusSucceeded,
		Metadata:     params.Metadata,
		LatestCharge: &stripe.Charge{
			ID:     fmt.Sprintf("ch_fake_%d", f.seq),
			Amount: *params.Amount,
		},
	}

	f.intents[id] = pi

	return pi, nil
}

func (f *FakeStripe) GetPaymentIntent(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	pi, ok := f.intents[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: 404, Code: stripe.ErrorCodeResourceMissing, Msg: "no such payment intent"}
	}

	return pi, nil
}

func (f *FakeStripe) NewRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	pi, ok := f.intents[*params.PaymentIntent]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: 404, Code: stripe.ErrorCodeResourceMissing, Msg: "no such payment intent"}
	}

	charge := pi.LatestCharge
	if charge.AmountRefunded+*params.Amount > charge.Amount {
		return nil, &stripe.Error{HTTPStatusCode: 400, Msg: "refund exceeds the charge amount"}
	}

	f.seq++
	charge.AmountRefunded += *params.Amount
	charge.Refunded = charge.AmountRefunded == charge.Amount

	r := &stripe.Refund{
		ID:            fmt.Sprintf("re_fake_%d", f.seq),
		Amount:        *params.Amount,
		Status:        stripe.RefundStatusSucceeded,
		PaymentIntent: &stripe.PaymentIntent{ID: pi.ID},
		Charge:        &stripe.Charge{ID: charge.ID},
		Metadata:      params.Metadata,
	}

	f.refunds[pi.ID] = append(f.refunds[pi.ID], r)

	return r, nil
}

func (f *FakeStripe) ListRefunds(params *stripe.RefundListParams) ([]*stripe.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	all := f.refunds[*params.PaymentIntent]

	// newest first, like the API
	refunds := make([]*stripe.Refund, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		refunds = append(refunds, all[i])
	}

	if params.Limit != nil && int64(len(refunds)) > *params.Limit {
		refunds = refunds[:*params.Limit]
	}

	return refunds, nil
}

// Intent returns a copy of a stored intent for assertions.
func (f *FakeStripe) Intent(id string) (stripe.PaymentIntent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pi, ok := f.intents[id]
	if !ok {
		return stripe.PaymentIntent{}, false
	}

	return *pi, true
}

// RefundCount reports how many refunds were created against an intent.
func (f *FakeStripe) RefundCount(intentId string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.refunds[intentId])
}

func (f *FakeStripe) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq = 0
	f.intents = make(map[string]*stripe.PaymentIntent)
	f.refunds = make(map[string][]*stripe.Refund)
	f.Err = nil
}
