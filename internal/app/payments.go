package app

import (
	"errors"
	"io"
	"net/http"

	"github.com/spacehub/rental-api/api"
	"github.com/spacehub/rental-api/internal/checkout"
	"github.com/spacehub/rental-api/internal/domain"
	"github.com/spacehub/rental-api/internal/refund"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const maxWebhookBytes = 65_536

func (app *Application) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var input api.CreatePaymentIntentRequest

	if !app.decodeAndValidate(w, r, &input) {
		return
	}

	intent, err := app.checkout.StartBooking(r.Context(), checkout.BookingIntentInput{
		UserID:    app.contextGetUserId(r),
		ListingID: input.ListingId,
		PriceUnit: domain.PriceUnit(input.PriceType),
		Slot:      slotRequest(input.StartDate, input.EndDate, input.StartTime, input.EndTime),
		Amount:    input.Amount,
		Currency:  deref(input.Currency),
	})
	app.metrics.intentRequested(r.Context(), domain.PurposeInitialBooking, err)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	app.writeIntent(w, r, intent)
}

func (app *Application) UpdatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var input api.UpdatePaymentIntentRequest

	if !app.decodeAndValidate(w, r, &input) {
		return
	}

	intent, err := app.checkout.StartUpdate(r.Context(), checkout.UpdateIntentInput{
		BookingID:  input.BookingId,
		UserID:     app.contextGetUserId(r),
		Slot:       slotRequest(input.StartDate, input.EndDate, input.StartTime, input.EndTime),
		Additional: input.AdditionalAmount,
		Currency:   deref(input.Currency),
	})
	app.metrics.intentRequested(r.Context(), domain.PurposeUpdateAdditional, err)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	app.writeIntent(w, r, intent)
}

func (app *Application) writeIntent(w http.ResponseWriter, r *http.Request, intent *domain.Intent) {
	resp := api.PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentId: intent.ID,
		Amount:          intent.Amount.StringFixed(2),
		Currency:        intent.Currency,
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// HandleStripeWebhook verifies and applies a processor event. Every failure is answered with 400
// so the processor retries delivery; replays of applied events succeed without effect.
func (app *Application) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("unable to read webhook body"))
		return
	}

	ctx, span := otel.Tracer(instrumentationName).Start(r.Context(), "webhook.reconcile")
	defer span.End()

	err = app.reconciler.Handle(ctx, payload, r.Header.Get("Stripe-Signature"))
	app.metrics.webhookDelivered(ctx, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook rejected")
		app.logError(r, err)
		app.errorResponse(w, r, http.StatusBadRequest, webhookErrorMessage(err))
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.WebhookResponse{Received: true}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func webhookErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return domain.ErrInvalidSignature.Error()
	case errors.Is(err, domain.ErrInvalidEventPayload):
		return err.Error()
	default:
		return "webhook could not be processed"
	}
}

func (app *Application) RefundBooking(w http.ResponseWriter, r *http.Request, bookingId int) {
	result, err := app.refunds.CancelWithFullRefund(r.Context(), bookingId, app.contextGetUserId(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	app.metrics.refundIssued(r.Context(), domain.RefundTypeFullCancellation, len(result.RefundIDs), result.TotalRefunded)

	status := string(domain.BookingStatusCancelled)
	if result.Pending {
		status = string(domain.BookingStatusPendingCancellation)
	}

	resp := api.FullRefundResponse{
		TotalRefundAmount: result.TotalRefunded.StringFixed(2),
		RefundIds:         result.RefundIDs,
		Status:            status,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) PartialRefund(w http.ResponseWriter, r *http.Request) {
	var input api.PartialRefundRequest

	if !app.decodeAndValidate(w, r, &input) {
		return
	}

	result, err := app.refunds.PartialRefund(r.Context(), refund.PartialRefundInput{
		BookingID: input.BookingId,
		UserID:    app.contextGetUserId(r),
		Amount:    input.RefundAmount,
		NewStart:  input.NewStartDate,
		NewEnd:    input.NewEndDate,
	})
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	app.metrics.refundIssued(r.Context(), domain.RefundTypePartial, 1, result.Amount)

	resp := api.PartialRefundResponse{
		RefundId:     result.RefundID,
		RefundAmount: result.Amount.StringFixed(2),
		Booking:      toApiBooking(result.Booking),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingPayments(w http.ResponseWriter, r *http.Request, bookingId int) {
	payments, err := app.checkout.History(r.Context(), bookingId, app.contextGetUserId(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.PaymentHistoryResponse{Payments: toApiPayments(payments)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
