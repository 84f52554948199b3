package domain

import "errors"

var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrEditConflict         = errors.New("edit conflict")
	ErrDuplicateRecord      = errors.New("duplicate record")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidTimeRange     = errors.New("booking end must be after booking start")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrRefundExceedsTotal   = errors.New("refunded amount exceeds the booking total")
	ErrInvalidPaymentRecord = errors.New("invalid payment record")

	ErrBookingConflict     = errors.New("the selected time slot overlaps an existing booking")
	ErrOutsideAvailability = errors.New("the selected time slot is outside the listing availability")
	ErrPriceMismatch       = errors.New("the submitted total does not match the listing price")
	ErrPriceUnitMismatch   = errors.New("the price type does not match the listing")
	ErrOwnListing          = errors.New("listing owners cannot book their own listing")
	ErrBookingNotActive    = errors.New("booking is not active")
	ErrAlreadyCancelled    = errors.New("booking is already cancelled")
	ErrAlreadyInProgress   = errors.New("a cancellation is already in progress for this booking")

	ErrNoRefundablePayments = errors.New("no refundable payments found for this booking")
	ErrNoUnrefundedPayment  = errors.New("no unrefunded payment found for this booking")
	ErrExceedsRefundable    = errors.New("refund amount exceeds the refundable amount")
	ErrChargeUnavailable    = errors.New("charge is not available for this payment yet")
	ErrRefundFailed         = errors.New("the payment processor rejected the refund")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidEventPayload  = errors.New("invalid webhook event payload")
)
