package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/spacehub/rental-api/api"
	"github.com/spacehub/rental-api/internal/domain"
	appvalidator "github.com/spacehub/rental-api/internal/validator"
)

const (
	ErrInternalServer     = "The server encountered a problem and could not process your request"
	ErrNotFound           = "The requested resource not found"
	ErrMethodNotAllowed   = "The method is not supported for this resource"
	ErrUnauthorizedAccess = "You must be authenticated to access this resource"
	ErrFailedValidation   = "One or more fields are invalid"
	ErrRateLimitExceeded  = "Too many payment requests, please retry later"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.errorResponseWithHeaders(w, r, status, message, nil)
}

func (app *Application) errorResponseWithHeaders(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	message string,
	headers http.Header) {

	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, headers)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	headers := http.Header{"WWW-Authenticate": []string{"Bearer"}}
	app.errorResponseWithHeaders(w, r, http.StatusUnauthorized, ErrUnauthorizedAccess, headers)
}

func (app *Application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	headers := http.Header{"Retry-After": []string{strconv.Itoa(seconds)}}
	app.errorResponseWithHeaders(w, r, http.StatusTooManyRequests, ErrRateLimitExceeded, headers)
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.badRequestResponse(w, r, err)
		return
	}

	resp := api.ValidationErrorResponse{
		Message:          ErrFailedValidation,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: make([]api.ValidationError, 0, len(validationErrors)),
	}

	for _, fieldErr := range validationErrors {
		resp.ValidationErrors = append(resp.ValidationErrors, api.ValidationError{
			Field: fieldErr.Field(),
			Issue: appvalidator.ValidationMessage(fieldErr),
		})
	}

	err = app.writeJSON(w, http.StatusBadRequest, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// domainErrorResponse maps the booking and payment error taxonomy to HTTP statuses. Anything it
// does not recognize is a server error.
func (app *Application) domainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		app.logError(r, err)
		app.errorResponse(w, r, http.StatusBadRequest, domain.ErrInvalidSignature.Error())

	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)

	case errors.Is(err, domain.ErrBookingNotActive),
		errors.Is(err, domain.ErrNoRefundablePayments),
		errors.Is(err, domain.ErrNoUnrefundedPayment):
		app.errorResponse(w, r, http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrBookingConflict),
		errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrAlreadyInProgress),
		errors.Is(err, domain.ErrEditConflict),
		errors.Is(err, domain.ErrDuplicateRecord):
		app.errorResponse(w, r, http.StatusConflict, err.Error())

	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidTimeRange),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrOutsideAvailability),
		errors.Is(err, domain.ErrPriceMismatch),
		errors.Is(err, domain.ErrPriceUnitMismatch),
		errors.Is(err, domain.ErrOwnListing),
		errors.Is(err, domain.ErrRefundExceedsTotal),
		errors.Is(err, domain.ErrExceedsRefundable),
		errors.Is(err, domain.ErrInvalidEventPayload):
		app.badRequestResponse(w, r, err)

	case errors.Is(err, domain.ErrChargeUnavailable),
		errors.Is(err, domain.ErrRefundFailed):
		app.logError(r, err)
		app.errorResponse(w, r, http.StatusInternalServerError, err.Error())

	default:
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) paramErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	var paramErr *api.InvalidParamFormatError
	if errors.As(err, &paramErr) {
		app.badRequestResponse(w, r, fmt.Errorf("invalid %s parameter", paramErr.ParamName))
		return
	}

	app.badRequestResponse(w, r, err)
}
