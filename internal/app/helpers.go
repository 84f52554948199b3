package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spacehub/rental-api/api"
	"github.com/spacehub/rental-api/internal/booking"
	"github.com/spacehub/rental-api/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20

	maxBodyBytes = 1_048_576
)

type contextKey string

const (
	userIdContextKey = contextKey("userId")
	loggerContextKey = contextKey("logger")
)

func (app *Application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func (app *Application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// decodeAndValidate reads the body into dst and checks its struct tags. It writes the error
// response itself and reports whether the handler may continue.
func (app *Application) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := app.readJSON(w, r, dst)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return false
	}

	err = app.validator.Struct(dst)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return false
	}

	return true
}

func contextSetUserId(r *http.Request, userId int) *http.Request {
	ctx := context.WithValue(r.Context(), userIdContextKey, userId)
	return r.WithContext(ctx)
}

func (app *Application) contextGetUserId(r *http.Request) int {
	userId, ok := r.Context().Value(userIdContextKey).(int)
	if !ok {
		panic("missing user id from context")
	}

	return userId
}

func contextSetLogger(r *http.Request, logger *slog.Logger) *http.Request {
	ctx := context.WithValue(r.Context(), loggerContextKey, logger)
	return r.WithContext(ctx)
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger)
	if !ok {
		return app.logger
	}

	return logger
}

func toPagination(params api.GetUserBookingsParams) domain.Pagination {
	pagination := domain.Pagination{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}

	if params.Page != nil {
		pagination.Page = *params.Page
	}
	if params.PageSize != nil {
		pagination.PageSize = *params.PageSize
	}
	if params.Sort != nil {
		pagination.Sort = string(*params.Sort)
	}

	return pagination
}

func toApiMetadata(metadata *domain.Metadata) api.Metadata {
	if metadata == nil {
		return api.Metadata{}
	}

	return api.Metadata{
		CurrentPage:  metadata.CurrentPage,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		PageSize:     metadata.PageSize,
		TotalRecords: metadata.TotalRecords,
	}
}

func toApiBooking(b *domain.Booking) api.Booking {
	resp := api.Booking{
		Id:            b.ID,
		UserId:        b.UserID,
		ListingId:     b.ListingID,
		BookingStart:  b.Start,
		BookingEnd:    b.End,
		TotalPrice:    b.TotalPrice.StringFixed(2),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		CancelledAt:   b.CancelledAt,
	}

	if b.RefundAmount.Valid {
		refunded := b.RefundAmount.Decimal.StringFixed(2)
		resp.RefundAmount = &refunded
	}

	return resp
}

func toApiBookings(bookings []domain.Booking) []api.Booking {
	resp := make([]api.Booking, len(bookings))

	for i := range bookings {
		resp[i] = toApiBooking(&bookings[i])
	}

	return resp
}

func toApiPayments(payments []domain.Payment) []api.Payment {
	resp := make([]api.Payment, len(payments))

	for i, p := range payments {
		resp[i] = api.Payment{
			Id:                p.ID,
			BookingId:         p.BookingID,
			StripePaymentId:   p.StripePaymentId,
			StripeChargeId:    p.StripeChargeId,
			Amount:            p.Amount.StringFixed(2),
			Currency:          p.Currency,
			Status:            string(p.Status),
			PaymentType:       string(p.Type),
			OriginalPaymentId: p.OriginalPaymentID,
			CreatedAt:         p.CreatedAt,
		}
	}

	return resp
}

func slotRequest(startDate string, endDate, startTime, endTime *string) booking.SlotRequest {
	return booking.SlotRequest{
		StartDate: startDate,
		EndDate:   deref(endDate),
		StartTime: deref(startTime),
		EndTime:   deref(endTime),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
