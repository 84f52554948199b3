package app

import (
	"errors"
	"net/http"

	"github.com/spacehub/rental-api/api"
	"github.com/spacehub/rental-api/internal/booking"
	"github.com/spacehub/rental-api/internal/domain"
)

func (app *Application) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var input api.CreateBookingRequest

	if !app.decodeAndValidate(w, r, &input) {
		return
	}

	unit := domain.PriceUnit(input.PriceType)

	start, end, err := booking.ResolveSlot(unit, slotRequest(input.StartDate, input.EndDate, input.StartTime, input.EndTime))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	created, err := app.bookings.Create(r.Context(), booking.CreateInput{
		UserID:    app.contextGetUserId(r),
		ListingID: input.ListingId,
		Start:     start,
		End:       end,
		Total:     input.Total,
		PriceUnit: unit,
	})
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, api.BookingResponse{Booking: toApiBooking(created)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetUserBookings(w http.ResponseWriter, r *http.Request, params api.GetUserBookingsParams) {
	err := app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	bookings, metadata, err := app.bookings.GetForUser(r.Context(), app.contextGetUserId(r), toPagination(params))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.UserBookingsResponse{
		Bookings: toApiBookings(bookings),
		Metadata: toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetListingBookings(w http.ResponseWriter, r *http.Request, listingId int) {
	bookings, err := app.bookings.GetForListing(r.Context(), listingId, app.contextGetUserId(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.ListingBookingsResponse{Bookings: toApiBookings(bookings)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBooking(w http.ResponseWriter, r *http.Request, id int) {
	b, err := app.bookings.GetByID(r.Context(), id, app.contextGetUserId(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.BookingResponse{Booking: toApiBooking(b)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) UpdateBooking(w http.ResponseWriter, r *http.Request, id int) {
	var input api.UpdateBookingRequest

	if !app.decodeAndValidate(w, r, &input) {
		return
	}

	updated, err := app.bookings.Update(r.Context(), id, app.contextGetUserId(r), input.BookingStart, input.BookingEnd)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.BookingResponse{Booking: toApiBooking(updated)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBooking(w http.ResponseWriter, r *http.Request, id int) {
	cancelled, err := app.bookings.Cancel(r.Context(), id, app.contextGetUserId(r))
	if err != nil {
		// a repeated plain cancel is a bad request; the refund route reports it as a conflict
		if errors.Is(err, domain.ErrAlreadyCancelled) {
			app.badRequestResponse(w, r, err)
			return
		}
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.BookingResponse{Booking: toApiBooking(cancelled)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
