package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spacehub/rental-api/api"
)

func (app *Application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// logRequest attaches a logger carrying the request id to the request context.
func (app *Application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := app.logger.With("request_id", middleware.GetReqID(r.Context()))

		next.ServeHTTP(w, contextSetLogger(r, logger))
	})
}

// authenticate verifies the bearer token of operations that declare the BearerAuth scheme.
// Public operations pass through untouched.
func (app *Application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Value(api.BearerAuthScopes) == nil {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		userId, err := app.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			app.contextGetLogger(r).Info("rejected bearer token", "error", err)
			app.unauthorizedAccessResponse(w, r)
			return
		}

		r = contextSetUserId(r, userId)
		r = contextSetLogger(r, app.contextGetLogger(r).With("user_id", userId))

		next.ServeHTTP(w, r)
	})
}

// rateLimitPayments throttles the authenticated payment operations per user. The limiter failing
// open keeps payments available while Redis is down.
func (app *Application) rateLimitPayments(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, "/payments/") {
			next.ServeHTTP(w, r)
			return
		}

		userId, ok := r.Context().Value(userIdContextKey).(int)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		result, err := app.limiter.Allow(r.Context(), strconv.Itoa(userId))
		if err != nil {
			app.contextGetLogger(r).Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if !result.Allowed {
			app.rateLimitExceededResponse(w, r, result.RetryAfter)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		next.ServeHTTP(w, r)
	})
}

// validateRequest checks parameters and bodies against the OpenAPI document before the handler
// decodes them.
func (app *Application) validateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := app.openapi.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}

		err = openapi3filter.ValidateRequest(r.Context(), input)
		if err != nil {
			app.badRequestResponse(w, r, requestValidationError(err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestValidationError(err error) error {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return err
	}

	detail := reqErr.Reason

	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		detail = schemaErr.Reason
		if path := schemaErr.JSONPointer(); len(path) > 0 {
			detail = fmt.Sprintf("%s: %s", strings.Join(path, "."), detail)
		}
	} else if detail == "" && reqErr.Err != nil {
		detail = reqErr.Err.Error()
	}

	if reqErr.Parameter != nil {
		return fmt.Errorf("invalid %s parameter %s: %s", reqErr.Parameter.In, reqErr.Parameter.Name, detail)
	}

	return fmt.Errorf("invalid request body: %s", detail)
}
