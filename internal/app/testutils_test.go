package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spacehub/rental-api/api"
	"github.com/spacehub/rental-api/internal/auth"
	"github.com/spacehub/rental-api/internal/mocks"
	"github.com/spacehub/rental-api/internal/ratelimit"
)

const testJWTSecret = "test-secret"

// fakeLimiter allows every request until denied is set.
type fakeLimiter struct {
	denied     bool
	err        error
	retryAfter time.Duration
	calls      []string
}

func (f *fakeLimiter) Allow(_ context.Context, id string) (ratelimit.Result, error) {
	f.calls = append(f.calls, id)

	if f.err != nil {
		return ratelimit.Result{}, f.err
	}

	if f.denied {
		return ratelimit.Result{Allowed: false, RetryAfter: f.retryAfter}, nil
	}

	return ratelimit.Result{Allowed: true, Remaining: 4}, nil
}

type testDeps struct {
	store    *mocks.MockStore
	gateway  *mocks.MockGateway
	notifier *mocks.MockNotifier
	limiter  *fakeLimiter
}

func newTestApplication() (*Application, *testDeps) {
	deps := &testDeps{
		store:    mocks.NewMockStore(),
		gateway:  new(mocks.MockGateway),
		notifier: new(mocks.MockNotifier),
		limiter:  &fakeLimiter{},
	}

	cfg := Config{
		Env:    "test",
		Stripe: StripeConfig{Currency: "usd"},
		JWT:    JWTConfig{Secret: testJWTSecret},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := NewApp(cfg, logger, deps.store, deps.gateway, deps.notifier, deps.limiter)
	if err != nil {
		panic(err)
	}

	return app, deps
}

func bearerToken(t *testing.T, userId int) string {
	t.Helper()

	token, err := auth.NewVerifier(testJWTSecret, "").Sign(userId, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	return "Bearer " + token
}

// executeRequest sends body through the full router. A zero userId sends no credentials.
func executeRequest(t *testing.T, app *Application, method, url string, userId int, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if userId != 0 {
		r.Header.Set("Authorization", bearerToken(t, userId))
	}

	w := httptest.NewRecorder()
	app.Routes().ServeHTTP(w, r)

	return w
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantErrMessage string) {
	t.Helper()

	if w.Code != wantStatus {
		t.Fatalf("Status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}

	if wantStatus >= 200 && wantStatus < 300 {
		return
	}

	var resp api.ValidationErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}

	if wantErrMessage == "" {
		return
	}

	if resp.Message == wantErrMessage {
		return
	}

	for _, vErr := range resp.ValidationErrors {
		if vErr.Issue == wantErrMessage {
			return
		}
	}

	t.Errorf("Error message = %q (validation errors %v), want %q", resp.Message, resp.ValidationErrors, wantErrMessage)
}

func ptr[T any](v T) *T {
	return &v
}
