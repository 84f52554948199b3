package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spacehub/rental-api/internal/auth"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var keysToIgnore = map[string]struct{}{
	"timestamp":    {},
	"requestId":    {},
	"created_at":   {},
	"updated_at":   {},
	"cancelled_at": {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func compareResponse(t testing.TB, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indetermistic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}
		if nested, ok := m[k].(map[string]any); ok {
			cleanMap(nested)
		}
	}
}

func jsonBody(t testing.TB, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return strings.NewReader(string(data))
}

func decodeBody(t testing.TB, res *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(dst))
}

func bearer(t testing.TB, userId int) string {
	t.Helper()

	token, err := auth.NewVerifier(testJWTSecret, "").Sign(userId, time.Hour)
	require.NoError(t, err)

	return "Bearer " + token
}

func executeSQLFile(t testing.TB, db *pgxpool.Pool, path string) {
	t.Helper()

	script, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = db.Exec(context.Background(), string(script))
	require.NoError(t, err, "executing %s", path)
}

// resetState empties every table and the limiter buckets, then seeds users and listings.
func resetState(t testing.TB, app *TestApp) {
	t.Helper()

	_, err := app.DB.Exec(context.Background(), `
		TRUNCATE scheduled_notifications, notifications, payments, bookings, listings, users
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	require.NoError(t, app.RedisClient.FlushDB(context.Background()).Err())

	app.Stripe.Reset()
	app.Mailer.Reset()

	executeSQLFile(t, app.DB, "testdata/users_up.sql")
	executeSQLFile(t, app.DB, "testdata/listings_up.sql")
}

func countRows(t testing.TB, db *pgxpool.Pool, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(context.Background(), query, args...).Scan(&n))

	return n
}

// signedEvent wraps object in a Stripe event envelope and signs it with the webhook secret.
func signedEvent(t testing.TB, eventId string, eventType stripe.EventType, object any) ([]byte, string) {
	t.Helper()

	raw, err := json.Marshal(object)
	require.NoError(t, err)

	payload := []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		eventId, stripe.APIVersion, eventType, raw,
	))

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})

	return signed.Payload, signed.Header
}

// intentObject renders the stored fake intent the way the webhook delivers it.
func intentObject(t testing.TB, app *TestApp, intentId string) map[string]any {
	t.Helper()

	pi, ok := app.Stripe.Intent(intentId)
	require.True(t, ok, "intent %s not found", intentId)

	return map[string]any{
		"id":            pi.ID,
		"object":        "payment_intent",
		"amount":        pi.Amount,
		"currency":      string(pi.Currency),
		"status":        string(pi.Status),
		"metadata":      pi.Metadata,
		"latest_charge": pi.LatestCharge.ID,
	}
}

func deliverWebhook(t testing.TB, app *TestApp, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)

	rec := httptest.NewRecorder()
	app.App.Routes().ServeHTTP(rec, req)

	return rec
}
