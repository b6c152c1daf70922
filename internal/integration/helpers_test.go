package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/app"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var keysToIgnore = map[string]struct{}{
	"timestamp":       {},
	"requestId":       {},
	"createdAt":       {},
	"bookingDate":     {},
	"paymentDeadline": {},
	"generatedAt":     {},
	"lastUpdated":     {},
	"reference":       {},
	"startsAt":        {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []*http.Cookie) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	return req, nil
}

// authenticatedCookie commits a session carrying the user id straight into
// the session store, standing in for the external auth frontend.
func authenticatedCookie(t testing.TB, testApp *TestApp, userID int) *http.Cookie {
	ctx, err := testApp.SessionManager.Load(context.Background(), "")
	require.NoError(t, err)

	testApp.SessionManager.Put(ctx, app.SessionKeyUserId.String(), userID)

	token, _, err := testApp.SessionManager.Commit(ctx)
	require.NoError(t, err)

	return &http.Cookie{Name: "session_id", Value: token}
}

// guestCookie commits an anonymous session, giving the caller a stable hold
// owner identity across requests.
func guestCookie(t testing.TB, testApp *TestApp) *http.Cookie {
	ctx, err := testApp.SessionManager.Load(context.Background(), "")
	require.NoError(t, err)

	testApp.SessionManager.Put(ctx, app.SessionKeyGuest.String(), true)

	token, _, err := testApp.SessionManager.Commit(ctx)
	require.NoError(t, err)

	return &http.Cookie{Name: "session_id", Value: token}
}

func compareResponse(t testing.TB, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indeterministic fields while comparing
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
		if list, ok := m[k].([]any); ok {
			for _, item := range list {
				if nested, ok := item.(map[string]any); ok {
					cleanMap(nested)
				}
			}
		}
	}
}
