// ABOUTME: End-to-end tests for the ledger API over httptest with HS256 tokens.
// ABOUTME: Covers auth, sync idempotency, link visibility and the 403 boundary.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/harperreed/healthlink/internal/cloudstore"
	"github.com/harperreed/healthlink/internal/ledger"
	"github.com/harperreed/healthlink/internal/links"
	"github.com/harperreed/healthlink/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-secret-key-for-unit-tests-only")

type testEnv struct {
	srv     *Server
	store   cloudstore.Backend
	metrics *Metrics
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store, err := cloudstore.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	verifier, err := NewVerifier(AuthConfig{DevKey: testKey, Issuer: "test-issuer"})
	require.NoError(t, err)

	gate := links.NewGate(store)
	metrics := NewMetrics()
	srv := NewServer(Deps{
		Ledger:   ledger.New(store, gate),
		Registry: links.NewRegistry(store),
		Consents: links.NewConsentLog(store),
		Profiles: links.NewProfiles(store),
		Verifier: verifier,
		Metrics:  metrics,
		Logger:   zerolog.Nop(),
	}, opts)
	return &testEnv{srv: srv, store: store, metrics: metrics}
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"iss": "test-issuer",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["custom:role"] = role
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)
	return s
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func batch() models.SyncBatch {
	return models.SyncBatch{
		Weights: []models.WeightEntry{
			{ID: 1, Date: 1000, Weight: 180},
			{ID: 2, Date: 2000, Weight: 178},
			{ID: 3, Date: 1500, Weight: 160, IsGoal: true},
		},
		Water: []models.WaterEntry{{ID: 1, Date: 1000, Amount: 250}},
		Foods: []models.FoodEntry{{ID: 1, Date: 1000, Name: "Oats", MealCategory: "breakfast", Quantity: 1}},
	}
}

func TestRootNeedsNoAuth(t *testing.T) {
	env := newTestEnv(t, Options{})
	code, body := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["message"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, Options{})
	routes := []struct{ method, path string }{
		{http.MethodGet, "/me"},
		{http.MethodPut, "/me"},
		{http.MethodPost, "/register"},
		{http.MethodPost, "/sync"},
		{http.MethodPost, "/consent"},
		{http.MethodGet, "/consent"},
		{http.MethodPost, "/link-doctor"},
		{http.MethodDelete, "/link-doctor/d1"},
		{http.MethodGet, "/patients"},
		{http.MethodGet, "/patients/p1/overview"},
	}
	for _, r := range routes {
		code, body := env.do(t, r.method, r.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, "%s %s", r.method, r.path)
		assert.Equal(t, "Missing or invalid token", body["error"])
	}
}

func TestRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t, Options{})

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "p1", "iss": "test-issuer", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "p1", "iss": "test-issuer", "exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString(testKey)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "p1", "iss": "elsewhere", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testKey)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "p1", "iss": "test-issuer", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"wrong key": wrongKey, "expired": expired, "wrong issuer": wrongIssuer,
		"alg none": unsigned, "garbage": "not.a.jwt",
	} {
		code, _ := env.do(t, http.MethodGet, "/me", tok, nil)
		assert.Equal(t, http.StatusUnauthorized, code, name)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	env := newTestEnv(t, Options{})
	patient := token(t, "p1", "patient")

	for _, tc := range []struct{ method, path, tok string }{
		{http.MethodGet, "/nope", ""},
		{http.MethodGet, "/sync", ""},
		{http.MethodGet, "/sync", patient},
		{http.MethodDelete, "/sync", patient},
		{http.MethodDelete, "/me", patient},
		{http.MethodPost, "/patients", ""},
	} {
		code, body := env.do(t, tc.method, tc.path, tc.tok, nil)
		assert.Equal(t, http.StatusNotFound, code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "Not found", body["error"], "%s %s", tc.method, tc.path)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	env := newTestEnv(t, Options{})
	patient := token(t, "p1", "patient")

	for i := 0; i < 2; i++ {
		code, body := env.do(t, http.MethodPost, "/sync", patient, batch())
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, true, body["synced"])
	}

	items, err := env.store.ListItems(context.Background(), "p1", 0)
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Equal(t, float64(6), testutil.ToFloat64(env.metrics.synced.WithLabelValues("WEIGHT")))
}

func TestSyncRejectsBadPayload(t *testing.T) {
	env := newTestEnv(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token(t, "p1", ""))
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid sync payload"}`, rec.Body.String())
}

func TestSyncBodyLimit(t *testing.T) {
	env := newTestEnv(t, Options{BodyLimit: "1K"})
	big := models.SyncBatch{}
	for i := int64(1); i <= 100; i++ {
		big.Water = append(big.Water, models.WaterEntry{ID: i, Date: i, Amount: 250})
	}
	code, _ := env.do(t, http.MethodPost, "/sync", token(t, "p1", ""), big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}

func TestLinkThenOverview(t *testing.T) {
	env := newTestEnv(t, Options{})
	patient := token(t, "p1", "patient")
	doctor := token(t, "d1", "doctor")

	code, _ := env.do(t, http.MethodPost, "/sync", patient, batch())
	require.Equal(t, http.StatusOK, code)

	code, body := env.do(t, http.MethodGet, "/patients/p1/overview", doctor, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized to view this patient", body["error"])

	code, body = env.do(t, http.MethodPost, "/link-doctor", patient, map[string]string{"doctorId": "d1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["linked"])

	code, body = env.do(t, http.MethodGet, "/patients/p1/overview", doctor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "p1", body["patientId"])
	latest := body["latestWeight"].(map[string]any)
	assert.Equal(t, float64(178), latest["weight"])
	goal := body["goalWeight"].(map[string]any)
	assert.Equal(t, float64(160), goal["weight"])
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(3), summary["WEIGHT"])
	assert.Equal(t, float64(0), summary["MED"])
	assert.Equal(t, false, body["truncated"])

	code, body = env.do(t, http.MethodGet, "/patients", doctor, nil)
	require.Equal(t, http.StatusOK, code)
	patients := body["patients"].([]any)
	require.Len(t, patients, 1)
	assert.Equal(t, "p1", patients[0].(map[string]any)["userId"])
}

func TestRevokeHidesPatientButKeepsConsent(t *testing.T) {
	env := newTestEnv(t, Options{})
	patient := token(t, "p1", "patient")
	doctor := token(t, "d1", "doctor")

	code, _ := env.do(t, http.MethodPost, "/link-doctor", patient, map[string]string{"doctorId": "d1"})
	require.Equal(t, http.StatusOK, code)
	code, body := env.do(t, http.MethodPost, "/consent", patient, map[string]string{"doctorId": "d1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["consented"])

	code, body = env.do(t, http.MethodDelete, "/link-doctor/d1", patient, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["revoked"])

	code, _ = env.do(t, http.MethodGet, "/patients/p1/overview", doctor, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = env.do(t, http.MethodGet, "/patients", doctor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["patients"])

	code, body = env.do(t, http.MethodGet, "/consent", patient, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["consents"], 1)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.denials))
}

func TestRevokeUnknownLinkIs404(t *testing.T) {
	env := newTestEnv(t, Options{})
	code, _ := env.do(t, http.MethodDelete, "/link-doctor/nobody", token(t, "p1", ""), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOverviewOfUnknownPatientIs403(t *testing.T) {
	env := newTestEnv(t, Options{})
	code, _ := env.do(t, http.MethodGet, "/patients/ghost/overview", token(t, "d1", "doctor"), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestLinkDoctorRequiresID(t *testing.T) {
	env := newTestEnv(t, Options{})
	code, body := env.do(t, http.MethodPost, "/link-doctor", token(t, "p1", ""), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "doctorId, practiceId, or inviteCode required", body["error"])
}

func TestProfileAndMe(t *testing.T) {
	env := newTestEnv(t, Options{})
	doc := token(t, "d1", "doctor")

	code, body := env.do(t, http.MethodGet, "/me", doc, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "doctor", body["role"])
	assert.Empty(t, body["linkedDoctors"])

	code, body = env.do(t, http.MethodPut, "/me", doc, map[string]string{"email": "doc@example.com", "practiceId": "clinic"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "d1", body["userId"])

	patient := token(t, "p1", "")
	code, _ = env.do(t, http.MethodPost, "/register", patient, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodPost, "/link-doctor", patient, map[string]string{"practiceId": "clinic", "doctorId": "d1"})
	require.Equal(t, http.StatusOK, code)

	code, body = env.do(t, http.MethodGet, "/me", patient, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "patient", body["role"])
	linked := body["linkedDoctors"].([]any)
	require.Len(t, linked, 1)
	assert.Equal(t, "clinic", linked[0].(map[string]any)["doctorId"])

	code, body = env.do(t, http.MethodPut, "/me", doc, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["error"])
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimit: RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}})
	tok := token(t, "p1", "")

	for i := 0; i < 2; i++ {
		code, _ := env.do(t, http.MethodGet, "/me", tok, nil)
		require.Equal(t, http.StatusOK, code)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	code, _ := env.do(t, http.MethodGet, "/me", token(t, "p2", ""), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, Options{})
	req := httptest.NewRequest(http.MethodOptions, "/sync", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMetricsHandler(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.do(t, http.MethodGet, "/", "", nil)

	rec := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `healthlink_http_requests_total{method="GET",route="/",status="200"} 1`)
}

func TestAccessLogOmitsIDs(t *testing.T) {
	var buf bytes.Buffer
	store, err := cloudstore.OpenBadgerInMemory()
	require.NoError(t, err)
	defer store.Close()
	verifier, err := NewVerifier(AuthConfig{DevKey: testKey})
	require.NoError(t, err)

	srv := NewServer(Deps{
		Ledger:   ledger.New(store, links.NewGate(store)),
		Registry: links.NewRegistry(store),
		Consents: links.NewConsentLog(store),
		Profiles: links.NewProfiles(store),
		Verifier: verifier,
		Logger:   zerolog.New(&buf),
	}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/patients/secret-patient-42/overview", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "doctor-7", "doctor"))
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	logged := buf.String()
	assert.Contains(t, logged, "/patients/:patientId/overview")
	assert.NotContains(t, logged, "secret-patient-42")
	assert.NotContains(t, logged, "doctor-7")
}

func TestPanicBecomes500(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.srv.e.GET("/boom", func(c echo.Context) error { panic("kaboom") })

	code, body := env.do(t, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body["error"])
}
