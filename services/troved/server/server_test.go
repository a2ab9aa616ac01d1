package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"solusd/core"
	"solusd/core/genesis"
	"solusd/crypto"
	"solusd/native/fixedpoint"
	"solusd/native/issuance"
	"solusd/native/oracle"
	"solusd/native/trove"
	"solusd/storage"
	"solusd/storage/journal"
)

const testSecret = "troved-test-secret"

type noPauses struct{}

func (noPauses) IsPaused(string) bool { return false }

type fixture struct {
	server  *Server
	handler http.Handler
	journal *journal.Journal
	now     time.Time
}

func newFixture(t *testing.T, withGenesis bool) *fixture {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	feed := oracle.NewManualFeed("USD")
	require.NoError(t, feed.SetDecimal("ETH", "200", now))
	params := trove.DefaultParams()
	params.GasCompensation = fixedpoint.MustParseDecimal("10")
	params.MinNetDebt = fixedpoint.MustParseDecimal("90")
	params.BootstrapPeriod = 0
	proc, err := core.NewProcessor(storage.NewMemDB(), feed, core.Config{
		Trove:    params,
		Issuance: issuance.DefaultParams(),
		Asset:    "ETH",
		Pauses:   noPauses{},
	}, core.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(proc.Close)
	if withGenesis {
		require.NoError(t, proc.InitGenesis(genesis.NewGenesisSpec(now)))
	}

	j, err := journal.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	auth, err := NewAuthenticator(AuthConfig{HMACSecret: testSecret, Issuer: "solusd"}, nil)
	require.NoError(t, err)
	srv, err := New(Config{
		Processor:     proc,
		Journal:       j,
		Authenticator: auth,
		RateLimiter:   NewRateLimiter(RateLimit{RequestsPerMinute: 6000, Burst: 100}),
		Gatherer:      prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return &fixture{server: srv, handler: srv.Handler(), journal: j, now: now}
}

func owner(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func signToken(t *testing.T, subject, issuer string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) tokenFor(t *testing.T, addr crypto.Address) string {
	return signToken(t, addr.String(), "solusd", time.Now().Add(time.Hour))
}

func TestHealthRequiresGenesis(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f = newFixture(t, true)
	rec = f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOperationsRequireValidToken(t *testing.T) {
	f := newFixture(t, true)
	body := map[string]interface{}{"type": "open_trove", "collateral": "10", "amount": "1000", "maxFee": "0.05"}

	rec := f.do(t, http.MethodPost, "/v1/operations", "", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	wrongIssuer := signToken(t, owner(1).String(), "other", time.Now().Add(time.Hour))
	rec = f.do(t, http.MethodPost, "/v1/operations", wrongIssuer, body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := signToken(t, owner(1).String(), "solusd", time.Now().Add(-time.Hour))
	rec = f.do(t, http.MethodPost, "/v1/operations", expired, body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	badSubject := signToken(t, "not-an-address", "solusd", time.Now().Add(time.Hour))
	rec = f.do(t, http.MethodPost, "/v1/operations", badSubject, body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExecuteJournalsReceipt(t *testing.T) {
	f := newFixture(t, true)
	alice := owner(1)
	token := f.tokenFor(t, alice)

	rec := f.do(t, http.MethodPost, "/v1/operations", token, map[string]interface{}{
		"type": "open_trove", "collateral": "10", "amount": "1000", "maxFee": "0.05",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var receipt struct {
		ID          string `json:"id"`
		StateDigest string `json:"stateDigest"`
		Operation   struct {
			Type   string `json:"type"`
			Caller string `json:"caller"`
		} `json:"operation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	require.Equal(t, "open_trove", receipt.Operation.Type)
	require.Equal(t, alice.String(), receipt.Operation.Caller)
	require.Len(t, receipt.StateDigest, 64)

	rec = f.do(t, http.MethodGet, "/v1/receipts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []journal.ReceiptRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	require.Equal(t, receipt.ID, records[0].ID.String())

	rec = f.do(t, http.MethodGet, "/v1/receipts/"+receipt.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Other owners cannot read alice's receipts.
	rec = f.do(t, http.MethodGet, "/v1/receipts/"+receipt.ID, f.tokenFor(t, owner(2)), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/troves/"+alice.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		EntireDebt string `json:"entireDebt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, fixedpoint.MustParseDecimal("1015").Dec(), view.EntireDebt)

	rec = f.do(t, http.MethodGet, "/v1/troves", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var owners []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &owners))
	require.Equal(t, []string{alice.String()}, owners)

	rec = f.do(t, http.MethodGet, "/v1/system", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExecuteMapsEngineErrors(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodPost, "/v1/operations", f.tokenFor(t, owner(1)), map[string]interface{}{
		"type": "open_trove", "collateral": "10", "amount": "1000", "maxFee": "0.05",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cases := []struct {
		name     string
		body     map[string]interface{}
		status   int
		category string
	}{
		{"undercollateralised", map[string]interface{}{"type": "open_trove", "collateral": "1", "amount": "1000", "maxFee": "0.05"}, http.StatusConflict, "state"},
		{"unknown op", map[string]interface{}{"type": "mint_everything"}, http.StatusBadRequest, "parameter"},
		{"bad amount", map[string]interface{}{"type": "stake", "amount": "-1"}, http.StatusBadRequest, "parameter"},
		{"fee exceeded", map[string]interface{}{"type": "redeem_collateral", "amount": "500", "maxFee": "0.01"}, http.StatusUnprocessableEntity, "fee"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/operations", f.tokenFor(t, owner(3)), tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tc.category, resp.Category)
		})
	}
}

func TestQueriesRejectBadAddress(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/v1/deposits/garbage", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/surplus/"+owner(9).String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 2})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiterIgnoresForwardedHeadersByDefault(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	codes := make([]int, 0, 3)
	for i, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if i%2 == 0 {
			req.Header.Set("X-Real-IP", spoofed)
		} else {
			req.Header.Set("X-Forwarded-For", spoofed+", 10.0.0.9")
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestClientIDHonoursProxyHeadersWhenTrusted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.9")
	require.Equal(t, "10.0.0.1", clientID(req, false))
	require.Equal(t, "203.0.113.7", clientID(req, true))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	require.Equal(t, "198.51.100.4", clientID(req, true))

	req.Header.Set("X-Real-IP", "not-an-ip")
	require.Equal(t, "203.0.113.7", clientID(req, true))
}
