package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tc.com/rate-oracle/pkg/logging"
	"tc.com/rate-oracle/pkg/oracle"
	"tc.com/rate-oracle/pkg/server/sources"
	"tc.com/rate-oracle/pkg/server/sources/static"
)

const testAdminToken = "test-token"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	source, err := static.NewFixedSource(map[string]interface{}{
		"prices": map[string]interface{}{
			"ATOM/USD": "8.00",
			"OSMO/USD": "2.00",
		},
		"decimals": 8,
	})
	require.NoError(t, err)
	require.NoError(t, source.Start(context.Background()))
	t.Cleanup(func() { _ = source.Stop() })

	engine := oracle.NewEngine(oracle.MetadataFunc(func(string) (uint8, error) {
		return 6, nil
	}))

	atomFeed, err := source.Feed("ATOM/USD")
	require.NoError(t, err)
	require.NoError(t, engine.RegisterSource("ATOM", atomFeed))

	osmoFeed, err := source.Feed("OSMO/USD")
	require.NoError(t, err)
	require.NoError(t, engine.RegisterSource("OSMO", osmoFeed))

	feeds := map[string]sources.Source{"static.fixed": source}
	srv := NewServer("", engine, []sources.Source{source}, feeds, testAdminToken, logging.NewNoopLogger())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", nil))
}

func TestPriceEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]interface{}
	status := getJSON(t, ts.URL+"/v1/price/ATOM", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ATOM", body["asset"])
	require.Equal(t, "8000000000000000000", body["price"])
	require.Equal(t, float64(18), body["decimals"])
}

func TestPriceEndpointUnknownAsset(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/price/DOGE", nil))
}

func TestCrossEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]interface{}
	status := getJSON(t, ts.URL+"/v1/cross/ATOM/OSMO", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "4000000000000000000", body["rate"])
}

func TestHistoricalCrossEndpoint(t *testing.T) {
	ts := newTestServer(t)

	url := fmt.Sprintf("%s/v1/cross/ATOM/OSMO/historical?base_round=1&quote_round=1&timestamp=%d",
		ts.URL, time.Now().Unix())

	var body map[string]interface{}
	status := getJSON(t, url, &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "4000000000000000000", body["rate"])
}

func TestHistoricalCrossRejectsEarlyTimestamp(t *testing.T) {
	ts := newTestServer(t)

	url := fmt.Sprintf("%s/v1/cross/ATOM/OSMO/historical?base_round=1&quote_round=1&timestamp=%d",
		ts.URL, time.Now().Add(-time.Hour).Unix())
	require.Equal(t, http.StatusBadRequest, getJSON(t, url, nil))
}

func TestHistoricalCrossRequiresParams(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/cross/ATOM/OSMO/historical?base_round=1", nil))
}

func TestListBindings(t *testing.T) {
	ts := newTestServer(t)

	var body []map[string]interface{}
	status := getJSON(t, ts.URL+"/v1/bindings", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body, 2)
	require.Equal(t, "ATOM", body[0]["asset"])
	require.Equal(t, "OSMO", body[1]["asset"])
}

func TestRegisterBindingRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	payload := []byte(`{"asset":"ATOM2","source":"static.fixed","feed":"ATOM/USD"}`)
	resp, err := http.Post(ts.URL+"/v1/bindings", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterBinding(t *testing.T) {
	ts := newTestServer(t)

	payload := []byte(`{"asset":"ATOM2","source":"static.fixed","feed":"ATOM/USD"}`)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/bindings", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	status := getJSON(t, ts.URL+"/v1/price/ATOM2", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "8000000000000000000", body["price"])
}

func TestRegisterBindingUnknownFeed(t *testing.T) {
	ts := newTestServer(t)

	payload := []byte(`{"asset":"X","source":"static.fixed","feed":"X/USD"}`)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/bindings", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPricesEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body []map[string]interface{}
	status := getJSON(t, ts.URL+"/v1/prices", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body, 2)
}
