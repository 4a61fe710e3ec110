package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDaemonClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/v1/info":
				_ = json.NewEncoder(w).Encode(map[string]string{"role": "trader"})
			case "/v1/trades/t1/payment-sent":
				require.Equal(t, http.MethodPost, r.Method)
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "trade is not in the expected state",
				})
			case "/v1/webhooks/w1":
				require.Equal(t, http.MethodDelete, r.Method)
				w.WriteHeader(http.StatusNoContent)
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		},
	))
	t.Cleanup(srv.Close)

	client, err := newDaemonClient(srv.URL+"/", "")
	require.NoError(t, err)

	var info map[string]string
	err = client.get("/v1/info", &info)
	require.NoError(t, err)
	require.Equal(t, "trader", info["role"])

	err = client.post(tradePath("t1", "payment-sent"), nil, nil)
	require.EqualError(t, err, "trade is not in the expected state")

	err = client.delete("/v1/webhooks/w1", nil)
	require.NoError(t, err)

	err = client.get("/v1/unknown", nil)
	require.EqualError(t, err, "daemon replied with status 500")
}

func TestNewDaemonClientInvalidCert(t *testing.T) {
	_, err := newDaemonClient("https://localhost:9950", "/not/existing/cert.pem")
	require.Error(t, err)
}

func TestPaths(t *testing.T) {
	require.Equal(t, "/v1/trades/a%2Fb", tradePath("a/b", ""))
	require.Equal(t, "/v1/disputes/d_0/close", disputePath("d_0", "close"))
}

func TestMerge(t *testing.T) {
	merged := merge(
		map[string]string{"rpcserver": "localhost:9950", "tls_cert_path": ""},
		map[string]string{"tls_cert_path": "/tls/cert.pem"},
	)
	require.Equal(t, map[string]string{
		"rpcserver":     "localhost:9950",
		"tls_cert_path": "/tls/cert.pem",
	}, merged)
}
