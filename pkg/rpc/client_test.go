package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsEnvelopeAndBasicAuth(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rpcuser", user)
		assert.Equal(t, "rpcpass", pass)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getblockhash", req["method"])
		assert.Equal(t, []any{float64(100)}, req["params"])

		_ = json.NewEncoder(w).Encode(map[string]any{"result": "deadbeef"})
	})

	client := NewClient(ClientOpts{
		Endpoint:    srv.URL,
		Credentials: &Credentials{User: "rpcuser", Pass: "rpcpass"},
	})

	var hash string
	require.NoError(t, client.Call(context.Background(), "getblockhash", []any{100}, &hash))
	assert.Equal(t, "deadbeef", hash)
}

func TestClientUnwrapsNodeError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": nil,
			"error":  map[string]any{"code": -8, "message": "Block height out of range"},
		})
	})

	client := NewClient(ClientOpts{Endpoint: srv.URL})

	err := client.Call(context.Background(), "getblockhash", []any{1 << 40}, nil)
	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, -8, nodeErr.Code)
	assert.Contains(t, nodeErr.Error(), "out of range")
}

func TestClientHTTPErrorWithoutEnvelope(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nginx is sad", http.StatusBadGateway)
	})

	client := NewClient(ClientOpts{Endpoint: srv.URL})

	err := client.Call(context.Background(), "getblockcount", nil, nil)
	require.Error(t, err)
	var nodeErr *NodeError
	assert.False(t, errors.As(err, &nodeErr))
}

func TestAddressDeltaCoercion(t *testing.T) {
	// Address indexes disagree about numeric encodings; the row decoder
	// accepts numbers and strings alike.
	raw := []byte(`[
		{"address":"t1abc","txid":"aa","height":100,"blockindex":1,"satoshis":-2500},
		{"address":"t1abc","txid":"bb","height":"101","blockindex":"0","satoshis":"5000"}
	]`)

	var deltas []AddressDelta
	require.NoError(t, json.Unmarshal(raw, &deltas))

	assert.Equal(t, int64(-2500), deltas[0].Satoshis)
	assert.Equal(t, int64(100), deltas[0].Height)
	assert.Equal(t, int64(5000), deltas[1].Satoshis)
	assert.Equal(t, int64(101), deltas[1].Height)
	assert.Equal(t, int64(0), deltas[1].BlockIndex)
}

func TestDeltaEntryCoinDenominatedCoercion(t *testing.T) {
	raw := []byte(`{"address":"t1abc","satoshis":0.5,"index":0}`)

	var e DeltaEntry
	require.NoError(t, json.Unmarshal(raw, &e))
	assert.Equal(t, int64(50000000), e.Satoshis)
}
