package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addr = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func mockRPC(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int           `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var result interface{}
		switch req.Method {
		case "eth_getBalance":
			result = "0x22B1C8C1227A0000" // 2.5 ether
		case "eth_chainId":
			result = "0x1"
		default:
			result = "0x0"
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEthBalance(t *testing.T) {
	server := mockRPC(t)

	bal, err := EthBalance(context.Background(), []string{server.URL}, addr)
	require.NoError(t, err)
	assert.Equal(t, 2.5, bal.Float64())
	assert.Equal(t, server.URL, bal.RPCURL)
	assert.Empty(t, bal.FailedRPCs)
}

func TestEthBalance_Failover(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer dead.Close()
	server := mockRPC(t)

	bal, err := EthBalance(context.Background(), []string{dead.URL, server.URL}, addr)
	require.NoError(t, err)
	assert.Equal(t, 2.5, bal.Float64())
	assert.Equal(t, []string{dead.URL}, bal.FailedRPCs)
}

func TestEthBalance_NoRPC(t *testing.T) {
	_, err := EthBalance(context.Background(), nil, addr)
	assert.ErrorIs(t, err, ErrNoRPC)
}

func TestCheckRPC(t *testing.T) {
	server := mockRPC(t)

	res := CheckRPC(context.Background(), server.URL)
	require.NoError(t, res.Err)
	assert.Equal(t, int64(1), res.ChainID.Int64())

	bad := CheckRPC(context.Background(), "http://127.0.0.1:1")
	assert.Error(t, bad.Err)
	assert.Nil(t, bad.ChainID)
}
