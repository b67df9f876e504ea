package models

// RPCResult holds test results for a specific ETH RPC URL.
type RPCResult struct {
	URL       string `json:"url"`
	Status    string `json:"status"` // "ok" or "error"
	ChainID   int64  `json:"chain_id,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BackendResult holds the health check of the REST backend.
type BackendResult struct {
	URL        string `json:"url"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string        `json:"config_path"`
	ValidStructure  bool          `json:"valid_structure"`
	StructureErrors []string      `json:"structure_errors,omitempty"`
	Backend         BackendResult `json:"backend"`
	RPCs            []RPCResult   `json:"rpcs,omitempty"`
	WatchListSize   int           `json:"watch_list_size"`
	WalletKeypair   string        `json:"wallet_keypair,omitempty"`
	WalletAddress   string        `json:"wallet_address,omitempty"`
	WalletError     string        `json:"wallet_error,omitempty"`
}

// OK reports whether every check passed.
func (r TestReport) OK() bool {
	if !r.ValidStructure || r.Backend.Status != "ok" || r.WalletError != "" {
		return false
	}
	for _, rpc := range r.RPCs {
		if rpc.Status != "ok" {
			return false
		}
	}
	return true
}
