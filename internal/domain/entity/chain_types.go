package entity

// ChainEndpoints is the list of probe-ready RPC endpoints published for one chain.
type ChainEndpoints struct {
	ChainID   int64
	Name      string
	ShortName string
	Endpoints []RPCURL
}

// Protocol defines the type for RPC protocols.
type Protocol string

// Constants for known protocols.
const (
	ProtocolHTTP    Protocol = "http"
	ProtocolHTTPS   Protocol = "https"
	ProtocolWS      Protocol = "ws"
	ProtocolWSS     Protocol = "wss"
	ProtocolUnknown Protocol = "unknown"
)

// ProbeResult holds the outcome of the latest probe of an RPC endpoint.
type ProbeResult struct {
	URL       RPCURL   `json:"url"`
	Protocol  Protocol `json:"protocol"`
	IsWorking *bool    `json:"isWorking"`
	LatencyMs *int64   `json:"latencyMs,omitempty"`
	Error     string   `json:"error,omitempty"`
}
