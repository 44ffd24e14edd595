package chainlist_dto

// ChainRaw is the part of a Chainlist entry the prober reads.
type ChainRaw struct {
	Name      string   `json:"name"`
	Chain     string   `json:"chain"`
	RPC       []string `json:"rpc"`
	ShortName string   `json:"shortName"`
	ChainID   int64    `json:"chainId"`
	Status    string   `json:"status,omitempty"`
}

// StatusDeprecated marks chains Chainlist no longer recommends.
const StatusDeprecated = "deprecated"
