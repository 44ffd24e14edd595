package entity

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RPCURL represents a typed URL for an RPC endpoint.
type RPCURL string

// NewRPCURL creates a new RPCURL instance.
func NewRPCURL(rawURL string) (RPCURL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("rpc url cannot be empty")
	}

	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid rpc url format '%s': %w", rawURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "http", "https", "ws", "wss":
	default:
		return "", fmt.Errorf("rpc url '%s' has unsupported scheme: '%s'", rawURL, scheme)
	}

	return RPCURL(rawURL), nil
}

// String returns the string representation of the RPCURL.
func (r RPCURL) String() string {
	return string(r)
}

// CompositeKey is an ordered sequence of strings identifying a query or an error condition.
type CompositeKey []string

// Canonical returns the deterministic string used as a map key for the composite key.
// Two keys share a canonical form only if they have the same elements in the same order.
// Elements are Go-quoted, which keeps invalid UTF-8 bytes distinct; plain ASCII
// keys read like a JSON array.
func (k CompositeKey) Canonical() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, part := range k {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(part))
	}
	b.WriteByte(']')
	return b.String()
}

// IsZero reports whether the key has no elements.
func (k CompositeKey) IsZero() bool {
	return len(k) == 0
}

// Clone returns a copy that does not share the backing array.
func (k CompositeKey) Clone() CompositeKey {
	if k == nil {
		return nil
	}
	out := make(CompositeKey, len(k))
	copy(out, k)
	return out
}

func (k CompositeKey) String() string {
	return k.Canonical()
}
