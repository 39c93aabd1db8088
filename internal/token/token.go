// Package token defines the opaque token identity shared by every pool and
// graph component.
package token

import "github.com/ethereum/go-ethereum/common"

// Token is a 20-byte on-chain identity plus the metadata needed to price it
// against its pair partners.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// Less reports byte-lexicographic ordering, the canonical pair ordering
// (token0 < token1).
func (t Token) Less(other Token) bool {
	return t.Address.Cmp(other.Address) < 0
}

// Equal reports whether two tokens share the same on-chain address.
func (t Token) Equal(other Token) bool {
	return t.Address == other.Address
}

// Sorted returns (t0, t1) ordered so that t0.Address < t1.Address.
func Sorted(a, b Token) (Token, Token) {
	if a.Less(b) {
		return a, b
	}
	return b, a
}
