package dex

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/token"
)

// KuruClient is a declared-but-unintegrated adapter. Kuru uses an
// order-book/CLOB model rather than constant-function pools, and pricing
// it correctly needs a different quoting strategy than every other
// adapter here. That work hasn't been done, so this adapter always
// reports no pools and refuses quotes rather than
// returning numbers nobody has validated.
type KuruClient struct{}

// NewKuruClient returns a stub adapter for VariantKuru.
func NewKuruClient() *KuruClient { return &KuruClient{} }

func (c *KuruClient) Variant() Variant { return VariantKuru }

func (c *KuruClient) Enumerate(ctx context.Context, tokens []token.Token) ([]PoolInfo, error) {
	return nil, nil
}

func (c *KuruClient) QuoteExactIn(ctx context.Context, p PoolInfo, tokenIn common.Address, amountIn *uint256.Int) (Quote, error) {
	return Quote{}, ErrNotImplemented
}
