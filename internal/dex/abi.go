package dex

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// mustParseABI parses a minimal ABI JSON fragment, panicking on error since
// these are compile-time constants, never user input.
func mustParseABI(fragment string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(fragment))
	if err != nil {
		panic("dex: invalid embedded abi: " + err.Error())
	}
	return parsed
}

const v3FactoryABI = `[
	{"name":"getPool","type":"function","stateMutability":"view",
	 "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],
	 "outputs":[{"name":"pool","type":"address"}]}
]`

const v3PoolABI = `[
	{"name":"liquidity","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint128"}]},
	{"name":"slot0","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[
		{"name":"sqrtPriceX96","type":"uint160"},
		{"name":"tick","type":"int24"},
		{"name":"observationIndex","type":"uint16"},
		{"name":"observationCardinality","type":"uint16"},
		{"name":"observationCardinalityNext","type":"uint16"},
		{"name":"feeProtocol","type":"uint8"},
		{"name":"unlocked","type":"bool"}]}
]`

const v3QuoterV2ABI = `[
	{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"params","type":"tuple","components":[
		{"name":"tokenIn","type":"address"},
		{"name":"tokenOut","type":"address"},
		{"name":"amountIn","type":"uint256"},
		{"name":"fee","type":"uint24"},
		{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
	 "outputs":[
		{"name":"amountOut","type":"uint256"},
		{"name":"sqrtPriceX96After","type":"uint160"},
		{"name":"initializedTicksCrossed","type":"uint32"},
		{"name":"gasEstimate","type":"uint256"}]}
]`

const lbFactoryABI = `[
	{"name":"getLBPairInformation","type":"function","stateMutability":"view",
	 "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"binStep","type":"uint256"}],
	 "outputs":[
		{"name":"binStep","type":"uint16"},
		{"name":"LBPair","type":"address"},
		{"name":"createdByOwner","type":"bool"},
		{"name":"ignoredForRouting","type":"bool"}]}
]`

const lbPairABI = `[
	{"name":"getTokenX","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"name":"getTokenY","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"name":"getActiveId","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint24"}]},
	{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"reserveX","type":"uint128"},{"name":"reserveY","type":"uint128"}]},
	{"name":"getPriceFromId","type":"function","stateMutability":"view",
	 "inputs":[{"name":"id","type":"uint24"}],"outputs":[{"name":"price","type":"uint256"}]},
	{"name":"getSwapOut","type":"function","stateMutability":"view",
	 "inputs":[{"name":"amountIn","type":"uint128"},{"name":"swapForY","type":"bool"}],
	 "outputs":[
		{"name":"amountInLeft","type":"uint128"},
		{"name":"amountOut","type":"uint128"},
		{"name":"fee","type":"uint128"}]}
]`

const v4StateViewABI = `[
	{"name":"getSlot0","type":"function","stateMutability":"view",
	 "inputs":[{"name":"poolId","type":"bytes32"}],
	 "outputs":[
		{"name":"sqrtPriceX96","type":"uint160"},
		{"name":"tick","type":"int24"},
		{"name":"protocolFee","type":"uint24"},
		{"name":"lpFee","type":"uint24"}]},
	{"name":"getLiquidity","type":"function","stateMutability":"view",
	 "inputs":[{"name":"poolId","type":"bytes32"}],"outputs":[{"name":"liquidity","type":"uint128"}]}
]`

const v4QuoterABI = `[
	{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"params","type":"tuple","components":[
		{"name":"poolKey","type":"tuple","components":[
			{"name":"currency0","type":"address"},
			{"name":"currency1","type":"address"},
			{"name":"fee","type":"uint24"},
			{"name":"tickSpacing","type":"int24"},
			{"name":"hooks","type":"address"}]},
		{"name":"zeroForOne","type":"bool"},
		{"name":"exactAmount","type":"uint128"},
		{"name":"hookData","type":"bytes"}]}],
	 "outputs":[{"name":"amountOut","type":"uint256"},{"name":"gasEstimate","type":"uint256"}]}
]`
