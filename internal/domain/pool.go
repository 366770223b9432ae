package domain

// Chain identifies a blockchain network, using GeckoTerminal network ids.
type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainEthereum Chain = "eth"
)

// String returns the string representation of Chain.
func (c Chain) String() string {
	return string(c)
}

// IsValid checks if the chain is a known value.
func (c Chain) IsValid() bool {
	return c == ChainSolana || c == ChainEthereum
}

// Dex identifies a decentralized exchange hosting liquidity pools.
type Dex string

const (
	DexRaydium   Dex = "raydium"
	DexMeteora   Dex = "meteora"
	DexOrca      Dex = "orca"
	DexUniswapV2 Dex = "uniswap_v2"
	DexUniswapV3 Dex = "uniswap_v3"
)

// String returns the string representation of Dex.
func (d Dex) String() string {
	return string(d)
}

// Pool identifies a liquidity venue on a specific chain and DEX.
// Immutable once fetched from the discovery source.
type Pool struct {
	PoolID     string  // on-chain pool address
	Chain      Chain   // network id (e.g. "solana")
	Dex        Dex     // hosting exchange (e.g. "meteora")
	BaseAsset  string  // traded token symbol
	QuoteAsset string  // quote token symbol (SOL/USDC/...)
	TVL        float64 // total value locked in USD at discovery time
	Volume24h  float64 // 24h trading volume in USD at discovery time
}

// Asset returns the asset symbol under which this pool's prices are
// keyed throughout the analytics pipeline. When several pools in a run
// share a base asset, the alignment stage keeps one series per symbol
// and excludes the rest.
func (p Pool) Asset() string {
	return p.BaseAsset
}

// Label returns a human-readable pair label, e.g. "JUP/SOL".
func (p Pool) Label() string {
	return p.BaseAsset + "/" + p.QuoteAsset
}
