package domain

// Strategy is the caching policy applied to a request.
type Strategy string

const (
	// StrategyBypass forwards the request to the network untouched.
	StrategyBypass Strategy = "bypass"
	// StrategyNavigate serves page navigations, falling back to the cached shell.
	StrategyNavigate Strategy = "navigate"
	// StrategyCacheFirst serves from cache, fetching only on a miss.
	StrategyCacheFirst Strategy = "cache-first"
	// StrategyNetworkFirst fetches, falling back to cache on network failure.
	StrategyNetworkFirst Strategy = "network-first"
	// StrategyStaleWhileRevalidate serves cache immediately and refreshes in the background.
	StrategyStaleWhileRevalidate Strategy = "stale-while-revalidate"
)
