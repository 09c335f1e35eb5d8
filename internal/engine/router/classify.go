package router

import (
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.trai.ch/fieldsync/internal/core/domain"
)

const (
	assetPrefix = "/assets/"
	apiPrefix   = "/api/"
)

// Classify picks the strategy for req. The first matching rule wins.
func Classify(req *http.Request, origin *url.URL) domain.Strategy {
	if req.Method != http.MethodGet {
		return domain.StrategyBypass
	}
	if isNavigation(req) {
		return domain.StrategyNavigate
	}
	if crossOrigin(req.URL, origin) {
		return domain.StrategyBypass
	}
	switch path := req.URL.Path; {
	case strings.HasPrefix(path, assetPrefix):
		return domain.StrategyCacheFirst
	case strings.HasPrefix(path, apiPrefix):
		return domain.StrategyNetworkFirst
	default:
		return domain.StrategyStaleWhileRevalidate
	}
}

// isNavigation reports whether req is a full-document load. Sec-Fetch-Mode
// is authoritative when present; otherwise the first Accept media type decides.
func isNavigation(req *http.Request) bool {
	if mode := req.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	accept := req.Header.Get("Accept")
	if accept == "" {
		return false
	}
	first, _, _ := strings.Cut(accept, ",")
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(first))
	return err == nil && mt == "text/html"
}

// crossOrigin reports whether u is absolute and names a different host than origin.
func crossOrigin(u, origin *url.URL) bool {
	if !u.IsAbs() {
		return false
	}
	return !strings.EqualFold(u.Scheme, origin.Scheme) || !strings.EqualFold(u.Host, origin.Host)
}

// target returns the absolute URL a same-origin request is forwarded to.
func target(u, origin *url.URL) *url.URL {
	if u.IsAbs() {
		clone := *u
		return &clone
	}
	return &url.URL{
		Scheme:   origin.Scheme,
		Host:     origin.Host,
		Path:     u.Path,
		RawPath:  u.RawPath,
		RawQuery: u.RawQuery,
	}
}
