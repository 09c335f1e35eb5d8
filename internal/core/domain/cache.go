package domain

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// CacheNamespace is a version tag grouping cache entries, e.g. "fieldsync-v3".
type CacheNamespace string

// Validate reports whether the namespace can be used as a storage prefix.
func (n CacheNamespace) Validate() error {
	s := string(n)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return zerr.With(zerr.Wrap(ErrInvalidNamespace, "bad namespace"), "namespace", s)
	}
	return nil
}

func (n CacheNamespace) String() string {
	return string(n)
}

// RequestIdentity identifies a cacheable request by method and absolute URL.
type RequestIdentity struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// NewRequestIdentity builds the identity for a request. Fragments are dropped.
// Only GET requests produce a cacheable identity.
func NewRequestIdentity(method string, u *url.URL) (RequestIdentity, error) {
	if method != http.MethodGet {
		return RequestIdentity{}, zerr.With(zerr.Wrap(ErrNotCacheable, "only GET requests are cached"), "method", method)
	}
	clone := *u
	clone.Fragment = ""
	clone.RawFragment = ""
	return RequestIdentity{Method: method, URL: clone.String()}, nil
}

// Key returns the canonical "METHOD URL" string used for hashing.
func (id RequestIdentity) Key() string {
	return id.Method + " " + id.URL
}

// CacheEntry is a captured response stored under a RequestIdentity.
type CacheEntry struct {
	Identity   RequestIdentity `json:"identity"`
	Status     int             `json:"status"`
	Header     http.Header     `json:"header"`
	Body       []byte          `json:"body"`
	CapturedAt time.Time       `json:"capturedAt"`
}

// Storable reports whether a response with the given status may be cached.
// Only 2xx responses are stored.
func Storable(status int) bool {
	return status >= 200 && status < 300
}

// CacheOutcome describes how a request was satisfied.
type CacheOutcome string

const (
	// OutcomeHit is a response served from the cache without touching the network.
	OutcomeHit CacheOutcome = "hit"
	// OutcomeMiss is a response fetched from the network.
	OutcomeMiss CacheOutcome = "miss"
	// OutcomeStale is a cached response served while a refresh runs.
	OutcomeStale CacheOutcome = "stale"
	// OutcomeFallback is a cached response served because the network failed.
	OutcomeFallback CacheOutcome = "fallback"
	// OutcomeOffline is the synthetic offline response.
	OutcomeOffline CacheOutcome = "offline"
	// OutcomeBypass is a request passed through untouched.
	OutcomeBypass CacheOutcome = "bypass"
)
