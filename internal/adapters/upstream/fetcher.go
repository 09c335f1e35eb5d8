// Package upstream forwards requests to the application origin.
package upstream

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
)

const defaultTimeout = 30 * time.Second

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Accept-Encoding",
}

// Fetcher implements ports.Fetcher using resty.
type Fetcher struct {
	http *resty.Client
	now  func() time.Time
}

// New creates a Fetcher. Redirects are returned to the caller, not followed.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	return &Fetcher{http: c, now: time.Now}
}

// Fetch sends req to its absolute URL and captures the response.
func (f *Fetcher) Fetch(ctx context.Context, req *http.Request) (*domain.CacheEntry, error) {
	r := f.http.R().SetContext(ctx)
	for name, values := range req.Header {
		r.SetHeaderMultiValues(map[string][]string{name: values})
	}
	for _, h := range hopHeaders {
		r.Header.Del(h)
	}
	if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to read request body")
		}
		r.SetBody(body)
	}

	target := req.URL.String()
	resp, err := r.Execute(req.Method, target)
	if err != nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrUpstreamUnavailable, err.Error()), "method", req.Method), "url", target)
	}

	header := resp.Header().Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}
	return &domain.CacheEntry{
		Identity:   domain.RequestIdentity{Method: req.Method, URL: target},
		Status:     resp.StatusCode(),
		Header:     header,
		Body:       resp.Body(),
		CapturedAt: f.now().UTC(),
	}, nil
}
