package router

import (
	"net/http"
	"strconv"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
)

// ServeHTTP makes the Router usable as the daemon's reverse proxy.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	entry, _, outcome, err := r.Handle(req.Context(), req)
	if err != nil {
		r.logger.Error(zerr.With(zerr.Wrap(err, "pass-through failed"), "url", req.URL.String()))
		w.Header().Set(domain.CacheHeader, string(outcome))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	h := w.Header()
	for name, values := range entry.Header {
		for _, v := range values {
			h.Add(name, v)
		}
	}
	h.Set(domain.CacheHeader, string(outcome))
	h.Set("Content-Length", strconv.Itoa(len(entry.Body)))
	w.WriteHeader(entry.Status)
	if req.Method != http.MethodHead {
		_, _ = w.Write(entry.Body)
	}
}
