package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	"github.com/diagnosis/luxsuv-reservations/pkg/response"
	"github.com/diagnosis/luxsuv-reservations/services/gateway/internal/proxy"
)

type Handlers struct {
	authProxy         *proxy.ServiceProxy
	reservationsProxy *proxy.ServiceProxy
}

func New(authProxy, reservationsProxy *proxy.ServiceProxy) *Handlers {
	return &Handlers{authProxy: authProxy, reservationsProxy: reservationsProxy}
}

// Routes exposes the public API. Paths are forwarded unchanged.
func (h *Handlers) Routes(r chi.Router) {
	auth := h.Forward(h.authProxy)
	r.Handle("/auth/*", auth)
	r.Handle("/users", auth)
	r.Handle("/users/*", auth)

	reservations := h.Forward(h.reservationsProxy)
	r.Handle("/reservations", reservations)
	r.Handle("/reservations/*", reservations)
}

// Forward relays the request to p and streams the upstream answer back,
// including Set-Cookie. The client address travels in X-Forwarded-For. An
// unreachable upstream is reported as 503.
func (h *Handlers) Forward(p *proxy.ServiceProxy) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		resp, err := p.Do(r.Context(), r.Method, path, r.Body, proxy.ForwardedHeader(r))
		if err != nil {
			logger.ErrorContext(r.Context(), "Service proxy error", "error", err, "upstream", p.Name(), "path", r.URL.Path)
			response.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable", response.CodeServiceUnavailable)
			return
		}
		defer resp.Body.Close()

		proxy.CopyHeader(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err, "upstream", p.Name())
		}
	})
}
