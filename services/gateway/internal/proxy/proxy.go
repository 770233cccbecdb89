package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// hop-by-hop headers are connection scoped and never forwarded.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Host":                true,
	"Content-Length":      true,
}

// ServiceProxy forwards requests to one upstream service.
type ServiceProxy struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewServiceProxy(name, baseURL string, timeout time.Duration) *ServiceProxy {
	return &ServiceProxy{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *ServiceProxy) Name() string { return p.name }

// Do sends method and path upstream with the given body and end-to-end
// headers. The caller owns the response body.
func (p *ServiceProxy) Do(ctx context.Context, method, path string, body io.Reader, header http.Header) (*http.Response, error) {
	url := p.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	CopyHeader(req.Header, header)
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok && requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	req.Header.Set("X-Gateway-Forwarded", "true")

	logger.DebugContext(ctx, "Proxying request", "upstream", p.name, "method", method, "path", path)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	return resp, nil
}

// CopyHeader adds every end-to-end header of src to dst.
func CopyHeader(dst, src http.Header) {
	for key, values := range src {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// ForwardedHeader returns the end-to-end headers of r with X-Forwarded-For
// and X-Real-IP replaced by the peer address the gateway actually sees.
// Forwarding values sent by the client are dropped.
func ForwardedHeader(r *http.Request) http.Header {
	h := r.Header.Clone()
	h.Del("Forwarded")
	h.Del("X-Forwarded-For")
	h.Del("X-Real-IP")

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	if ip != "" {
		h.Set("X-Forwarded-For", ip)
		h.Set("X-Real-IP", ip)
	}
	return h
}
