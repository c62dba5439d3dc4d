package upstream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
	"github.com/zatekoja/hostportal/backend/pkg/config"
	apperrors "github.com/zatekoja/hostportal/backend/pkg/errors"
)

type startKey struct{}

// Proxy forwards routed requests to the frontend upstream
type Proxy struct {
	target       *url.URL
	proxy        *httputil.ReverseProxy
	metrics      *observability.Metrics
	routeMetrics *observability.RouteMetrics
}

// NewProxy creates a reverse proxy to cfg.URL. metrics and routeMetrics may be nil.
func NewProxy(cfg *config.UpstreamConfig, metrics *observability.Metrics, routeMetrics *observability.RouteMetrics) (*Proxy, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, apperrors.NewValidationError("upstream URL must be absolute: " + cfg.URL)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	transport.MaxIdleConnsPerHost = 64
	transport.DialContext = (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext

	p := &Proxy{
		target:       target,
		metrics:      metrics,
		routeMetrics: routeMetrics,
	}
	p.proxy = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		Transport:      transport,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.handleError,
	}
	return p, nil
}

// ServeHTTP implements http.Handler
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithValue(r.Context(), startKey{}, time.Now())
	p.proxy.ServeHTTP(w, r.WithContext(ctx))
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.target)
	pr.SetXForwarded()

	// keep the scheme seen by the edge proxy in front of the gateway
	if proto := pr.In.Header.Get("X-Forwarded-Proto"); proto != "" {
		pr.Out.Header.Set("X-Forwarded-Proto", proto)
	}
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	if start, ok := resp.Request.Context().Value(startKey{}).(time.Time); ok {
		observability.RecordUpstreamMetric(resp.Request.Context(), p.metrics, resp.StatusCode, time.Since(start))
	}
	return nil
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// client went away
		log.Debug().Str("path", r.URL.Path).Msg("client canceled upstream request")
		w.WriteHeader(499)
		return
	}

	p.routeMetrics.IncUpstreamErrors()
	if start, ok := r.Context().Value(startKey{}).(time.Time); ok {
		observability.RecordUpstreamMetric(r.Context(), p.metrics, http.StatusBadGateway, time.Since(start))
	}
	observability.LoggerFromContext(r.Context()).Error().
		Err(err).
		Str("upstream", p.target.Host).
		Str("path", r.URL.Path).
		Msg("upstream request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
}
