package routes

import (
	"net/http"

	"github.com/zatekoja/hostportal/backend/internal/api/handlers"
	"github.com/zatekoja/hostportal/backend/internal/api/middleware"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
)

// GatewayPrefix is reserved for the gateway's own endpoints and never routed to a portal
const GatewayPrefix = "/_gateway"

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	healthHandler    *handlers.HealthHandler
	resolveHandler   *handlers.ResolveHandler
	analyticsHandler *handlers.AnalyticsHandler

	routing     *middleware.SubdomainRouting
	staticCache *middleware.StaticCacheMiddleware
	publicFiles []string
	upstream    http.Handler

	metrics      *observability.Metrics
	routeMetrics *observability.RouteMetrics
}

// NewRouter creates a new router. staticCache and routeMetrics may be nil.
func NewRouter(
	healthHandler *handlers.HealthHandler,
	resolveHandler *handlers.ResolveHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	routing *middleware.SubdomainRouting,
	staticCache *middleware.StaticCacheMiddleware,
	publicFiles []string,
	upstream http.Handler,
	metrics *observability.Metrics,
	routeMetrics *observability.RouteMetrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		healthHandler:    healthHandler,
		resolveHandler:   resolveHandler,
		analyticsHandler: analyticsHandler,
		routing:          routing,
		staticCache:      staticCache,
		publicFiles:      publicFiles,
		upstream:         upstream,
		metrics:          metrics,
		routeMetrics:     routeMetrics,
	}
}

// SetupRoutes configures the gateway endpoints and the portal catch-all
func (r *Router) SetupRoutes() http.Handler {
	// Gateway endpoints
	r.mux.HandleFunc("GET "+GatewayPrefix+"/health", r.healthHandler.Health)
	r.mux.HandleFunc("GET "+GatewayPrefix+"/ready", r.healthHandler.Ready)
	r.mux.HandleFunc("GET "+GatewayPrefix+"/resolve", r.resolveHandler.Resolve)
	r.mux.HandleFunc("GET "+GatewayPrefix+"/analytics/redirects", r.analyticsHandler.TopRedirects)
	if r.routeMetrics != nil {
		r.mux.Handle("GET "+GatewayPrefix+"/metrics", r.routeMetrics.Handler())
	}

	// Everything else is a portal request
	r.mux.Handle("/", r.portalChain())

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.Recovery(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics, r.routeMetrics)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// portalChain routes by subdomain, then serves static assets from cache or the upstream
func (r *Router) portalChain() http.Handler {
	handler := r.upstream
	if r.staticCache != nil {
		handler = r.staticCache.Middleware(handler)
	}
	handler = middleware.CacheControl(middleware.DefaultStaticPrefixes, r.publicFiles)(handler)
	return r.routing.Middleware(handler)
}
