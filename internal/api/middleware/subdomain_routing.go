package middleware

import (
	"net/http"
	"strings"

	"github.com/zatekoja/hostportal/backend/internal/application/services"
	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
	"github.com/zatekoja/hostportal/backend/pkg/config"
)

// Headers set on requests forwarded upstream
const (
	PortalHeader       = "X-Portal"
	OriginalPathHeader = "X-Original-Path"
)

// RedirectTracker records issued redirects
type RedirectTracker interface {
	Track(event *entities.RedirectEvent)
}

// SubdomainRouting applies portal routing decisions to incoming requests
type SubdomainRouting struct {
	router         *services.PortalRouter
	redirectStatus int
	defaultScheme  string
	metrics        *observability.RouteMetrics
	tracker        RedirectTracker
}

// NewSubdomainRouting creates the routing middleware. metrics and tracker may be nil.
func NewSubdomainRouting(router *services.PortalRouter, cfg config.PortalConfig, metrics *observability.RouteMetrics, tracker RedirectTracker) *SubdomainRouting {
	status := cfg.RedirectStatus
	if status == 0 {
		status = http.StatusTemporaryRedirect
	}
	scheme := cfg.DefaultScheme
	if scheme == "" {
		scheme = "https"
	}
	return &SubdomainRouting{
		router:         router,
		redirectStatus: status,
		defaultScheme:  scheme,
		metrics:        metrics,
		tracker:        tracker,
	}
}

// Middleware redirects, rewrites or passes the request according to the
// decision for its host and path.
func (m *SubdomainRouting) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := m.router.Resolve(r.Host, r.URL.Path)

		ctx, slot := withDecisionSlot(r.Context())
		slot.decision = &decision
		r = r.WithContext(ctx)

		m.metrics.ObserveDecision(string(decision.Host.Portal), string(decision.Action), string(decision.Reason))

		// never trust portal headers from the client
		r.Header.Del(PortalHeader)
		r.Header.Del(OriginalPathHeader)

		switch decision.Action {
		case entities.RouteActionRedirect:
			m.redirect(w, r, decision)
			return

		case entities.RouteActionRewrite:
			r.Header.Set(OriginalPathHeader, r.URL.Path)
			u := *r.URL
			u.Path = decision.RewritePath
			u.RawPath = ""
			r.URL = &u
			r.RequestURI = u.RequestURI()
		}

		if decision.Host.Portal != entities.PortalNone {
			r.Header.Set(PortalHeader, string(decision.Host.Portal))
		}

		next.ServeHTTP(w, r)
	})
}

func (m *SubdomainRouting) redirect(w http.ResponseWriter, r *http.Request, decision entities.RouteDecision) {
	location := decision.RedirectURL(m.scheme(r), r.URL.RawQuery)

	m.metrics.ObserveRedirect(string(decision.Host.Portal), string(decision.TargetPortal))
	if m.tracker != nil {
		m.tracker.Track(entities.NewRedirectEvent(
			RequestIDFromContext(r.Context()),
			r.Host,
			location,
			r.Referer(),
			decision,
		))
	}

	w.Header().Set("Location", location)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(m.redirectStatus)
}

// scheme prefers the proxy's X-Forwarded-Proto, then the connection, then config
func (m *SubdomainRouting) scheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		proto = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		if proto == "http" || proto == "https" {
			return proto
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return m.defaultScheme
}
