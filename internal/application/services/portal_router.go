package services

import (
	"net"
	"strings"

	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	"github.com/zatekoja/hostportal/backend/pkg/config"
)

// DefaultPublicPaths are never rewritten or redirected, on any host
var DefaultPublicPaths = []string{
	"/api",
	"/_next",
	"/static",
	"/images",
	"/fonts",
	"/auth",
	"/terms",
	"/privacy",
	"/favicon.ico",
	"/robots.txt",
	"/sitemap.xml",
	"/manifest.json",
}

// PortalRouter classifies requests by host subdomain and decides whether to
// pass, rewrite or redirect them. It holds no mutable state and is safe for
// concurrent use.
type PortalRouter struct {
	definitions []entities.PortalDefinition
	bySubdomain map[string]entities.PortalDefinition
	byPortal    map[entities.Portal]entities.PortalDefinition
	publicPaths []string
	rootDomain  string
	envPrefix   string
}

// NewPortalRouter builds the routing table from configuration
func NewPortalRouter(cfg config.PortalConfig) *PortalRouter {
	definitions := []entities.PortalDefinition{
		{
			Portal:    entities.PortalAdmin,
			Subdomain: cfg.AdminSubdomain,
			Prefix:    "/admin",
			Aliases:   map[string]string{"/": "/admin", "/login": "/admin/login"},
		},
		{
			Portal:    entities.PortalProvider,
			Subdomain: cfg.ProviderSubdomain,
			Prefix:    "/provider",
			Aliases:   map[string]string{"/": "/provider", "/login": "/provider/login"},
		},
		{
			Portal:     entities.PortalHost,
			Subdomain:  cfg.HostSubdomain,
			OwnedPaths: cfg.HostPaths,
		},
	}

	r := &PortalRouter{
		definitions: definitions,
		bySubdomain: make(map[string]entities.PortalDefinition, len(definitions)),
		byPortal:    make(map[entities.Portal]entities.PortalDefinition, len(definitions)),
		publicPaths: append(append([]string{}, DefaultPublicPaths...), cfg.PublicPaths...),
		rootDomain:  strings.TrimSuffix(cfg.RootDomain, "."),
		envPrefix:   cfg.EnvPrefix,
	}
	for _, def := range definitions {
		r.bySubdomain[def.Subdomain] = def
		r.byPortal[def.Portal] = def
	}
	return r
}

// Definitions returns the routing table rows
func (r *PortalRouter) Definitions() []entities.PortalDefinition {
	return r.definitions
}

// Definition returns the routing table row for a portal
func (r *PortalRouter) Definition(portal entities.Portal) (entities.PortalDefinition, bool) {
	def, ok := r.byPortal[portal]
	return def, ok
}

// IsPublic reports whether path bypasses portal routing entirely
func (r *PortalRouter) IsPublic(path string) bool {
	for _, prefix := range r.publicPaths {
		if entities.MatchesPathPrefix(path, prefix) {
			return true
		}
	}
	return entities.IsStaticAsset(path)
}

// ParseHost splits a host header into portal, environment prefix, root
// domain and port. Hosts that match no portal come back as PortalNone.
func (r *PortalRouter) ParseHost(host string) entities.HostInfo {
	name, port := splitHostPort(strings.ToLower(strings.TrimSpace(host)))
	name = strings.TrimSuffix(name, ".")

	info := entities.HostInfo{Portal: entities.PortalNone, Port: port}
	if name == "" || net.ParseIP(name) != nil {
		info.RootDomain = r.rootDomain
		info.EnvPrefix = r.envPrefix
		return info
	}

	labels := strings.Split(name, ".")
	for _, label := range labels {
		if label == "" {
			info.RootDomain = r.rootDomain
			info.EnvPrefix = r.envPrefix
			return info
		}
	}
	if len(labels) > 1 && labels[0] == "www" {
		labels = labels[1:]
	}

	if len(labels) >= 2 {
		if def, ok := r.bySubdomain[labels[0]]; ok {
			info.Portal = def.Portal
			info.RootDomain = strings.Join(labels[1:], ".")
			return info
		}
	}
	if len(labels) >= 3 {
		if def, ok := r.bySubdomain[labels[1]]; ok {
			info.Portal = def.Portal
			info.EnvPrefix = labels[0]
			info.RootDomain = strings.Join(labels[2:], ".")
			return info
		}
	}

	info.EnvPrefix = r.envPrefix
	switch {
	case r.rootDomain != "":
		info.RootDomain = r.rootDomain
	case r.envPrefix != "" && len(labels) > 1 && labels[0] == r.envPrefix:
		info.RootDomain = strings.Join(labels[1:], ".")
	default:
		info.RootDomain = strings.Join(labels, ".")
	}
	return info
}

// PortalHost builds the canonical host for a portal, keeping the environment
// prefix, root domain and port of info.
func (r *PortalRouter) PortalHost(info entities.HostInfo, portal entities.Portal) string {
	def, ok := r.byPortal[portal]
	if !ok || info.RootDomain == "" {
		return ""
	}

	labels := make([]string, 0, 3)
	if info.EnvPrefix != "" {
		labels = append(labels, info.EnvPrefix)
	}
	labels = append(labels, def.Subdomain, info.RootDomain)

	host := strings.Join(labels, ".")
	if info.Port != "" {
		host += ":" + info.Port
	}
	return host
}

// Resolve decides what happens to a request for path on host
func (r *PortalRouter) Resolve(host, path string) entities.RouteDecision {
	if path == "" {
		path = "/"
	}

	info := r.ParseHost(host)
	decision := entities.RouteDecision{
		Action:       entities.RouteActionPass,
		Host:         info,
		TargetPortal: info.Portal,
		Path:         path,
	}

	if r.IsPublic(path) {
		decision.Reason = entities.RouteReasonPublicPath
		return decision
	}

	current, ok := r.byPortal[info.Portal]
	if !ok {
		return r.resolveUnrouted(decision)
	}
	return r.resolvePortal(decision, current)
}

func (r *PortalRouter) resolvePortal(decision entities.RouteDecision, current entities.PortalDefinition) entities.RouteDecision {
	path := decision.Path

	if target, ok := current.Aliases[path]; ok {
		return rewrite(decision, target, entities.RouteReasonAlias)
	}

	for _, other := range r.definitions {
		if other.Portal == current.Portal {
			continue
		}
		if other.HasPrefix(path) {
			return r.redirect(decision, other.Portal, other.Strip(path), entities.RouteReasonOtherPortal)
		}
		if other.Owns(path) {
			return r.redirect(decision, other.Portal, path, entities.RouteReasonOtherPortal)
		}
	}

	if current.HasPrefix(path) {
		return r.redirect(decision, current.Portal, current.Strip(path), entities.RouteReasonOwnPrefix)
	}

	internal := current.Internal(path)
	if internal == path {
		decision.Reason = entities.RouteReasonPortalPath
		return decision
	}
	return rewrite(decision, internal, entities.RouteReasonPortalRewrite)
}

func (r *PortalRouter) resolveUnrouted(decision entities.RouteDecision) entities.RouteDecision {
	path := decision.Path

	for _, def := range r.definitions {
		if def.HasPrefix(path) {
			return r.redirect(decision, def.Portal, def.Strip(path), entities.RouteReasonPortalPath)
		}
		if def.Owns(path) {
			return r.redirect(decision, def.Portal, path, entities.RouteReasonPortalPath)
		}
	}

	decision.Reason = entities.RouteReasonNoPortal
	return decision
}

func (r *PortalRouter) redirect(decision entities.RouteDecision, target entities.Portal, path string, reason entities.RouteReason) entities.RouteDecision {
	host := r.PortalHost(decision.Host, target)
	if host == "" {
		// no root domain to build a portal host from
		decision.Reason = entities.RouteReasonNoPortal
		return decision
	}

	decision.Action = entities.RouteActionRedirect
	decision.Reason = reason
	decision.TargetPortal = target
	decision.RedirectHost = host
	decision.RedirectPath = path
	return decision
}

func rewrite(decision entities.RouteDecision, path string, reason entities.RouteReason) entities.RouteDecision {
	decision.Action = entities.RouteActionRewrite
	decision.Reason = reason
	decision.RewritePath = path
	return decision
}

func splitHostPort(host string) (string, string) {
	if strings.HasPrefix(host, "[") {
		// bracketed IPv6 literal
		if h, p, err := net.SplitHostPort(host); err == nil {
			return h, p
		}
		return strings.Trim(host, "[]"), ""
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 && strings.Count(host, ":") == 1 {
		return host[:i], host[i+1:]
	}
	return host, ""
}
