package entities

import "net/url"

// RouteAction is what the gateway does with a request
type RouteAction string

const (
	RouteActionPass     RouteAction = "pass"
	RouteActionRewrite  RouteAction = "rewrite"
	RouteActionRedirect RouteAction = "redirect"
)

// RouteReason explains which routing rule produced a decision
type RouteReason string

const (
	RouteReasonPublicPath    RouteReason = "public_path"
	RouteReasonAlias         RouteReason = "alias"
	RouteReasonOtherPortal   RouteReason = "other_portal"
	RouteReasonOwnPrefix     RouteReason = "own_prefix"
	RouteReasonPortalRewrite RouteReason = "portal_rewrite"
	RouteReasonPortalPath    RouteReason = "portal_path"
	RouteReasonNoPortal      RouteReason = "no_portal"
)

// RouteDecision is the outcome of resolving a request host and path
type RouteDecision struct {
	Action       RouteAction `json:"action"`
	Reason       RouteReason `json:"reason"`
	Host         HostInfo    `json:"host"`
	TargetPortal Portal      `json:"target_portal"`
	Path         string      `json:"path"`

	// RewritePath is set for rewrites: the internal path served upstream.
	RewritePath string `json:"rewrite_path,omitempty"`

	// RedirectHost and RedirectPath are set for redirects. RedirectHost
	// includes the port when the request carried one.
	RedirectHost string `json:"redirect_host,omitempty"`
	RedirectPath string `json:"redirect_path,omitempty"`
}

// IsRedirect reports whether the decision sends the browser elsewhere
func (d RouteDecision) IsRedirect() bool {
	return d.Action == RouteActionRedirect
}

// CrossPortal reports whether a redirect moves the user to a different portal
func (d RouteDecision) CrossPortal() bool {
	return d.IsRedirect() && d.Host.Portal != d.TargetPortal
}

// RedirectURL builds the absolute Location for a redirect decision.
// RedirectPath is a decoded path and is escaped again here.
func (d RouteDecision) RedirectURL(scheme, rawQuery string) string {
	if !d.IsRedirect() {
		return ""
	}
	target := url.URL{
		Scheme:   scheme,
		Host:     d.RedirectHost,
		Path:     d.RedirectPath,
		RawQuery: rawQuery,
	}
	return target.String()
}
