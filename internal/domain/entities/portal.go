package entities

import "strings"

// Portal identifies one of the subdomain-scoped UI surfaces
type Portal string

const (
	PortalNone     Portal = "none"
	PortalAdmin    Portal = "admin"
	PortalProvider Portal = "provider"
	PortalHost     Portal = "host"
)

// PortalDefinition is one row of the routing table
type PortalDefinition struct {
	Portal    Portal
	Subdomain string

	// Prefix is the portal's internal path namespace in the frontend.
	// Empty for the host portal, whose pages live at the root.
	Prefix string

	// OwnedPaths are root-level prefixes that belong to this portal even
	// though they carry no portal prefix.
	OwnedPaths []string

	// Aliases map a public path to an internal path on this portal's subdomain.
	Aliases map[string]string
}

// Prefixed reports whether the portal lives under an internal path prefix
func (d PortalDefinition) Prefixed() bool {
	return d.Prefix != ""
}

// HasPrefix reports whether path is the portal prefix or below it
func (d PortalDefinition) HasPrefix(path string) bool {
	return d.Prefixed() && MatchesPathPrefix(path, d.Prefix)
}

// Owns reports whether path is under one of the portal's unprefixed paths
func (d PortalDefinition) Owns(path string) bool {
	for _, owned := range d.OwnedPaths {
		if MatchesPathPrefix(path, owned) {
			return true
		}
	}
	return false
}

// Strip removes the portal prefix; the bare prefix strips to "/"
func (d PortalDefinition) Strip(path string) string {
	if !d.HasPrefix(path) {
		return path
	}
	stripped := strings.TrimPrefix(path, d.Prefix)
	if stripped == "" {
		return "/"
	}
	return stripped
}

// Internal prepends the portal prefix; "/" maps to the bare prefix
func (d PortalDefinition) Internal(path string) string {
	if !d.Prefixed() {
		return path
	}
	if path == "" || path == "/" {
		return d.Prefix
	}
	return d.Prefix + path
}

// MatchesPathPrefix reports whether path equals prefix or continues it at a
// segment boundary, so "/api" matches "/api/x" but not "/apix".
func MatchesPathPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return path == "/" || path == ""
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// HostInfo is the parsed form of a request host header
type HostInfo struct {
	Portal Portal `json:"portal"`
	// EnvPrefix is the label before the portal subdomain, e.g. "staging".
	EnvPrefix  string `json:"env_prefix,omitempty"`
	RootDomain string `json:"root_domain"`
	Port       string `json:"port,omitempty"`
}
