package config

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zatekoja/hostportal/backend/pkg/errors"
)

func TestLoad_PortalConfig(t *testing.T) {
	t.Setenv("PORTAL_ROOT_DOMAIN", "Example.com")
	t.Setenv("PORTAL_ENV_PREFIX", "staging")
	t.Setenv("HOST_SUBDOMAIN", "app")
	t.Setenv("HOST_PORTAL_PATHS", "/dashboard, /listings,,")
	t.Setenv("REDIRECT_STATUS", "302")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "example.com", cfg.Portal.RootDomain)
	assert.Equal(t, "staging", cfg.Portal.EnvPrefix)
	assert.Equal(t, "app", cfg.Portal.HostSubdomain)
	assert.Equal(t, []string{"/dashboard", "/listings"}, cfg.Portal.HostPaths)
	assert.Equal(t, http.StatusFound, cfg.Portal.RedirectStatus)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.Portal.AdminSubdomain)
	assert.Equal(t, "provider", cfg.Portal.ProviderSubdomain)
	assert.Equal(t, "hoster", cfg.Portal.HostSubdomain)
	assert.Equal(t, DefaultHostPaths, cfg.Portal.HostPaths)
	assert.Equal(t, http.StatusTemporaryRedirect, cfg.Portal.RedirectStatus)
	assert.Equal(t, "https", cfg.Portal.DefaultScheme)
	assert.Equal(t, "http://localhost:3000", cfg.Upstream.URL)
	assert.False(t, cfg.Analytics.Enabled)
	assert.Equal(t, "@daily", cfg.Analytics.RetentionSchedule)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.ServerAddr())
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non redirect status", key: "REDIRECT_STATUS", value: "200"},
		{name: "duplicate subdomain", key: "PROVIDER_SUBDOMAIN", value: "admin"},
		{name: "dotted subdomain", key: "HOST_SUBDOMAIN", value: "a.b"},
		{name: "relative upstream", key: "UPSTREAM_URL", value: "/frontend"},
		{name: "bad scheme", key: "DEFAULT_SCHEME", value: "ftp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
		})
	}
}
