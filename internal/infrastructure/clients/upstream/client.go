package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zatekoja/hostportal/backend/pkg/config"
	apperrors "github.com/zatekoja/hostportal/backend/pkg/errors"
)

// Client probes the frontend upstream the gateway proxies to
type Client struct {
	rest       *resty.Client
	healthPath string
}

// ProbeResult describes one readiness probe
type ProbeResult struct {
	StatusCode int           `json:"status_code"`
	Latency    time.Duration `json:"latency_ns"`
}

// NewClient creates an upstream probe client
func NewClient(cfg *config.UpstreamConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("User-Agent", "portal-gateway-probe").
		// a redirect from the frontend still means it is up
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		return err != nil || resp.StatusCode() >= 500
	})

	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/"
	}

	return &Client{rest: client, healthPath: healthPath}
}

// Probe requests the health path and fails on transport errors or 5xx
func (c *Client) Probe(ctx context.Context) (*ProbeResult, error) {
	resp, err := c.rest.R().SetContext(ctx).Get(c.healthPath)
	if err != nil {
		return nil, apperrors.NewExternalError("upstream probe failed", err)
	}

	result := &ProbeResult{StatusCode: resp.StatusCode(), Latency: resp.Time()}
	if resp.StatusCode() >= 500 {
		return result, apperrors.NewExternalError(fmt.Sprintf("upstream returned %d", resp.StatusCode()), nil)
	}
	return result, nil
}
