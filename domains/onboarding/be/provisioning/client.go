package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
)

// DefaultURL is the provisioning endpoint used when none is configured.
const DefaultURL = "http://localhost:8000/api/provision_org"

const defaultTimeout = 30 * time.Second

// Request is the JSON body accepted by the provisioning endpoint.
type Request struct {
	BotecoUsername string `json:"boteco_username"`
}

// HTTPClient calls the provisioning endpoint over HTTP. Any 2xx response is success.
type HTTPClient struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

type Config struct {
	URL     string
	Timeout time.Duration
	// Transport overrides the base round tripper. It is still wrapped with otelhttp.
	Transport http.RoundTripper
}

func NewHTTPClient(cfg Config, logger *zap.Logger) *HTTPClient {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPClient{
		url: cfg.URL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		logger: logger,
	}
}

// Provision POSTs {"boteco_username": handle}. Transport failures and non-2xx
// statuses come back as *gateway.ProvisioningError.
func (c *HTTPClient) Provision(ctx context.Context, handle string) error {
	body, err := json.Marshal(Request{BotecoUsername: handle})
	if err != nil {
		return &gateway.ProvisioningError{Handle: handle, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &gateway.ProvisioningError{Handle: handle, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &gateway.ProvisioningError{Handle: handle, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("provisioning rejected",
			zap.String("boteco_username", handle),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return &gateway.ProvisioningError{
			Handle:     handle,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ gateway.Provisioner = (*HTTPClient)(nil)
