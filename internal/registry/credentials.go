package registry

import (
	"context"
	"net/http"
	"os/exec"
	"strings"

	"github.com/caarlos0/go-shellwords"

	"github.com/dotcommander/blgate/internal/config"
	"github.com/dotcommander/blgate/internal/errs"
)

// Header names understood by the control plane and the run proxy.
const (
	HeaderWorkspace     = "X-Beamlit-Workspace"
	HeaderEnvironment   = "X-Beamlit-Environment"
	HeaderAPIKey        = "X-Beamlit-Api-Key"
	HeaderAuthorization = "X-Beamlit-Authorization"
)

// Credentials identify the gateway to the platform.
type Credentials struct {
	Workspace   string
	Environment string
	APIKey      string
	JWT         string
}

// ResolveCredentials builds credentials from the gateway settings. The API
// key comes from api-key, then api-key-cmd. A JWT wins over an API key.
func ResolveCredentials(ctx context.Context, cfg config.Gateway) (Credentials, error) {
	creds := Credentials{
		Workspace:   cfg.Workspace,
		Environment: cfg.Environment,
		APIKey:      cfg.APIKey,
		JWT:         cfg.JWT,
	}
	if creds.JWT != "" || creds.APIKey != "" || cfg.APIKeyCmd == "" {
		return creds, nil
	}

	args, err := shellwords.Parse(cfg.APIKeyCmd)
	if err != nil {
		return creds, errs.Error{Err: err, Reason: "Failed to parse api-key-cmd"}
	}
	if len(args) == 0 {
		return creds, errs.Error{Reason: "api-key-cmd is empty"}
	}
	// #nosec G204 -- api-key-cmd is explicitly configured by the operator.
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
	if err != nil {
		return creds, errs.Error{Err: err, Reason: "Cannot exec api-key-cmd"}
	}
	creds.APIKey = strings.TrimSpace(string(out))
	return creds, nil
}

// Token returns the secret in use, JWT first.
func (c Credentials) Token() string {
	if c.JWT != "" {
		return c.JWT
	}
	return c.APIKey
}

// Headers returns the platform headers as a map, the shape MCP transports
// take.
func (c Credentials) Headers() map[string]string {
	h := map[string]string{}
	if c.Workspace != "" {
		h[HeaderWorkspace] = c.Workspace
	}
	if c.Environment != "" {
		h[HeaderEnvironment] = c.Environment
	}
	switch {
	case c.JWT != "":
		h[HeaderAuthorization] = "Bearer " + c.JWT
	case c.APIKey != "":
		h[HeaderAPIKey] = c.APIKey
	}
	return h
}

// Apply sets the platform headers on h.
func (c Credentials) Apply(h http.Header) {
	for k, v := range c.Headers() {
		h.Set(k, v)
	}
}

// Transport returns a RoundTripper that adds the platform headers to every
// request sent through base. A nil base means http.DefaultTransport.
func (c Credentials) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{creds: c, base: base}
}

type authTransport struct {
	creds Credentials
	base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	t.creds.Apply(req.Header)
	return t.base.RoundTrip(req)
}
