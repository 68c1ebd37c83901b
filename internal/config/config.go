// Package config loads the publisher and gateway settings from an optional
// beamlit.yaml file and the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"

	"github.com/dotcommander/blgate/internal/errs"
)

// SettingsFile is the file name looked up in the working directory.
const SettingsFile = "beamlit.yaml"

const (
	defaultStoreURL     = "https://api.beamlit.dev/v0"
	defaultBaseURL      = "https://api.beamlit.dev/v0"
	defaultRunURL       = "https://run.beamlit.dev"
	defaultEnvironment  = "production"
	defaultHost         = "0.0.0.0"
	defaultPort         = 80
	defaultMaxRetries   = 10
	defaultRetryBackoff = 500 * time.Millisecond
	defaultStepBudget   = 5
	defaultStoreTimeout = 30 * time.Second
	defaultMCPTimeout   = 15 * time.Second
)

// Publisher holds what the manifest publisher needs. It is read from
// unprefixed environment variables only.
type Publisher struct {
	StoreURL      string        `env:"STORE_URL"`
	AdminUsername string        `env:"ADMIN_USERNAME"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	Image         string        `env:"IMAGE"`
	ResourceDir   string        `env:"RESOURCE_DIR"`
	Timeout       time.Duration `env:"STORE_TIMEOUT"`
}

// Gateway holds what the agent gateway needs. Values come from beamlit.yaml
// first, then BL_-prefixed environment variables.
type Gateway struct {
	Host         string        `yaml:"server-host" env:"SERVER_HOST"`
	Port         int           `yaml:"server-port" env:"SERVER_PORT"`
	Name         string        `yaml:"name" env:"NAME"`
	Prompt       string        `yaml:"prompt" env:"PROMPT"`
	Workspace    string        `yaml:"workspace" env:"WORKSPACE"`
	Environment  string        `yaml:"environment" env:"ENVIRONMENT"`
	BaseURL      string        `yaml:"base-url" env:"BASE_URL"`
	RunURL       string        `yaml:"run-url" env:"RUN_URL"`
	APIKey       string        `yaml:"api-key" env:"API_KEY"`
	APIKeyCmd    string        `yaml:"api-key-cmd" env:"API_KEY_CMD"`
	JWT          string        `yaml:"jwt" env:"JWT"`
	MaxRetries   int           `yaml:"max-retries" env:"MAX_RETRIES"`
	RetryBackoff time.Duration `yaml:"retry-backoff" env:"RETRY_BACKOFF"`
	StepBudget   int           `yaml:"step-budget" env:"STEP_BUDGET"`
	MCPTimeout   time.Duration `yaml:"mcp-timeout" env:"MCP_TIMEOUT"`
}

// Addr returns the host:port listen address.
func (g Gateway) Addr() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

// Validate reports missing settings the gateway cannot start without.
func (g Gateway) Validate() error {
	switch {
	case g.Name == "":
		return errs.Error{Kind: errs.ErrInitialization, Reason: "Agent name is required; set BL_NAME."}
	case g.Workspace == "":
		return errs.Error{Kind: errs.ErrInitialization, Reason: "Workspace is required; set BL_WORKSPACE."}
	case g.Port <= 0 || g.Port > 65535:
		return errs.Error{Kind: errs.ErrInitialization, Reason: fmt.Sprintf("Invalid server port %d.", g.Port)}
	}
	return nil
}

// Config is the full application configuration.
type Config struct {
	Publisher    Publisher
	Gateway      Gateway
	SettingsPath string
}

// Load reads settings from path (skipped when the file does not exist), then
// the environment, and fills defaults for anything left unset.
func Load(path string) (Config, error) {
	c := Config{SettingsPath: path}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, errs.Error{Err: err, Reason: "Could not read settings file."}
	default:
		if err := yaml.Unmarshal(content, &c.Gateway); err != nil {
			return c, errs.Error{Kind: errs.ErrParse, Err: err, Reason: "Could not parse settings file."}
		}
	}

	if err := env.Parse(&c.Publisher); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse publisher environment."}
	}
	if err := env.ParseWithOptions(&c.Gateway, env.Options{Prefix: "BL_"}); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse gateway environment."}
	}

	applyDefaults(&c)
	return c, nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Publisher.StoreURL == "" {
		c.Publisher.StoreURL = d.Publisher.StoreURL
	}
	if c.Publisher.ResourceDir == "" {
		c.Publisher.ResourceDir = d.Publisher.ResourceDir
	}
	if c.Publisher.Timeout == 0 {
		c.Publisher.Timeout = d.Publisher.Timeout
	}

	g := &c.Gateway
	if g.Host == "" {
		g.Host = d.Gateway.Host
	}
	if g.Port == 0 {
		g.Port = d.Gateway.Port
	}
	if g.Environment == "" {
		g.Environment = d.Gateway.Environment
	}
	if g.BaseURL == "" {
		g.BaseURL = d.Gateway.BaseURL
	}
	if g.RunURL == "" {
		g.RunURL = d.Gateway.RunURL
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = d.Gateway.MaxRetries
	}
	if g.RetryBackoff == 0 {
		g.RetryBackoff = d.Gateway.RetryBackoff
	}
	if g.StepBudget == 0 {
		g.StepBudget = d.Gateway.StepBudget
	}
	if g.MCPTimeout == 0 {
		g.MCPTimeout = d.Gateway.MCPTimeout
	}
}

// Default returns the default configuration values.
func Default() Config {
	return Config{
		Publisher: Publisher{
			StoreURL:    defaultStoreURL,
			ResourceDir: ".",
			Timeout:     defaultStoreTimeout,
		},
		Gateway: Gateway{
			Host:         defaultHost,
			Port:         defaultPort,
			Environment:  defaultEnvironment,
			BaseURL:      defaultBaseURL,
			RunURL:       defaultRunURL,
			MaxRetries:   defaultMaxRetries,
			RetryBackoff: defaultRetryBackoff,
			StepBudget:   defaultStepBudget,
			MCPTimeout:   defaultMCPTimeout,
		},
		SettingsPath: SettingsFile,
	}
}
