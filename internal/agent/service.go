package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"charm.land/fantasy"
	mmcp "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/blgate/internal/config"
	"github.com/dotcommander/blgate/internal/errs"
	"github.com/dotcommander/blgate/internal/fantasybridge"
	"github.com/dotcommander/blgate/internal/logging"
	"github.com/dotcommander/blgate/internal/registry"
)

const defaultRuntimeType = "openai"

// Registry is the control-plane surface the service needs.
type Registry interface {
	GetAgent(ctx context.Context, name string) (*registry.AgentDefinition, error)
	GetModel(ctx context.Context, name string) (*registry.ModelDefinition, error)
	RunAgent(ctx context.Context, name, input string) (string, error)
	RunURL(kind, name string) string
}

// ToolSource lists and calls function tools.
type ToolSource interface {
	Tools(ctx context.Context, functions []string) (map[string][]mmcp.Tool, error)
	CallTool(ctx context.Context, function, tool string, data []byte) (string, error)
}

// ModelFactory builds a language model from provider settings.
type ModelFactory func(ctx context.Context, cfg fantasybridge.Config, model string) (fantasy.LanguageModel, error)

// Service resolves the configured agent into a Runtime.
type Service struct {
	cfg      config.Gateway
	creds    registry.Credentials
	registry Registry
	tools    ToolSource
	newModel ModelFactory
	http     *http.Client
	logger   *zap.SugaredLogger
}

// Option configures a Service.
type Option func(*Service)

// WithModelFactory replaces the fantasy-backed model factory.
func WithModelFactory(f ModelFactory) Option {
	return func(s *Service) { s.newModel = f }
}

// WithHTTPClient sets the client used to fetch remote prompts.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// New creates an agent service.
func New(cfg config.Gateway, creds registry.Credentials, reg Registry, tools ToolSource, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		creds:    creds,
		registry: reg,
		tools:    tools,
		newModel: fantasybridge.LanguageModel,
		http:     http.DefaultClient,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve fetches the agent definition, then resolves its model and tools
// concurrently. Any failure is returned as an errs.ErrInitialization error
// wrapping the cause.
func (s *Service) Resolve(ctx context.Context) (*Runtime, error) {
	def, err := s.registry.GetAgent(ctx, s.cfg.Name)
	if err != nil {
		return nil, initError(err, fmt.Sprintf("Could not load agent %s.", s.cfg.Name))
	}

	promptSetting := s.cfg.Prompt
	if promptSetting == "" {
		promptSetting = def.Spec.Prompt
	}
	prompt, err := config.ResolvePrompt(ctx, s.http, promptSetting)
	if err != nil {
		return nil, initError(err, "Could not load the agent prompt.")
	}

	rt := &Runtime{
		Agent:      s.cfg.Name,
		Prompt:     prompt,
		ModelName:  def.Spec.Model,
		StepBudget: s.cfg.StepBudget,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.resolveModel(gctx, def.Spec.Model, rt)
	})
	g.Go(func() error {
		tools, err := s.resolveTools(gctx, def.Spec)
		if err != nil {
			return err
		}
		rt.Tools = tools
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Infow("agent resolved",
		"agent", rt.Agent,
		"model", rt.ModelName,
		"voice", rt.IsVoice(),
		"tools", len(rt.Tools),
	)
	return rt, nil
}

// resolveModel fills the model half of rt. Only this goroutine writes those
// fields.
func (s *Service) resolveModel(ctx context.Context, name string, rt *Runtime) error {
	if name == "" {
		return initError(nil, fmt.Sprintf("Agent %s has no model.", s.cfg.Name))
	}
	def, err := s.registry.GetModel(ctx, name)
	if errors.Is(err, errs.ErrNotFound) {
		// Only a missing agent is final. A missing model is retried.
		return initError(fmt.Errorf("model %s not found", name), fmt.Sprintf("Could not load model %s.", name))
	}
	if err != nil {
		return initError(err, fmt.Sprintf("Could not load model %s.", name))
	}

	runtimeType := def.Spec.Runtime.Type
	if runtimeType == "" {
		runtimeType = defaultRuntimeType
	}
	modelID := def.Spec.Runtime.Model
	if modelID == "" {
		modelID = name
	}
	baseURL := def.Spec.Runtime.Endpoint
	if baseURL == "" {
		baseURL = s.registry.RunURL("models", name) + "/v1"
	}

	if isRealtime(modelID) {
		header := http.Header{}
		s.creds.Apply(header)
		rt.Voice = &Voice{URL: realtimeURL(baseURL, modelID), Model: modelID, Header: header}
		return nil
	}

	lm, err := s.newModel(ctx, fantasybridge.Config{
		API:        runtimeType,
		BaseURL:    baseURL,
		APIKey:     s.creds.Token(),
		HTTPClient: &http.Client{Transport: s.creds.Transport(nil)},
	}, modelID)
	if err != nil {
		return initError(err, fmt.Sprintf("Could not set up model %s.", name))
	}
	rt.Model = lm
	return nil
}

func (s *Service) resolveTools(ctx context.Context, spec registry.AgentSpec) ([]fantasy.AgentTool, error) {
	var tools []fantasy.AgentTool
	if len(spec.Functions) > 0 {
		byFunction, err := s.tools.Tools(ctx, spec.Functions)
		if err != nil {
			return nil, initError(err, "Could not list function tools.")
		}
		tools = fantasybridge.FromMCPTools(byFunction, s.tools.CallTool)
	}
	for _, link := range spec.AgentChain {
		if !link.IsEnabled() || link.Name == s.cfg.Name {
			continue
		}
		tools = append(tools, fantasybridge.NewChainTool(link.Name, link.Description, s.registry.RunAgent))
	}
	return tools, nil
}

func isRealtime(model string) bool {
	return strings.Contains(strings.ToLower(model), "realtime")
}

func realtimeURL(baseURL, model string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/realtime?model=" + url.QueryEscape(model)
}

func initError(err error, reason string) error {
	return errs.Error{Kind: errs.ErrInitialization, Err: err, Reason: reason}
}
