// Package fantasybridge connects the gateway to charm.land/fantasy: it builds
// providers, adapts platform tools to fantasy agent tools and runs agents as
// text streams.
package fantasybridge

import (
	"context"
	"fmt"
	"net/http"

	"charm.land/fantasy"
)

const (
	apiAnthropic = "anthropic"
	apiGoogle    = "google"
	apiOpenAI    = "openai"
	apiAzure     = "azure"
	apiAzureAD   = "azure-ad"
)

// Config represents provider configuration used by the fantasy bridge.
type Config struct {
	API        string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// LanguageModel builds the provider for cfg and returns its model.
func LanguageModel(ctx context.Context, cfg Config, model string) (fantasy.LanguageModel, error) {
	if cfg.API == "" {
		return nil, fmt.Errorf("missing provider type for model %q", model)
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	lm, err := provider.LanguageModel(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("fantasy language model: %w", err)
	}
	return lm, nil
}
