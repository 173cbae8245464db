package llm

import (
	"context"

	"github.com/chatfront/chatfront-backend/internal/shared/utils"
)

// Service wraps the LLM provider for dependency injection. It also
// hands out per-tenant providers when a business carries its own API
// credential: tenant isolation requires that key to be used in place of
// the shared default for every call on that tenant's behalf.
type Service struct {
	cfg      *ProviderConfig
	provider Provider
}

// NewService creates the service with the default provider from config.
func NewService(cfg *ProviderConfig) (*Service, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	utils.LogInfo("LLM provider ready", map[string]interface{}{
		"provider": provider.GetProviderName(),
		"model":    cfg.Model,
	})

	return &Service{cfg: cfg, provider: provider}, nil
}

// NewServiceWithProvider creates service with custom provider (for testing)
func NewServiceWithProvider(provider Provider) *Service {
	return &Service{provider: provider}
}

// ProviderFor returns the provider to use for a tenant. With an empty
// override (or when the service was built around a fixed provider) the
// shared default is returned.
func (s *Service) ProviderFor(tenantKey string) Provider {
	if tenantKey == "" || s.cfg == nil {
		return s.provider
	}

	cfg := s.cfg.WithTenantKey(tenantKey)
	provider, err := NewProvider(&cfg)
	if err != nil {
		utils.LogWarn("tenant key override rejected, using default provider", map[string]interface{}{
			"error": err.Error(),
		})
		return s.provider
	}
	return provider
}

// GenerateChat generates a reply with the default provider.
func (s *Service) GenerateChat(ctx context.Context, req *ChatRequest) (string, error) {
	return s.provider.GenerateChat(ctx, req)
}

// GetProviderName returns current provider name
func (s *Service) GetProviderName() string {
	return s.provider.GetProviderName()
}
