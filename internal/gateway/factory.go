package gateway

import (
	"fmt"

	"hoadon/internal/config"
	"hoadon/internal/port"
)

// ClientFactory is a function that creates a ModelClient from a provider config.
type ClientFactory func(cfg *config.ProviderConfig) (port.ModelClient, error)

// registry of model provider factories, populated explicitly via
// RegisterProvider at startup.
var providers = map[string]ClientFactory{}

// RegisterProvider registers a model provider factory by name.
func RegisterProvider(name string, factory ClientFactory) {
	providers[name] = factory
}

// NewClient creates a ModelClient from a provider config using the registered factory.
func NewClient(cfg *config.ProviderConfig) (port.ModelClient, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown model provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
