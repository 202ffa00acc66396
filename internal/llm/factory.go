package llm

import (
	"fmt"
	"sync"

	"labinsight/internal/config"
	"labinsight/internal/port"
)

// ProviderFactory creates a TextGenerator from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.TextGenerator, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProvider registers a generation provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// NewGenerator creates a TextGenerator from a provider config using the registered factory.
func NewGenerator(cfg *config.ProviderConfig) (port.TextGenerator, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// BuildChain assembles the configured providers. A single provider is returned
// as-is; more than one is wrapped in a FallbackGenerator.
func BuildChain(cfg *config.GeneratorConfig) (port.TextGenerator, error) {
	chain := cfg.Chain()
	generators := make([]port.TextGenerator, 0, len(chain))
	names := make([]string, 0, len(chain))
	for _, pc := range chain {
		g, err := NewGenerator(pc)
		if err != nil {
			return nil, err
		}
		generators = append(generators, g)
		names = append(names, pc.Provider)
	}
	if len(generators) == 1 {
		return generators[0], nil
	}
	return NewFallbackGenerator(generators, names), nil
}
