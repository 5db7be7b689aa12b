package livellm

import (
	"slices"
	"sync"
)

// ModelRef is a model together with the credentials of the provider serving it.
type ModelRef struct {
	Model Model
	Creds Creds
}

// Registry answers which providers serve a model and what the model can consume.
// It is built once from provider configurations and never mutated afterwards, so it is
// safe for concurrent use.
type Registry struct {
	providers []ProviderConfig

	// Lookup caches keyed by model name. Racing lookups may compute the same entry twice;
	// both results are equal because the configuration is immutable.
	creds sync.Map // string -> []Creds
	caps  sync.Map // string -> CapabilitySet
}

// NewRegistry builds a Registry from providers. Registration order is fallback order.
// The configurations are copied, later changes to the argument have no effect.
func NewRegistry(providers []ProviderConfig) *Registry {
	cp := make([]ProviderConfig, len(providers))
	for i, p := range providers {
		cp[i] = ProviderConfig{Creds: p.Creds, Models: slices.Clone(p.Models)}
	}
	return &Registry{providers: cp}
}

// ProvidersForModel returns the credentials of every provider exposing a model named name,
// in registration order. A provider appears at most once.
// It returns a [ModelNotFoundErr] if no provider exposes the model.
func (r *Registry) ProvidersForModel(name string) ([]Creds, error) {
	if v, ok := r.creds.Load(name); ok {
		return slices.Clone(v.([]Creds)), nil
	}

	var found []Creds
	for _, p := range r.providers {
		for _, m := range p.Models {
			if m.Name == name {
				found = append(found, p.Creds)
				break
			}
		}
	}
	if len(found) == 0 {
		return nil, ModelNotFoundErr(name)
	}

	r.creds.Store(name, found)
	return slices.Clone(found), nil
}

// CapabilitiesForModel returns the capabilities of name as declared by the first provider,
// in registration order, that exposes it.
// It returns a [ModelNotFoundErr] if no provider exposes the model.
func (r *Registry) CapabilitiesForModel(name string) (CapabilitySet, error) {
	if v, ok := r.caps.Load(name); ok {
		return v.(CapabilitySet), nil
	}

	for _, p := range r.providers {
		for _, m := range p.Models {
			if m.Name == name {
				r.caps.Store(name, m.Capabilities)
				return m.Capabilities, nil
			}
		}
	}
	return 0, ModelNotFoundErr(name)
}

// ModelsWithCapability returns every model that has capability c, in registration order
// of providers and then of models within a provider.
func (r *Registry) ModelsWithCapability(c Capability) []ModelRef {
	var refs []ModelRef
	for _, p := range r.providers {
		for _, m := range p.Models {
			if m.Capabilities.Has(c) {
				refs = append(refs, ModelRef{Model: m, Creds: p.Creds})
			}
		}
	}
	return refs
}

// Providers returns a copy of the configurations the registry was built from.
func (r *Registry) Providers() []ProviderConfig {
	cp := make([]ProviderConfig, len(r.providers))
	for i, p := range r.providers {
		cp[i] = ProviderConfig{Creds: p.Creds, Models: slices.Clone(p.Models)}
	}
	return cp
}
