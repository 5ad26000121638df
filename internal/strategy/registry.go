package strategy

import (
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/utils"
)

// Registration describes one named strategy.
type Registration struct {
	Name        string
	Description string
	// Config is the zero or default config struct; its schema is published by Schema.
	Config any
	New    Factory
}

// Registry maps strategy names to factories. Callers own their registry; there is no
// package-level instance.
type Registry struct {
	strategies map[string]Registration
	mu         sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Registration),
	}
}

// NewDefaultRegistry returns a registry holding every reference strategy.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	for _, registration := range []Registration{
		buyAndHoldRegistration(),
		smaCrossoverRegistration(),
		rsiRegistration(),
		stopLossLongRegistration(),
	} {
		// names are distinct constants
		_ = r.Register(registration)
	}

	return r
}

// Register adds a strategy. Names must be unique.
func (r *Registry) Register(registration Registration) error {
	if registration.Name == "" || registration.New == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy registration needs a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[registration.Name]; exists {
		return errors.Newf(errors.ErrCodeStrategyExists, "strategy %s is already registered", registration.Name)
	}

	r.strategies[registration.Name] = registration

	return nil
}

// Get returns the registration for name.
func (r *Registry) Get(name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.strategies[name]
	if !exists {
		return Registration{}, errors.Newf(errors.ErrCodeStrategyNotRegistered, "strategy %s is not registered", name)
	}

	return registration, nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; !exists {
		return errors.Newf(errors.ErrCodeStrategyNotRegistered, "strategy %s is not registered", name)
	}

	delete(r.strategies, name)

	return nil
}

// New builds a fresh instance of the named strategy.
func (r *Registry) New(name, config string, env Environment) (Strategy, error) {
	registration, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	return registration.New(config, env)
}

// Schema returns the JSON schema of the named strategy's config.
func (r *Registry) Schema(name string) (string, error) {
	registration, err := r.Get(name)
	if err != nil {
		return "", err
	}

	return utils.GetSchemaFromConfig(registration.Config)
}
