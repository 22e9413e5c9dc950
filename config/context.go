package config

import (
	"context"
	"fmt"
)

type configContextKey struct{}

// Inject returns a child context carrying this configuration. Commands use
// this to make the flag-resolved configuration available to the flows they
// dispatch into without threading it through every call site.
func (c Config) Inject(ctx context.Context) context.Context {
	return context.WithValue(ctx, configContextKey{}, c)
}

// FromContext retrieves the configuration previously injected with Inject.
func FromContext(ctx context.Context) (Config, error) {
	cfg, ok := ctx.Value(configContextKey{}).(Config)
	if !ok {
		return Config{}, fmt.Errorf("configuration not available in context")
	}

	return cfg, nil
}
