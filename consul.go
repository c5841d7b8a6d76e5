package mqttsub

import (
	"context"
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// ConsulSource locates a YAML configuration document stored in the Consul KV store.
type ConsulSource struct {
	// Address of the Consul agent, "localhost:8500" when empty.
	Address string
	// Key holding the YAML document.
	Key string
	// Token is an optional ACL token.
	Token string
}

// Validate checks that the source can be queried.
func (s ConsulSource) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("%w: consul: KV key is required", ErrInvalidConfig)
	}

	return nil
}

// LoadConsulConfig fetches the document at src.Key and parses it like LoadConfig does.
func LoadConsulConfig(ctx context.Context, src ConsulSource) (*Config, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	config := consulapi.DefaultConfig()
	if src.Address != "" {
		config.Address = src.Address
	}

	if src.Token != "" {
		config.Token = src.Token
	}

	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create consul client: %w", ErrInvalidConfig, err)
	}

	pair, _, err := client.KV().Get(src.Key, (&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get key %s: %w", ErrInvalidConfig, src.Key, err)
	}

	if pair == nil {
		return nil, fmt.Errorf("%w: key %s not found", ErrInvalidConfig, src.Key)
	}

	cfg, err := ParseConfig(pair.Value)
	if err != nil {
		return nil, fmt.Errorf("parsing consul key '%s': %w", src.Key, err)
	}

	return cfg, nil
}
