package settings

import (
	"encoding/json"
	"fmt"
	"os"
)

// Resolver locates the configuration file on disk. Production code resolves
// a path from the environment/CLI; tests can substitute a fixed path.
type Resolver interface {
	Resolve() (string, error)
}

// EnvResolver resolves the configuration path from VPNSE_CONFIG, falling
// back to a fixed default.
type EnvResolver struct {
	Default string
}

func NewEnvResolver() Resolver {
	return &EnvResolver{Default: "vpnse.json"}
}

func (r *EnvResolver) Resolve() (string, error) {
	if path := os.Getenv("VPNSE_CONFIG"); path != "" {
		return path, nil
	}
	return r.Default, nil
}

// Manager reads and parses the configuration file.
type Manager struct {
	resolver Resolver
}

func NewManager(resolver Resolver) *Manager {
	if resolver == nil {
		resolver = NewEnvResolver()
	}
	return &Manager{resolver: resolver}
}

func (m *Manager) Read() (*Config, error) {
	path, err := m.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file %s does not exist", path)
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration %s: %w", path, err)
	}
	return &cfg, nil
}
