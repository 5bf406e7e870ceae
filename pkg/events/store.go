package events

import "fmt"

// New opens the store selected by cfg. Defaults are applied to cfg.
func New(cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event store configuration: %w", err)
	}

	switch cfg.Type {
	case StoreMemory:
		return NewMemoryStore(cfg.Memory.Capacity), nil
	case StoreBadger:
		return NewBadgerStore(cfg.Badger.Path)
	case StoreSQLite, StorePostgres:
		return NewGORMStore(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreType, cfg.Type)
	}
}
