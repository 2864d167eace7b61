package storage

import (
	"context"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

// NewFlatStore builds the driver named in config. Drivers connect lazily,
// so a missing directory or unreachable server surfaces on the first Ping.
func NewFlatStore(_ context.Context, config *types.FlatStoreConfig, logger types.Logger) (types.FlatStore, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	switch config.Driver {
	case "memory":
		return NewMemoryFlatStore(), nil
	case "clover":
		return NewCloverFlatStore(config.Path, logger), nil
	case "redis":
		return NewRedisFlatStore(config.Redis, logger), nil
	default:
		return nil, types.Errorf(types.ErrFlatStoreTypeUnknown, "driver: %s", config.Driver)
	}
}
