package cmd

import (
	"os"
	"path/filepath"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/kvstore/boltkv"
	"github.com/billm/framehub/pkg/kvstore/sqlitekv"
	"github.com/billm/framehub/pkg/types"
)

// openStore opens the key-value store named by cfg.Driver
func openStore(cfg config.StorageConfig) (kvstore.Store, error) {
	if cfg.Driver == config.StorageDriverMemory {
		return kvstore.NewMemory(), nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, types.WrapError(types.ErrCodeInternal, "failed to create storage directory", err)
		}
	}

	switch cfg.Driver {
	case config.StorageDriverBolt:
		s, err := boltkv.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageDriverSQLite:
		s, err := sqlitekv.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, types.NewError(types.ErrCodeInvalidArgument, "unknown storage driver "+cfg.Driver)
	}
}
