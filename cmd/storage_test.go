package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/pkg/types"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	drivers := map[string]string{
		config.StorageDriverBolt:   filepath.Join(dir, "bolt", "state.db"),
		config.StorageDriverSQLite: filepath.Join(dir, "sqlite", "state.sqlite"),
		config.StorageDriverMemory: "",
	}

	for driver, path := range drivers {
		t.Run(driver, func(t *testing.T) {
			kv, err := openStore(config.StorageConfig{Driver: driver, Path: path})
			require.NoError(t, err)
			defer kv.Close()

			ctx := context.Background()
			require.NoError(t, kv.Set(ctx, "k", []byte("v")))
			got, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)
		})
	}

	_, err := openStore(config.StorageConfig{Driver: "etcd", Path: filepath.Join(dir, "x")})
	assert.True(t, types.IsErrCode(err, types.ErrCodeInvalidArgument))
}

func TestDemoUser(t *testing.T) {
	assert.Equal(t, "demo", demoUser(config.UserConfig{}).ID)
	u := demoUser(config.UserConfig{ID: "u-9", Name: "Ada"})
	assert.Equal(t, "u-9", u.ID)
	assert.Equal(t, "Ada", u.Name)
}
