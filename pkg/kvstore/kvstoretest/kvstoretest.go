// Package kvstoretest holds the behaviour every kvstore.Store must share
package kvstoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/pkg/kvstore"
)

// Run exercises a store produced by open. The store is closed by Run.
func Run(t *testing.T, open func(t *testing.T) kvstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Get(ctx, "absent")
		assert.True(t, kvstore.IsNotFound(err))
	})

	t.Run("set then get", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "k", []byte("v1")))
		require.NoError(t, s.Set(ctx, "k", []byte("v2")))

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("json helpers", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		type state struct {
			Collapsed bool     `json:"collapsed"`
			Sections  []string `json:"sections"`
		}
		in := state{Collapsed: true, Sections: []string{"hr", "payroll"}}
		require.NoError(t, kvstore.SetJSON(ctx, s, "state", in))

		var out state
		require.NoError(t, kvstore.GetJSON(ctx, s, "state", &out))
		assert.Equal(t, in, out)

		require.NoError(t, s.Set(ctx, "garbage", []byte("{not json")))
		assert.Error(t, kvstore.GetJSON(ctx, s, "garbage", &out))
	})
}
