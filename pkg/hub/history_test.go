package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/billm/framehub/pkg/protocol"
)

// TestHistory tests the hub history stack
func TestHistory(t *testing.T) {
	h := NewHistory(protocol.Route{Path: "/employees/list"})
	assert.False(t, h.CanBack())

	h.Push(protocol.Route{Path: "/payroll/run"})
	h.Push(protocol.Route{Path: "/payroll/run"})
	assert.Equal(t, 2, h.Len())

	h.Push(protocol.Route{Path: "/benefits/health/plans"})
	r, ok := h.Back()
	assert.True(t, ok)
	assert.Equal(t, "/payroll/run", r.Path)
	assert.True(t, h.CanForward())

	h.Push(protocol.Route{Path: "/employees/org"})
	assert.False(t, h.CanForward())
	assert.Equal(t, 3, h.Len())

	h.Replace(protocol.Route{Path: "/errors/404"})
	assert.Equal(t, "/errors/404", h.Current().Path)

	_, ok = h.Forward()
	assert.False(t, ok)
	h.Back()
	h.Back()
	_, ok = h.Back()
	assert.False(t, ok)
	assert.Equal(t, "/employees/list", h.Current().Path)
}
