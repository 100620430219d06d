package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeService_DescribeNode(t *testing.T) {
	t.Parallel()

	var model [32]int8
	for i, b := range []byte("x86_64") {
		model[i] = int8(b)
	}

	conn, rpc, _ := openConn(t, connOptions{})
	rpc.On("NodeGetInfo").Return(model, uint64(64<<20), int32(16), int32(2400), int32(1), int32(2), int32(4), int32(2), nil)
	rpc.On("NodeGetFreeMemory").Return(uint64(8<<30), nil)
	rpc.On("ConnectGetHostname").Return("node-1", nil)

	svc := NewNodeService(conn)
	node, err := svc.DescribeNode(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, "node-1", node.Hostname)
	assert.Equal(t, "qemu:///system", node.URI)
	assert.Equal(t, "x86_64", node.Model)
	assert.Equal(t, uint64(64<<20), node.MemoryKB)
	assert.Equal(t, int32(16), node.CPUs)
	assert.Equal(t, int32(2400), node.MHz)
	assert.Equal(t, int32(2), node.Sockets)
	assert.Equal(t, int32(4), node.Cores)
	assert.Equal(t, int32(2), node.Threads)
	assert.Equal(t, uint64(8<<30), node.FreeMemory)
	assert.True(t, node.Alive)

	_, err = svc.DescribeNode(context.Background(), true)
	require.NoError(t, err)
}
