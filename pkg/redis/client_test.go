package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewClient(Options{Addr: mr.Addr()})
	require.NoError(t, Ping(context.Background(), client))

	require.NoError(t, Close(client))

	// 关闭后连接不可用
	assert.Error(t, Ping(context.Background(), client))
}
