package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), Key(KeyPaymentMethod, 7), "x", 0).Err())
	assert.True(t, mr.Exists("pos:payment_method:7"))
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := New(context.Background(), addr)
	assert.Error(t, err)
}
