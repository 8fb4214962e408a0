package console

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	require.NoError(t, s.Send(context.Background(), "Gap: *UP 26.5%*"))
	assert.Contains(t, buf.String(), "Gap: *UP 26.5%*")
	assert.Equal(t, "console", s.Name())
}

func TestSendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(&bytes.Buffer{}).Send(ctx, "x"), context.Canceled)
}
