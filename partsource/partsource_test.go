package partsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenTracksAndCloseUntracks(t *testing.T) {
	src := &MemoryBacked{Data: []byte("hi")}
	g, err := Open(context.Background(), src, "test-leak-label")
	require.NoError(t, err)
	require.Contains(t, OpenLeaks(), "test-leak-label")

	require.NoError(t, g.Close())
	require.NotContains(t, OpenLeaks(), "test-leak-label")
}

func TestDisposeUntracksWithoutClose(t *testing.T) {
	src := &MemoryBacked{Data: []byte("hi")}
	g, err := Open(context.Background(), src, "test-leak-label-2")
	require.NoError(t, err)
	require.Contains(t, OpenLeaks(), "test-leak-label-2")

	g.Dispose()
	require.NotContains(t, OpenLeaks(), "test-leak-label-2")
}

func TestOpenedSourceStillReadsThroughWrapper(t *testing.T) {
	src := &MemoryBacked{Data: []byte("payload")}
	g, err := Open(context.Background(), src, "read-through")
	require.NoError(t, err)
	defer g.Close()

	buf := make([]byte, 7)
	n, err := g.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "payload", string(buf[:n]))
}

func TestOpenPropagatesOpenError(t *testing.T) {
	src := &FileBacked{Path: "/does/not/exist/at/all"}
	_, err := Open(context.Background(), src, "missing-file")
	require.Error(t, err)
	require.NotContains(t, OpenLeaks(), "missing-file")
}
