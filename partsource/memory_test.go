package partsource

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryBackedOpenReadRewind(t *testing.T) {
	s := &MemoryBacked{Data: []byte("hello world")}
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))

	first, err := io.ReadAll(readFunc(s.Read))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(first))

	require.NoError(t, s.Rewind(ctx))
	second, err := io.ReadAll(readFunc(s.Read))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(second))
}

func TestMemoryBackedReadBeforeOpenReturnsEOF(t *testing.T) {
	s := &MemoryBacked{Data: []byte("x")}
	buf := make([]byte, 1)
	n, err := s.Read(buf)
	require.Equal(t, 0, n)
	require.Equal(t, io.EOF, err)
}

func TestMemoryBackedCloseClearsReader(t *testing.T) {
	s := &MemoryBacked{Data: []byte("x")}
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Close())
	buf := make([]byte, 1)
	_, err := s.Read(buf)
	require.Equal(t, io.EOF, err)
}

type readFunc func([]byte) (int, error)

func (f readFunc) Read(buf []byte) (int, error) { return f(buf) }
