package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeUint16(t *testing.T) {
	vals := []uint16{0, 1, 255, 256, math.MaxUint16}
	for _, v := range vals {
		buff := AppendUint16ToBufferLE([]byte{0xff}, v)
		res, off, ok := ReadUint16FromBufferLE(buff, 1)
		require.True(t, ok)
		require.Equal(t, v, res)
		require.Equal(t, 3, off)
	}
}

func TestEncodeDecodeUint32(t *testing.T) {
	vals := []uint32{0, 1, 1 << 16, math.MaxUint32}
	for _, v := range vals {
		buff := AppendUint32ToBufferLE(nil, v)
		res, off, ok := ReadUint32FromBufferLE(buff, 0)
		require.True(t, ok)
		require.Equal(t, v, res)
		require.Equal(t, 4, off)
	}
}

func TestReadShortBuffer(t *testing.T) {
	_, _, ok := ReadUint32FromBufferLE([]byte{1, 2, 3}, 0)
	require.False(t, ok)
	_, _, ok = ReadUint16FromBufferLE([]byte{1, 2}, 1)
	require.False(t, ok)
	_, _, ok = ReadUint32FromBufferLE(make([]byte, 8), -1)
	require.False(t, ok)
}
