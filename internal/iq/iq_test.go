package iq

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"2xf32": Format2xF32, "2xi16": Format2xI16, "2xi8": Format2xI8, "i8": FormatI8}
	for s, want := range cases {
		got, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("bogus")
	assert.Error(t, err)
}

func TestFileSource_2xF32(t *testing.T) {
	buf := make([]byte, 0, 16)
	put32 := func(v float32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf = append(buf, b[:]...)
	}
	put32(0.5)
	put32(-0.25)
	put32(1.0)
	put32(0.0)

	p := writeTemp(t, "f32.bin", buf)
	src, err := OpenFile(p, Format2xF32, 2046000)
	require.NoError(t, err)
	defer src.Close()

	s, err := src.Read(0, 2)
	require.NoError(t, err)
	require.Len(t, s.IQ, 2)
	assert.InDelta(t, 0.5, real(s.IQ[0]), 1e-6)
	assert.InDelta(t, -0.25, imag(s.IQ[0]), 1e-6)
	assert.InDelta(t, 1.0, real(s.IQ[1]), 1e-6)
}

func TestFileSource_2xI16Normalizes(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:], uint16(int16(math.MaxInt16)))
	binary.LittleEndian.PutUint16(buf[2:], uint16(int16(math.MinInt16+1)))
	p := writeTemp(t, "i16.bin", buf)

	src, err := OpenFile(p, Format2xI16, 2046000)
	require.NoError(t, err)
	defer src.Close()

	s, err := src.Read(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, real(s.IQ[0]), 1e-6)
	assert.InDelta(t, -1.0, imag(s.IQ[0]), 1e-3)
}

func TestFileSource_I8RealOnly(t *testing.T) {
	buf := []byte{127, 0xFF /* -1 */}
	p := writeTemp(t, "i8.bin", buf)

	src, err := OpenFile(p, FormatI8, 2046000)
	require.NoError(t, err)
	defer src.Close()

	s, err := src.Read(0, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, real(s.IQ[0]), 1e-6)
	assert.Equal(t, 0.0, imag(s.IQ[0]))
	assert.InDelta(t, -1.0/127, real(s.IQ[1]), 1e-6)
}

func TestFileSource_EOFAtEndOfFile(t *testing.T) {
	buf := make([]byte, 8) // two 2xi16 samples
	p := writeTemp(t, "short.bin", buf)
	src, err := OpenFile(p, Format2xI16, 2046000)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Read(0, 10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenFile_RejectsZeroSampleRate(t *testing.T) {
	p := writeTemp(t, "x.bin", []byte{0, 0, 0, 0})
	_, err := OpenFile(p, Format2xI16, 0)
	assert.Error(t, err)
}
