package checkpoint

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNPY_NumPyMagicAndDtype(t *testing.T) {
	// GIVEN a 2x3 array
	b, err := EncodeNPY([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	// THEN the payload is a little-endian float64 NumPy file
	assert.True(t, bytes.HasPrefix(b, []byte("\x93NUMPY")))
	assert.Contains(t, string(b), npyFloat64)
}

func TestEncodeNPY_RejectsInconsistentShape(t *testing.T) {
	_, err := EncodeNPY([]int{2, 3}, []float64{1, 2, 3})
	assert.Error(t, err)
	_, err = EncodeNPY(nil, nil)
	assert.Error(t, err)
	_, err = EncodeNPY([]int{-1, 2}, nil)
	assert.Error(t, err)
}

func TestDecodeNPY_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		data  []float64
	}{
		{"runs x taus", []int{2, 3}, []float64{-1.5, 0, 2.25, -0.125, 1e-9, 3}},
		{"runs x taus x replicas", []int{2, 3, 2}, []float64{-1.5, 0, 2.25, -0.125, 1e-9, 3, 4, 5, 6, 7, 8, 9}},
		{"flat", []int{3}, []float64{1, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := EncodeNPY(tc.shape, tc.data)
			require.NoError(t, err)

			shape, got, err := DecodeNPY(b)
			require.NoError(t, err)
			assert.Equal(t, tc.shape, shape)
			assert.Equal(t, tc.data, got)
		})
	}
}

func TestDecodeNPY_Rejects(t *testing.T) {
	good, err := EncodeNPY([]int{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	intArray := bytes.Replace(good, []byte(npyFloat64), []byte("<i8"), 1)

	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("NOTNUMPY\x01\x00\x00\x00")},
		{"truncated data", good[:len(good)-3]},
		{"extra data", append(append([]byte{}, good...), 0, 0, 0, 0, 0, 0, 0, 0)},
		{"wrong dtype", intArray},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeNPY(tc.input)
			assert.True(t, errors.Is(err, ErrNPYFormat), "got %v", err)
		})
	}
}
