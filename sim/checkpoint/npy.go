package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ErrNPYFormat is wrapped by every .npy decoding failure.
var ErrNPYFormat = errors.New("malformed npy payload")

const npyFloat64 = "<f8"

// EncodeNPY renders a float64 C-order array in NumPy format, readable by numpy.load.
func EncodeNPY(shape []int, data []float64) ([]byte, error) {
	if len(shape) == 0 {
		return nil, errors.New("npy array needs at least one dimension")
	}
	size := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
		size *= d
	}
	if size != len(data) {
		return nil, fmt.Errorf("shape %v holds %d values, have %d", shape, size, len(data))
	}
	var buf bytes.Buffer
	if err := npyio.Write(&buf, npyValue(shape, data)); err != nil {
		return nil, fmt.Errorf("encode npy %v: %w", shape, err)
	}
	return buf.Bytes(), nil
}

// npyValue lays data out the way npyio derives a shape from: a gonum matrix
// for a non-empty 2-D array, otherwise a slice whose element is a nested
// fixed-size array per trailing dimension.
func npyValue(shape []int, data []float64) any {
	switch {
	case len(shape) == 1:
		return data
	case len(shape) == 2 && shape[0] > 0 && shape[1] > 0:
		return mat.NewDense(shape[0], shape[1], data)
	}
	elem := reflect.TypeOf(float64(0))
	for i := len(shape) - 1; i >= 1; i-- {
		elem = reflect.ArrayOf(shape[i], elem)
	}
	rows := reflect.MakeSlice(reflect.SliceOf(elem), shape[0], shape[0])
	next := 0
	var fill func(v reflect.Value)
	fill = func(v reflect.Value) {
		if v.Kind() == reflect.Float64 {
			v.SetFloat(data[next])
			next++
			return
		}
		for i := 0; i < v.Len(); i++ {
			fill(v.Index(i))
		}
	}
	fill(rows)
	return rows.Interface()
}

// DecodeNPY parses a NumPy '<f8' C-order array of any shape.
func DecodeNPY(b []byte) ([]int, []float64, error) {
	src := bytes.NewReader(b)
	r, err := npyio.NewReader(src)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNPYFormat, err)
	}
	descr := r.Header.Descr
	if descr.Type != npyFloat64 {
		return nil, nil, fmt.Errorf("%w: want dtype %q, have %q", ErrNPYFormat, npyFloat64, descr.Type)
	}
	if descr.Fortran {
		return nil, nil, fmt.Errorf("%w: only C-order arrays are supported", ErrNPYFormat)
	}
	size := 1
	for _, d := range descr.Shape {
		size *= d
	}
	data := make([]float64, size)
	if err := r.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("%w: shape %v: %v", ErrNPYFormat, descr.Shape, err)
	}
	if src.Len() != 0 {
		return nil, nil, fmt.Errorf("%w: %d bytes after the data of shape %v", ErrNPYFormat, src.Len(), descr.Shape)
	}
	return append([]int(nil), descr.Shape...), data, nil
}
