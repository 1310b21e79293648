// Package tensorio reads and writes NumPy .npy files so that windowed
// datasets load directly with numpy.load.
package tensorio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/okian/facewin/internal/domain/types"
	"github.com/sbinet/npyio"
)

// Little-endian dtype descriptors.
const (
	DescrFloat64 = "<f8"
	DescrInt64   = "<i8"
)

// WriteTensor writes t as a C-ordered float64 array of shape t.Shape.
func WriteTensor(path string, t types.Tensor) error {
	val, err := shaped(t)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		return npyio.Write(w, val)
	})
}

// WriteLabels writes labels as a 1-D int64 array.
func WriteLabels(path string, labels []int) error {
	data := make([]int64, len(labels))
	for i, l := range labels {
		data[i] = int64(l)
	}
	return writeFile(path, func(w io.Writer) error {
		return npyio.Write(w, data)
	})
}

// shaped returns a value whose Go type carries t's shape: the flat slice for
// one dimension, otherwise a pointer to nested fixed-size arrays.
func shaped(t types.Tensor) (any, error) {
	n := 1
	for _, d := range t.Shape {
		if d < 1 {
			return nil, fmt.Errorf("%w: shape %v", ErrShapeMismatch, t.Shape)
		}
		n *= d
	}
	if len(t.Shape) == 0 || n != len(t.Data) {
		return nil, fmt.Errorf("%w: shape %v, %d elements", ErrShapeMismatch, t.Shape, len(t.Data))
	}
	if len(t.Shape) == 1 {
		return t.Data, nil
	}

	typ := reflect.TypeOf(float64(0))
	for i := len(t.Shape) - 1; i >= 0; i-- {
		typ = reflect.ArrayOf(t.Shape[i], typ)
	}
	v := reflect.New(typ)
	fill(v.Elem(), t.Data)
	return v.Interface(), nil
}

// fill copies data in row-major order into the nested array v.
func fill(v reflect.Value, data []float64) {
	if v.Type().Elem().Kind() == reflect.Float64 {
		reflect.Copy(v, reflect.ValueOf(data))
		return
	}
	step := len(data) / v.Len()
	for i := 0; i < v.Len(); i++ {
		fill(v.Index(i), data[i*step:(i+1)*step])
	}
}

// ReadTensor loads a C-ordered float64 .npy file.
func ReadTensor(path string) (types.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Tensor{}, err
	}
	defer f.Close()

	r, err := open(f, DescrFloat64)
	if err != nil {
		return types.Tensor{}, err
	}
	var data []float64
	if err := r.Read(&data); err != nil {
		return types.Tensor{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return types.Tensor{Shape: append([]int(nil), r.Header.Descr.Shape...), Data: data}, nil
}

// ReadLabels loads an int64 .npy vector.
func ReadLabels(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := open(f, DescrInt64)
	if err != nil {
		return nil, err
	}
	if len(r.Header.Descr.Shape) != 1 {
		return nil, fmt.Errorf("%w: shape %v", ErrFormat, r.Header.Descr.Shape)
	}
	var raw []int64
	if err := r.Read(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	return out, nil
}

// open reads the header and checks the dtype and memory order.
func open(f io.Reader, descr string) (*npyio.Reader, error) {
	r, err := npyio.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if r.Header.Descr.Type != descr || r.Header.Descr.Fortran {
		return nil, fmt.Errorf("%w: dtype %s fortran %v", ErrFormat, r.Header.Descr.Type, r.Header.Descr.Fortran)
	}
	return r, nil
}

// writeFile writes through a temporary sibling and renames it into place.
func writeFile(path string, encode func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmp, err := os.CreateTemp(dir, ".npy-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := encode(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}
