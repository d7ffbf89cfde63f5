package onnx

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch marks tensors whose rank, dimensions or data length do
// not match what the caller requires.
var ErrShapeMismatch = errors.New("tensor shape mismatch")

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	Data  []float32 `json:"data"`
	Shape []int64   `json:"shape"` // e.g. [N, C, H, W]
}

// NewTensor checks that data fills shape exactly.
func NewTensor(data []float32, shape ...int64) (Tensor, error) {
	t := Tensor{Data: data, Shape: append([]int64(nil), shape...)}
	if err := t.Validate(); err != nil {
		return Tensor{}, err
	}
	return t, nil
}

// Elements returns the product of the dimensions.
func (t Tensor) Elements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= int(d)
	}
	return n
}

// Validate checks for positive dimensions and a matching data length.
func (t Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("%w: empty shape", ErrShapeMismatch)
	}
	for i, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrShapeMismatch, i, d)
		}
	}
	if len(t.Data) != t.Elements() {
		return fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(t.Data), t.Shape)
	}
	return nil
}

// Dims validates t against an expected rank and returns its dimensions as ints.
func (t Tensor) Dims(rank int) ([]int, error) {
	if len(t.Shape) != rank {
		return nil, fmt.Errorf("%w: rank %d, want %d (shape %v)", ErrShapeMismatch, len(t.Shape), rank, t.Shape)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	dims := make([]int, rank)
	for i, d := range t.Shape {
		dims[i] = int(d)
	}
	return dims, nil
}

// Batch returns item i along the leading dimension with a leading
// dimension of 1. The data is shared, not copied.
func (t Tensor) Batch(i int) (Tensor, error) {
	if err := t.Validate(); err != nil {
		return Tensor{}, err
	}
	n := int(t.Shape[0])
	if i < 0 || i >= n {
		return Tensor{}, fmt.Errorf("%w: batch index %d of %d", ErrShapeMismatch, i, n)
	}
	per := len(t.Data) / n
	shape := append([]int64{1}, t.Shape[1:]...)
	return Tensor{Data: t.Data[i*per : (i+1)*per], Shape: shape}, nil
}

// Stack concatenates tensors of identical shape [1, ...] into [N, ...].
func Stack(items []Tensor) (Tensor, error) {
	if len(items) == 0 {
		return Tensor{}, fmt.Errorf("%w: empty batch", ErrShapeMismatch)
	}
	first := items[0]
	if err := first.Validate(); err != nil {
		return Tensor{}, err
	}
	if first.Shape[0] != 1 {
		return Tensor{}, fmt.Errorf("%w: leading dimension %d, want 1", ErrShapeMismatch, first.Shape[0])
	}
	per := len(first.Data)
	out := make([]float32, 0, per*len(items))
	for i, it := range items {
		if !sameShape(it.Shape, first.Shape) || len(it.Data) != per {
			return Tensor{}, fmt.Errorf("%w: item %d has shape %v, want %v", ErrShapeMismatch, i, it.Shape, first.Shape)
		}
		out = append(out, it.Data...)
	}
	shape := append([]int64{int64(len(items))}, first.Shape[1:]...)
	return Tensor{Data: out, Shape: shape}, nil
}

func sameShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
