package basic

import "math"

// DefaultDimension is the size of each dimension of an array that is used
// before it is DIMensioned (indices 0..10).
const DefaultDimension = 11

// MaxArrayCells bounds the storage of a single array.
const MaxArrayCells = 1 << 20

// Array stores its cells in one flat row-major slice.
type Array struct {
	dims []int
	data []Value
}

func newArray(name string, dims []int) (*Array, error) {
	if len(dims) == 0 {
		return nil, newError(SyntaxError)
	}
	cells := 1
	for _, d := range dims {
		if d < 1 {
			return nil, newErrorf(IllegalQuantity, "dimension %d", d)
		}
		cells *= d
		if cells > MaxArrayCells {
			return nil, newError(OutOfMemory)
		}
	}
	data := make([]Value, cells)
	zero := zeroFor(name)
	for i := range data {
		data[i] = zero
	}
	return &Array{dims: append([]int(nil), dims...), data: data}, nil
}

// Dims returns a copy of the dimension sizes.
func (a *Array) Dims() []int {
	return append([]int(nil), a.dims...)
}

// Len returns the number of cells.
func (a *Array) Len() int {
	return len(a.data)
}

// offset resolves subscripts to a flat index. Get and Set both go through here.
func (a *Array) offset(indices []int) (int, error) {
	if len(indices) != len(a.dims) {
		return 0, newErrorf(BadSubscript, "expected %d subscripts, got %d", len(a.dims), len(indices))
	}
	off := 0
	for i, idx := range indices {
		if idx < 0 || idx >= a.dims[i] {
			return 0, newErrorf(BadSubscript, "subscript %d out of range 0..%d", idx, a.dims[i]-1)
		}
		off = off*a.dims[i] + idx
	}
	return off, nil
}

func (a *Array) Get(indices []int) (Value, error) {
	off, err := a.offset(indices)
	if err != nil {
		return Value{}, err
	}
	return a.data[off], nil
}

func (a *Array) Set(indices []int, v Value) error {
	off, err := a.offset(indices)
	if err != nil {
		return err
	}
	a.data[off] = v
	return nil
}

// toSubscript truncates a numeric subscript toward zero.
func toSubscript(v Value) (int, error) {
	if v.IsString() {
		return 0, newError(TypeMismatch)
	}
	f := math.Trunc(v.Number())
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, newError(BadSubscript)
	}
	return int(f), nil
}
