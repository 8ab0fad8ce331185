package ndarray

import "fmt"

// View exposes an array's buffer to foreign numeric code without copying.
// Strides are in bytes, the convention used by buffer protocols.
type View struct {
	Data    []float64
	Shape   []int
	Strides []int
}

// View returns a zero-copy view of the array.
func (a *Array) View() View {
	strides := make([]int, len(a.strides))
	for i, s := range a.strides {
		strides[i] = s * elemSize
	}
	return View{
		Data:    a.data,
		Shape:   a.Shape(),
		Strides: strides,
	}
}

// FromView wraps a host buffer as an Array without copying. The view must be
// C-contiguous and its buffer must hold exactly Π shape elements.
func FromView(v View) (*Array, error) {
	if len(v.Strides) != len(v.Shape) {
		return nil, fmt.Errorf("%w: %d strides for %d axes", ErrShapeMismatch, len(v.Strides), len(v.Shape))
	}
	size := 1
	for i, n := range v.Shape {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative length %d on axis %d", ErrShapeMismatch, n, i)
		}
		size *= n
	}
	if len(v.Data) != size {
		return nil, fmt.Errorf("%w: buffer holds %d elements, shape needs %d", ErrShapeMismatch, len(v.Data), size)
	}

	want := rowMajorStrides(v.Shape)
	for i, s := range v.Strides {
		// Strides of unit axes carry no information.
		if v.Shape[i] <= 1 {
			continue
		}
		if s != want[i]*elemSize {
			return nil, fmt.Errorf("%w: stride %d on axis %d is not C-contiguous (want %d)",
				ErrShapeMismatch, s, i, want[i]*elemSize)
		}
	}

	return &Array{
		shape:   append([]int(nil), v.Shape...),
		strides: want,
		data:    v.Data,
	}, nil
}
