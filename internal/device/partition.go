package device

import "github.com/annet-ml/annet/internal/errs"

// Range is the half-open span [Lo, Hi) of global neuron ids.
type Range struct {
	Lo, Hi int
}

// Len returns the number of neurons in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// Contains reports whether id falls in the range.
func (r Range) Contains(id int) bool { return id >= r.Lo && id < r.Hi }

// Partition splits n neurons over d devices into contiguous ranges. The
// first n mod d ranges hold one extra neuron.
func Partition(n, d int) ([]Range, error) {
	const op = "device.Partition"
	if d < 1 {
		return nil, errs.New(errs.KindDevice, op, "need at least one device, got %d", d)
	}
	if d > n {
		return nil, errs.New(errs.KindDevice, op, "%d devices for %d neurons leaves a device empty", d, n)
	}

	base, extra := n/d, n%d
	out := make([]Range, d)
	lo := 0
	for i := range out {
		size := base
		if i < extra {
			size++
		}
		out[i] = Range{Lo: lo, Hi: lo + size}
		lo += size
	}
	return out, nil
}
