package tree

import (
	"errors"
	"fmt"
)

const (
	// MinWidth is the smallest operand width the generator accepts (exclusive).
	// Below it the tree has fewer than three levels and the leaf/interior/top
	// split no longer holds.
	MinWidth = 16

	// MaxWidth caps the operand width at 4^8.
	MaxWidth = 65536

	// Radix is the fan-out of every invert look-ahead node.
	Radix = 4
)

var (
	ErrWidthTooSmall = errors.New("operand width must be greater than 16")
	ErrWidthTooLarge = errors.New("operand width exceeds 65536")
)

// Levels is the level structure derived from an operand width.
type Levels struct {
	// Width is the operand bit width n.
	Width int `json:"width"`

	// Count is L = ceil(log4(n)), the number of levels below the top node.
	Count int `json:"levels"`

	// Sizes holds S[0..L-1]. S[0] is the smallest power of 4 >= n and each
	// following entry is a quarter of the previous one.
	Sizes []int `json:"sizes"`
}

// PlanLevels computes the level count and per-level sizes for width n.
func PlanLevels(n int) (Levels, error) {
	lv := Levels{Width: n}
	if err := lv.Validate(); err != nil {
		return Levels{}, err
	}

	size := 1
	for size < n {
		size *= Radix
		lv.Count++
	}

	lv.Sizes = make([]int, lv.Count)
	for i := range lv.Sizes {
		lv.Sizes[i] = size
		size /= Radix
	}
	return lv, nil
}

// Validate reports whether the width is inside the supported domain.
func (lv Levels) Validate() error {
	switch {
	case lv.Width <= MinWidth:
		return fmt.Errorf("width %d: %w", lv.Width, ErrWidthTooSmall)
	case lv.Width > MaxWidth:
		return fmt.Errorf("width %d: %w", lv.Width, ErrWidthTooLarge)
	}
	return nil
}

// Top returns the tier index of the single top node (L).
func (lv Levels) Top() int {
	return lv.Count
}

// Size returns the number of elements at tier i. The top tier has size 1.
func (lv Levels) Size(i int) int {
	if i == lv.Count {
		return 1
	}
	if i < 0 || i > lv.Count {
		return 0
	}
	return lv.Sizes[i]
}

// Generic returns the VHDL generic holding the size of tier i.
func (lv Levels) Generic(i int) string {
	return fmt.Sprintf("G_l%d_size", i)
}

// Padding is the number of leaf-boundary entries above the active width.
func (lv Levels) Padding() int {
	if len(lv.Sizes) == 0 {
		return 0
	}
	return lv.Sizes[0] - lv.Width
}
