package domain

import (
	"math/bits"

	"github.com/solestate/estated/pkg/errors"
)

func CheckedAdd(op string, a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errors.ARITHMETIC_OVERFLOW.New("%s: %d + %d overflows", op, a, b).
			WithMetadata(errors.OverflowMetadata{Operation: op, Left: a, Right: b})
	}
	return sum, nil
}

func CheckedSub(op string, a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, errors.ARITHMETIC_OVERFLOW.New("%s: %d - %d underflows", op, a, b).
			WithMetadata(errors.OverflowMetadata{Operation: op, Left: a, Right: b})
	}
	return diff, nil
}

func CheckedMul(op string, a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, errors.ARITHMETIC_OVERFLOW.New("%s: %d * %d overflows", op, a, b).
			WithMetadata(errors.OverflowMetadata{Operation: op, Left: a, Right: b})
	}
	return lo, nil
}
