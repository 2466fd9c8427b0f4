package memutils

import (
	"math/bits"

	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~uint64
}

func CheckPow2[T Number](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// Log2 returns the base-2 logarithm of a power of two. The result is meaningless for other values,
// so callers should check them with CheckPow2 first.
func Log2[T Number](number T) uint {
	return uint(bits.TrailingZeros64(uint64(number)))
}
