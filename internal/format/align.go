package format

// AlignUp returns n rounded up to the next multiple of align.
// align must be a power of two; an align of 0 or 1 leaves n unchanged.
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 8)  = 16
//	AlignUp(9, 1)  = 9
func AlignUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	mask := align - 1
	return (n + mask) &^ mask
}

// IsPowerOfTwo reports whether n is a power of two.
func IsPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}
