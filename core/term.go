package core

// SignificanceLimit is the iteration count past which adding further terms
// can no longer move a float64 accumulator (53-bit significand).
const SignificanceLimit uint64 = 1 << 53

// Term returns the i-th term of the Leibniz series for π/4:
// (-1)^i / (2i+1).
func Term(i uint64) float64 {
	denom := float64(i)*2.0 + 1.0
	if i%2 == 1 {
		denom = -denom
	}
	return 1.0 / denom
}
