// Package sliceops has small byte slice helpers shared by the key fob packages.
package sliceops

// SwapBuf returns a reversed copy of in. Keys travel least significant byte
// first on the wire and most significant byte first into AES.
func SwapBuf(in []byte) []byte {
	a := make([]byte, 0, len(in))
	a = append(a, in...)
	for i := len(a)/2 - 1; i >= 0; i-- {
		opp := len(a) - 1 - i
		a[i], a[opp] = a[opp], a[i]
	}

	return a
}

// ShiftLeft drops the first n bytes of buf[:length] by moving the rest to
// the front, and returns the new length. Bytes past the new length are
// left as they were.
func ShiftLeft(buf []byte, length, n int) int {
	if n <= 0 {
		return length
	}
	if n >= length {
		return 0
	}

	copy(buf, buf[n:length])
	return length - n
}

