package sim

import (
	"crypto/aes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/sliceops"
)

// Legacy pairing key derivation. Keys are held least significant byte first
// and swapped around the AES block cipher.

// e is the security function e(key, plaintext), MSB first on both sides.
func e(key, plain []byte) ([]byte, error) {
	if len(key) != 16 || len(plain) != 16 {
		return nil, errors.New("length error")
	}

	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 16)
	c.Encrypt(out, plain)
	return out, nil
}

// d1 is the diversifying function d1(k, d, r).
func d1(k keyfob.Key, d, r uint16) (keyfob.Key, error) {
	plain := make([]byte, 16)
	binary.BigEndian.PutUint16(plain[12:], r)
	binary.BigEndian.PutUint16(plain[14:], d)

	out, err := e(sliceops.SwapBuf(k[:]), plain)
	if err != nil {
		return keyfob.Key{}, err
	}

	var res keyfob.Key
	copy(res[:], sliceops.SwapBuf(out))
	return res, nil
}

// dm is the mask generation function dm(k, r).
func dm(k keyfob.Key, r keyfob.Rand) (uint16, error) {
	plain := make([]byte, 16)
	copy(plain[8:], sliceops.SwapBuf(r[:]))

	out, err := e(sliceops.SwapBuf(k[:]), plain)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(out[14:]), nil
}

// generateLTK draws a fresh DIV and Rand and derives LTK and EDIV from them.
func generateLTK(src io.Reader, dhk, er keyfob.Key) (keyfob.Key, uint16, keyfob.Rand, error) {
	var rnd keyfob.Rand
	div := make([]byte, 2)

	if _, err := io.ReadFull(src, div); err != nil {
		return keyfob.Key{}, 0, rnd, err
	}
	if _, err := io.ReadFull(src, rnd[:]); err != nil {
		return keyfob.Key{}, 0, rnd, err
	}

	d := binary.LittleEndian.Uint16(div)
	ltk, err := d1(er, d, 0)
	if err != nil {
		return keyfob.Key{}, 0, rnd, err
	}

	y, err := dm(dhk, rnd)
	if err != nil {
		return keyfob.Key{}, 0, rnd, err
	}

	return ltk, y ^ d, rnd, nil
}

// regenerateLTK recovers DIV from EDIV and Rand and rebuilds the LTK.
func regenerateLTK(dhk, er keyfob.Key, ediv uint16, rnd keyfob.Rand) (keyfob.Key, error) {
	y, err := dm(dhk, rnd)
	if err != nil {
		return keyfob.Key{}, err
	}

	return d1(er, y^ediv, 0)
}
