package keyfob

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Addr is a 48-bit Bluetooth device address, most significant byte first.
type Addr [6]byte

// NullAddr is the all-zero address. Stores treat it as a wildcard.
var NullAddr Addr

// ParseAddr parses an address in the AA:BB:CC:DD:EE:FF form. Dashes and
// bare hex are accepted too.
func ParseAddr(s string) (Addr, error) {
	var a Addr

	hexStr := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return a, errors.Wrapf(err, "invalid address %q", s)
	}
	if len(b) != len(a) {
		return a, errors.Errorf("invalid address %q: want 6 bytes, got %d", s, len(b))
	}

	copy(a[:], b)
	return a, nil
}

// MustParseAddr is like ParseAddr but panics on error.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

func (a Addr) Bytes() []byte {
	return a[:]
}

// IsNull reports whether a is the all-zero address.
func (a Addr) IsNull() bool {
	return a == NullAddr
}

// Uint64 packs the address into the low 48 bits, for use as a map key.
func (a Addr) Uint64() uint64 {
	var v uint64
	for _, b := range a {
		v = v<<8 | uint64(b)
	}
	return v
}

func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Addr) UnmarshalText(b []byte) error {
	v, err := ParseAddr(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// AddrType tags an LE address as public or random.
type AddrType byte

const (
	AddrPublic AddrType = 0x00
	AddrRandom AddrType = 0x01
)

func (t AddrType) String() string {
	switch t {
	case AddrPublic:
		return "public"
	case AddrRandom:
		return "random"
	}
	return fmt.Sprintf("unknown(%d)", byte(t))
}

// PeerIdentity is the immutable identity of a remote device within a session.
type PeerIdentity struct {
	Addr Addr
	Type AddrType
}

func (p PeerIdentity) String() string {
	return fmt.Sprintf("%s (%s)", p.Addr, p.Type)
}

// Key is a 128-bit key: a classic link key, an LE long term key or a root key.
type Key [16]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether every byte of k is zero.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Rand is the 64-bit random value that identifies a distributed LTK.
type Rand [8]byte

func (r Rand) String() string {
	return hex.EncodeToString(r[:])
}
