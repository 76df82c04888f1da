// Package security answers the pairing and authentication requests of
// classic and LE peers. Every answer is returned as a list of stack calls
// for the caller to apply.
package security

import (
	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
)

// Root keys. Every key handed to a peer is derived from these.
var (
	DefaultER = keyfob.Key{0x28, 0xBA, 0xE1, 0x35, 0x13, 0xB2, 0x20, 0x45, 0x16, 0xB2, 0x19, 0xD0, 0x80, 0xEE, 0x4A, 0x51}
	DefaultIR = keyfob.Key{0x41, 0x09, 0xA2, 0x88, 0x09, 0x6B, 0x70, 0xC0, 0x95, 0x23, 0x3C, 0x8C, 0x48, 0xFC, 0xC9, 0xFE}
)

// Diversifier is the d1 function of the stack.
type Diversifier interface {
	DiversifyFunction(key keyfob.Key, d uint16, r uint16) (keyfob.Key, error)
}

// Keys holds the encryption root, identity root and the keys derived from
// the identity root at open.
type Keys struct {
	ER  keyfob.Key
	IR  keyfob.Key
	IRK keyfob.Key
	DHK keyfob.Key
}

// DefaultKeys returns the fixed root keys with nothing derived yet.
func DefaultKeys() *Keys {
	return &Keys{ER: DefaultER, IR: DefaultIR}
}

// Derive computes IRK = d1(IR, 1, 0) and DHK = d1(IR, 3, 0).
func (k *Keys) Derive(d Diversifier) error {
	irk, err := d.DiversifyFunction(k.IR, 1, 0)
	if err != nil {
		return errors.Wrap(err, "derive IRK")
	}
	dhk, err := d.DiversifyFunction(k.IR, 3, 0)
	if err != nil {
		return errors.Wrap(err, "derive DHK")
	}

	k.IRK, k.DHK = irk, dhk
	return nil
}
