// Package bond keeps per-device LE security state.
package bond

import (
	"fmt"

	"github.com/rigado/keyfob"
)

// Flags describe which parts of a DeviceInfo hold valid data.
type Flags byte

const (
	LTKValid Flags = 0x01 // LTK, Rand and EDIV were distributed to the peer
)

// DeviceInfo is the security and session state of one LE peer.
type DeviceInfo struct {
	Peer              keyfob.PeerIdentity
	EncryptionKeySize byte
	Flags             Flags
	LTK               keyfob.Key
	Rand              keyfob.Rand
	EDIV              uint16
}

// NewDeviceInfo returns an entry with no key material.
func NewDeviceInfo(addr keyfob.Addr, typ keyfob.AddrType) *DeviceInfo {
	return &DeviceInfo{Peer: keyfob.PeerIdentity{Addr: addr, Type: typ}}
}

// HasLTK reports whether the entry carries a distributed long term key.
func (d *DeviceInfo) HasLTK() bool {
	return d.Flags&LTKValid != 0
}

// SetLTK records distributed key material and marks it valid.
func (d *DeviceInfo) SetLTK(ltk keyfob.Key, ediv uint16, rand keyfob.Rand, keySize byte) {
	d.LTK = ltk
	d.EDIV = ediv
	d.Rand = rand
	d.EncryptionKeySize = keySize
	d.Flags |= LTKValid
}

func (d *DeviceInfo) String() string {
	return fmt.Sprintf("%s keySize=%d ltkValid=%v", d.Peer, d.EncryptionKeySize, d.HasLTK())
}
