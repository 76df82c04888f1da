// Package adv builds the LE advertising data and the classic extended
// inquiry response the key fob puts on the air.
package adv

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Maximum payload sizes.
const (
	MaxAdvPacketLength = 31
	MaxEIRPacketLength = 240
)

// AD types, from the GAP assigned numbers.
const (
	TypeFlags         byte = 0x01
	TypeSomeUUID16    byte = 0x02
	TypeAllUUID16     byte = 0x03
	TypeShortName     byte = 0x08
	TypeCompleteName  byte = 0x09
	TypeTxPower       byte = 0x0a
	TypeServiceData16 byte = 0x16
	TypeManufacturer  byte = 0xff
)

// Flags bits.
const (
	FlagLimitedDiscoverable byte = 0x01
	FlagGeneralDiscoverable byte = 0x02
	FlagBREDRNotSupported   byte = 0x04
)

var (
	ErrNotFit  = errors.New("field doesn't fit")
	ErrInvalid = errors.New("invalid field")
)

// Packet is an advertising data or EIR payload under construction.
type Packet struct {
	b   []byte
	max int
}

// NewPacket returns a packet limited to max bytes with fields appended in
// order.
func NewPacket(max int, fields ...Field) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, max), max: max}
	for _, f := range fields {
		if err := f(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Bytes returns the bytes of the packet.
func (p *Packet) Bytes() []byte {
	return p.b
}

// Len returns the length of the packet.
func (p *Packet) Len() int {
	return len(p.b)
}

// Free returns the bytes left before the packet is full.
func (p *Packet) Free() int {
	return p.max - len(p.b)
}

// Field is an AD structure which can be appended to a packet.
type Field func(p *Packet) error

// Append appends a field to the packet. It returns ErrNotFit if the field
// doesn't fit into the packet, and leaves the packet intact.
func (p *Packet) Append(f Field) error {
	return f(p)
}

func (p *Packet) append(typ byte, b []byte) error {
	if p.Len()+1+1+len(b) > p.max {
		return ErrNotFit
	}
	p.b = append(p.b, byte(len(b)+1), typ)
	p.b = append(p.b, b...)
	return nil
}

// Padded returns the packet zero-filled to its maximum length.
func (p *Packet) Padded() []byte {
	out := make([]byte, p.max)
	copy(out, p.b)
	return out
}

// Raw appends the bytes to the current packet.
func Raw(b []byte) Field {
	return func(p *Packet) error {
		if p.Len()+len(b) > p.max {
			return ErrNotFit
		}
		p.b = append(p.b, b...)
		return nil
	}
}

// Flags is a flags field.
func Flags(f byte) Field {
	return func(p *Packet) error {
		return p.append(TypeFlags, []byte{f})
	}
}

// AllUUID16 is the complete list of 16-bit service UUIDs, little endian on
// the air.
func AllUUID16(uuids ...uint16) Field {
	return func(p *Packet) error {
		if len(uuids) == 0 {
			return ErrInvalid
		}
		b := make([]byte, 2*len(uuids))
		for i, u := range uuids {
			binary.LittleEndian.PutUint16(b[2*i:], u)
		}
		return p.append(TypeAllUUID16, b)
	}
}

// TxPower is the transmit power level.
func TxPower(dBm int8) Field {
	return func(p *Packet) error {
		return p.append(TypeTxPower, []byte{byte(dBm)})
	}
}

// ShortName is a shortened local name.
func ShortName(n string) Field {
	return func(p *Packet) error {
		return p.append(TypeShortName, []byte(n))
	}
}

// CompleteName is a complete local name.
func CompleteName(n string) Field {
	return func(p *Packet) error {
		return p.append(TypeCompleteName, []byte(n))
	}
}

// LocalName is the complete name when it fits in what is left of the
// packet, and otherwise the name cut to the free space as a short name.
func LocalName(n string) Field {
	return func(p *Packet) error {
		free := p.Free() - 2
		if free <= 0 {
			return ErrNotFit
		}
		if len(n) <= free {
			return CompleteName(n)(p)
		}
		return ShortName(n[:free])(p)
	}
}

// ManufacturerData is manufacturer specific data.
func ManufacturerData(id uint16, b []byte) Field {
	return func(p *Packet) error {
		d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
		return p.append(TypeManufacturer, d)
	}
}
