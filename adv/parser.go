package adv

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Record is one decoded AD structure.
type Record struct {
	Type byte
	Data []byte
}

// Records is a decoded payload.
type Records []Record

var minLength = map[byte]int{
	TypeFlags:         1,
	TypeSomeUUID16:    2,
	TypeAllUUID16:     2,
	TypeShortName:     1,
	TypeCompleteName:  1,
	TypeTxPower:       1,
	TypeServiceData16: 2,
	TypeManufacturer:  2,
}

// Decode splits a payload into its AD structures. A zero length byte ends
// the significant part, so padded EIR data decodes like unpadded data.
func Decode(pdu []byte) (Records, error) {
	if pdu == nil {
		return nil, errors.New("nil pdu")
	}

	var rs Records
	for i := 0; i < len(pdu); {
		length := int(pdu[i])
		if length == 0 {
			break
		}
		if i+length >= len(pdu) {
			return nil, errors.Errorf("buffer overflow: want %v, have %v", i+length+1, len(pdu))
		}

		typ := pdu[i+1]
		data := pdu[i+2 : i+1+length]
		if min, ok := minLength[typ]; ok && len(data) < min {
			return nil, errors.Errorf("adv type %#02x: min length %v, have %v", typ, min, len(data))
		}
		if (typ == TypeAllUUID16 || typ == TypeSomeUUID16) && len(data)%2 != 0 {
			return nil, errors.Errorf("adv type %#02x: incorrect size %v", typ, len(data))
		}

		rs = append(rs, Record{Type: typ, Data: data})
		i += length + 1
	}
	return rs, nil
}

func (rs Records) find(typ byte) ([]byte, bool) {
	for _, r := range rs {
		if r.Type == typ {
			return r.Data, true
		}
	}
	return nil, false
}

// Flags returns the flags, if present.
func (rs Records) Flags() (byte, bool) {
	b, ok := rs.find(TypeFlags)
	if !ok {
		return 0, false
	}
	return b[0], true
}

// LocalName returns the complete or shortened name, and whether it was
// complete.
func (rs Records) LocalName() (string, bool) {
	if b, ok := rs.find(TypeCompleteName); ok {
		return string(b), true
	}
	b, _ := rs.find(TypeShortName)
	return string(b), false
}

// TxPower returns the transmit power, if present.
func (rs Records) TxPower() (int8, bool) {
	b, ok := rs.find(TypeTxPower)
	if !ok {
		return 0, false
	}
	return int8(b[0]), true
}

// UUID16s returns every complete and incomplete 16-bit service UUID.
func (rs Records) UUID16s() []uint16 {
	var u []uint16
	for _, r := range rs {
		if r.Type != TypeAllUUID16 && r.Type != TypeSomeUUID16 {
			continue
		}
		for j := 0; j+1 < len(r.Data); j += 2 {
			u = append(u, binary.LittleEndian.Uint16(r.Data[j:]))
		}
	}
	return u
}
