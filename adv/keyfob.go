package adv

// 16-bit service UUIDs the key fob announces.
const (
	UUIDSDPServer     uint16 = 0x1000
	UUIDSerialPort    uint16 = 0x1101
	UUIDKeyFobService uint16 = 0xffe0
	UUIDAccelService  uint16 = 0xffa0
)

// AdvertisingData returns the LE advertising payload. supportBR clears the
// BR/EDR-not-supported flag so dual mode centrals may connect over classic.
func AdvertisingData(name string, supportBR bool) ([]byte, error) {
	f := FlagGeneralDiscoverable
	if !supportBR {
		f |= FlagBREDRNotSupported
	}

	p, err := NewPacket(MaxAdvPacketLength,
		Flags(f),
		AllUUID16(UUIDKeyFobService, UUIDAccelService),
		LocalName(name),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

// EIRData returns the extended inquiry response, zero padded to its full
// size.
func EIRData(name string, txPower int8) ([]byte, error) {
	p, err := NewPacket(MaxEIRPacketLength,
		TxPower(txPower),
		AllUUID16(UUIDSDPServer, UUIDSerialPort, UUIDKeyFobService, UUIDAccelService),
		LocalName(name),
	)
	if err != nil {
		return nil, err
	}
	return p.Padded(), nil
}
