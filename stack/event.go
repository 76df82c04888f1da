package stack

import (
	"github.com/rigado/keyfob"
)

// ClassicEvent is delivered to a ClassicHandler. The concrete types are
// listed below; the set is closed.
type ClassicEvent interface {
	classicEvent()
	Remote() keyfob.Addr
}

// LEEvent is delivered to an LEHandler.
type LEEvent interface {
	leEvent()
	Remote() keyfob.Addr
}

// GATTEvent is delivered to a GATTHandler.
type GATTEvent interface {
	gattEvent()
}

// SPPEvent is delivered to an SPPHandler.
type SPPEvent interface {
	sppEvent()
	Port() PortID
}

// Classic authentication events.
type (
	LinkKeyRequest struct {
		Addr keyfob.Addr
	}

	PINCodeRequest struct {
		Addr keyfob.Addr
	}

	// AuthenticationStatus reports the outcome of authentication; zero is
	// success.
	AuthenticationStatus struct {
		Addr   keyfob.Addr
		Status byte
	}

	LinkKeyCreation struct {
		Addr    keyfob.Addr
		LinkKey keyfob.Key
		KeyType byte
	}

	IOCapabilityRequest struct {
		Addr keyfob.Addr
	}

	IOCapabilityResponse struct {
		Addr           keyfob.Addr
		IOCapabilities IOCapabilities
	}

	UserConfirmationRequest struct {
		Addr         keyfob.Addr
		NumericValue uint32
	}

	PasskeyRequest struct {
		Addr keyfob.Addr
	}

	RemoteNameResult struct {
		Addr keyfob.Addr
		Name string
	}

	EncryptionChange struct {
		Addr   keyfob.Addr
		Status byte
		Mode   EncryptionMode
	}
)

func (LinkKeyRequest) classicEvent()          {}
func (PINCodeRequest) classicEvent()          {}
func (AuthenticationStatus) classicEvent()    {}
func (LinkKeyCreation) classicEvent()         {}
func (IOCapabilityRequest) classicEvent()     {}
func (IOCapabilityResponse) classicEvent()    {}
func (UserConfirmationRequest) classicEvent() {}
func (PasskeyRequest) classicEvent()          {}
func (RemoteNameResult) classicEvent()        {}
func (EncryptionChange) classicEvent()        {}

func (e LinkKeyRequest) Remote() keyfob.Addr          { return e.Addr }
func (e PINCodeRequest) Remote() keyfob.Addr          { return e.Addr }
func (e AuthenticationStatus) Remote() keyfob.Addr    { return e.Addr }
func (e LinkKeyCreation) Remote() keyfob.Addr         { return e.Addr }
func (e IOCapabilityRequest) Remote() keyfob.Addr     { return e.Addr }
func (e IOCapabilityResponse) Remote() keyfob.Addr    { return e.Addr }
func (e UserConfirmationRequest) Remote() keyfob.Addr { return e.Addr }
func (e PasskeyRequest) Remote() keyfob.Addr          { return e.Addr }
func (e RemoteNameResult) Remote() keyfob.Addr        { return e.Addr }
func (e EncryptionChange) Remote() keyfob.Addr        { return e.Addr }

// ConfirmationType is the kind of LE confirmation the stack asks for.
type ConfirmationType byte

const (
	ConfirmationNone ConfirmationType = iota // Just Works
	ConfirmationPasskey
	ConfirmationDisplay
)

// LE events.
type (
	LEConnectionComplete struct {
		Addr     keyfob.Addr
		PeerType keyfob.AddrType
		Status   byte
		Master   bool
	}

	LEDisconnectionComplete struct {
		Addr   keyfob.Addr
		Status byte
		Reason byte
	}

	LEEncryptionChange struct {
		Addr   keyfob.Addr
		Status byte
		Mode   EncryptionMode
	}

	LEEncryptionRefreshComplete struct {
		Addr   keyfob.Addr
		Status byte
	}

	LongTermKeyRequest struct {
		Addr keyfob.Addr
		EDIV uint16
		Rand keyfob.Rand
	}

	PairingRequest struct {
		Addr         keyfob.Addr
		Capabilities PairingCapabilities
	}

	ConfirmationRequest struct {
		Addr           keyfob.Addr
		Type           ConfirmationType
		DisplayPasskey uint32
	}

	SecurityEstablishmentComplete struct {
		Addr   keyfob.Addr
		Status byte
	}

	// PairingStatus reports the outcome of LE pairing; zero is success.
	PairingStatus struct {
		Addr                        keyfob.Addr
		Status                      byte
		NegotiatedEncryptionKeySize byte
	}

	EncryptionInformationRequest struct {
		Addr              keyfob.Addr
		EncryptionKeySize byte
	}

	EncryptionInformation struct {
		Addr              keyfob.Addr
		EncryptionKeySize byte
		LTK               keyfob.Key
		EDIV              uint16
		Rand              keyfob.Rand
	}
)

func (LEConnectionComplete) leEvent()          {}
func (LEDisconnectionComplete) leEvent()       {}
func (LEEncryptionChange) leEvent()            {}
func (LEEncryptionRefreshComplete) leEvent()   {}
func (LongTermKeyRequest) leEvent()            {}
func (PairingRequest) leEvent()                {}
func (ConfirmationRequest) leEvent()           {}
func (SecurityEstablishmentComplete) leEvent() {}
func (PairingStatus) leEvent()                 {}
func (EncryptionInformationRequest) leEvent()  {}
func (EncryptionInformation) leEvent()         {}

func (e LEConnectionComplete) Remote() keyfob.Addr          { return e.Addr }
func (e LEDisconnectionComplete) Remote() keyfob.Addr       { return e.Addr }
func (e LEEncryptionChange) Remote() keyfob.Addr            { return e.Addr }
func (e LEEncryptionRefreshComplete) Remote() keyfob.Addr   { return e.Addr }
func (e LongTermKeyRequest) Remote() keyfob.Addr            { return e.Addr }
func (e PairingRequest) Remote() keyfob.Addr                { return e.Addr }
func (e ConfirmationRequest) Remote() keyfob.Addr           { return e.Addr }
func (e SecurityEstablishmentComplete) Remote() keyfob.Addr { return e.Addr }
func (e PairingStatus) Remote() keyfob.Addr                 { return e.Addr }
func (e EncryptionInformationRequest) Remote() keyfob.Addr  { return e.Addr }
func (e EncryptionInformation) Remote() keyfob.Addr         { return e.Addr }

// ConnectionType is the transport a GATT connection runs over.
type ConnectionType byte

const (
	ConnectionLE ConnectionType = iota
	ConnectionBREDR
)

func (t ConnectionType) String() string {
	if t == ConnectionLE {
		return "LE"
	}
	return "BR/EDR"
}

// GATT connection events.
type (
	GATTDeviceConnection struct {
		ConnectionID uint
		Type         ConnectionType
		Remote       keyfob.Addr
		MTU          uint16
	}

	GATTDeviceDisconnection struct {
		ConnectionID uint
		Type         ConnectionType
		Remote       keyfob.Addr
	}
)

func (GATTDeviceConnection) gattEvent()    {}
func (GATTDeviceDisconnection) gattEvent() {}

// SPP events.
type (
	SPPOpenIndication struct {
		PortID PortID
		Addr   keyfob.Addr
	}

	SPPCloseIndication struct {
		PortID PortID
	}

	SPPStatusIndication struct {
		PortID       PortID
		PortStatus   uint16
		BreakStatus  uint16
		BreakTimeout uint16
	}

	SPPDataIndication struct {
		PortID     PortID
		DataLength int
	}

	SPPSendPortInformationIndication struct {
		PortID PortID
		Info   PortInformation
	}

	SPPTransmitBufferEmpty struct {
		PortID PortID
	}
)

func (SPPOpenIndication) sppEvent()                {}
func (SPPCloseIndication) sppEvent()               {}
func (SPPStatusIndication) sppEvent()              {}
func (SPPDataIndication) sppEvent()                {}
func (SPPSendPortInformationIndication) sppEvent() {}
func (SPPTransmitBufferEmpty) sppEvent()           {}

func (e SPPOpenIndication) Port() PortID                { return e.PortID }
func (e SPPCloseIndication) Port() PortID               { return e.PortID }
func (e SPPStatusIndication) Port() PortID              { return e.PortID }
func (e SPPDataIndication) Port() PortID                { return e.PortID }
func (e SPPSendPortInformationIndication) Port() PortID { return e.PortID }
func (e SPPTransmitBufferEmpty) Port() PortID           { return e.PortID }
