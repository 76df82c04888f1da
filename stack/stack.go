// Package stack describes the Bluetooth protocol stack the key fob runs on.
//
// The stack is a black box: the application calls into it through the
// interfaces below and receives events through the handlers it registers.
// Handlers run in a context the application does not own. The stack never
// runs two handlers at once, and a handler must never wait for something
// only another handler can deliver. Events are never delivered from inside
// a call into the stack.
package stack

import (
	"time"

	"github.com/rigado/keyfob"
)

// ID identifies an initialized stack instance. Zero is never valid.
type ID uint

// PortID identifies an open SPP server port.
type PortID uint

// SDPHandle identifies a registered SDP record.
type SDPHandle uint32

// InstanceID identifies a GAP service instance.
type InstanceID uint

type PairabilityMode byte

const (
	NonPairableMode PairabilityMode = iota
	PairableMode
	PairableModeEnableSSP
)

type DiscoverabilityMode byte

const (
	NonDiscoverableMode DiscoverabilityMode = iota
	LimitedDiscoverableMode
	GeneralDiscoverableMode
)

func (m DiscoverabilityMode) String() string {
	switch m {
	case NonDiscoverableMode:
		return "non-discoverable"
	case LimitedDiscoverableMode:
		return "limited-discoverable"
	case GeneralDiscoverableMode:
		return "general-discoverable"
	}
	return "unknown"
}

type ConnectabilityMode byte

const (
	NonConnectableMode ConnectabilityMode = iota
	ConnectableMode
)

func (m ConnectabilityMode) String() string {
	if m == ConnectableMode {
		return "connectable"
	}
	return "non-connectable"
}

type EncryptionMode byte

const (
	EncryptionDisabled EncryptionMode = iota
	EncryptionEnabled
)

// IOCapability is the classic and LE input/output capability.
type IOCapability byte

const (
	DisplayOnly IOCapability = iota
	DisplayYesNo
	KeyboardOnly
	NoInputNoOutput
	KeyboardDisplay
)

var ioCapabilityStrings = []string{
	"Display Only",
	"Display Yes/No",
	"Keyboard Only",
	"No Input/Output",
	"Keyboard/Display",
}

func (c IOCapability) String() string {
	if int(c) < len(ioCapabilityStrings) {
		return ioCapabilityStrings[c]
	}
	return "unknown"
}

// SecurityParams are the local IO capability and security flags.
type SecurityParams struct {
	IOCapability   IOCapability
	MITMProtection bool
	OOBDataPresent bool
}

// Appearance values for the GAP service.
const (
	AppearanceGenericComputer uint16 = 0x0080
)

// AdvertisingParams configures LE advertising.
type AdvertisingParams struct {
	ChannelMap        byte
	ScanFilter        bool
	ConnectFilter     bool
	IntervalMin       uint16
	IntervalMax       uint16
	Connectable       bool
	OwnAddressType    keyfob.AddrType
	DirectAddressType keyfob.AddrType
	DirectAddress     keyfob.Addr
}

// DefaultChannelMap enables all three advertising channels.
const DefaultChannelMap byte = 0x07

// PortInformation is the RFCOMM port configuration negotiated with a peer.
type PortInformation struct {
	BaudRate      uint32
	DataFormat    byte
	FlowControl   byte
	XonCharacter  byte
	XoffCharacter byte
	ParameterMask uint16
}

// Controller covers stack lifecycle and controller-level operations.
type Controller interface {
	// Initialize opens the stack and returns its ID.
	Initialize() (ID, error)
	Shutdown()
	// Idle reports whether the stack has no pending work.
	Idle() bool
	LocalAddress() (keyfob.Addr, error)
	// DeleteStoredLinkKey removes link keys kept by the controller. The null
	// address deletes all of them.
	DeleteStoredLinkKey(addr keyfob.Addr) (int, error)
	InquiryResponseTxPower() (int8, error)
}

// GAP covers classic discovery, connection and authentication.
type GAP interface {
	SetSecurityParams(SecurityParams) error
	SetPairabilityMode(PairabilityMode) error
	RegisterRemoteAuthentication(ClassicHandler) error
	AuthenticationResponse(addr keyfob.Addr, info AuthInfo) error
	SetDiscoverabilityMode(mode DiscoverabilityMode, timeout time.Duration) error
	SetConnectabilityMode(ConnectabilityMode) error
	WriteExtendedInquiryInformation(fecRequired bool, data []byte) error
}

// LE covers LE advertising, security and key derivation.
type LE interface {
	SetLESecurityParams(SecurityParams) error
	SetLEPairabilityMode(PairabilityMode) error
	RegisterLERemoteAuthentication(LEHandler) error
	LEAuthenticationResponse(addr keyfob.Addr, info LEAuthInfo) error
	LEDisconnect(addr keyfob.Addr) error
	QueryLEEncryptionMode(addr keyfob.Addr) (EncryptionMode, error)

	SetAdvertisingData(data []byte) error
	StartAdvertising(params AdvertisingParams, h LEHandler) error

	// DiversifyFunction is d1 from the security manager.
	DiversifyFunction(key keyfob.Key, d uint16, r uint16) (keyfob.Key, error)
	// GenerateLTK makes a new LTK with its EDIV and Rand.
	GenerateLTK(dhk, er keyfob.Key) (ltk keyfob.Key, ediv uint16, rand keyfob.Rand, err error)
	// RegenerateLTK rebuilds the LTK identified by ediv and rand.
	RegenerateLTK(dhk, er keyfob.Key, ediv uint16, rand keyfob.Rand) (keyfob.Key, error)
}

// SPP covers the serial port profile server.
type SPP interface {
	OpenServerPort(port uint, h SPPHandler) (PortID, error)
	CloseServerPort(PortID) error
	RegisterSDPRecord(port PortID, serviceName string) (SDPHandle, error)
	UnregisterSDPRecord(port PortID, h SDPHandle) error
	// DataWrite queues data and returns how many bytes were accepted.
	DataWrite(port PortID, data []byte) (int, error)
	RespondPortInformation(port PortID, info PortInformation) error
}

// GATT covers the GATT server and the GAP service.
type GATT interface {
	InitializeGATT(h GATTHandler) error
	CleanupGATT()
	InitializeGAPService() (InstanceID, error)
	CleanupGAPService(InstanceID)
	SetDeviceName(id InstanceID, name string) error
	SetDeviceAppearance(id InstanceID, appearance uint16) error
}

// Stack is the full surface the key fob uses.
type Stack interface {
	Controller
	GAP
	LE
	SPP
	GATT
}

// Handlers receive events in the stack's own context.
type (
	ClassicHandler func(ClassicEvent)
	LEHandler      func(LEEvent)
	GATTHandler    func(GATTEvent)
	SPPHandler     func(SPPEvent)
)
