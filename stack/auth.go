package stack

import (
	"fmt"

	"github.com/rigado/keyfob"
)

// AuthType selects the payload of a classic authentication response.
type AuthType byte

const (
	AuthLinkKey AuthType = iota
	AuthPINCode
	AuthUserConfirmation
	AuthPasskey
	AuthIOCapabilities
)

var authTypeStrings = map[AuthType]string{
	AuthLinkKey:          "link key",
	AuthPINCode:          "pin code",
	AuthUserConfirmation: "user confirmation",
	AuthPasskey:          "passkey",
	AuthIOCapabilities:   "io capabilities",
}

func (t AuthType) String() string {
	if s, ok := authTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("auth type %d", byte(t))
}

// PINCode is a classic PIN, zero padded.
type PINCode [16]byte

// IOCapabilities is exchanged during secure simple pairing.
type IOCapabilities struct {
	IOCapability   IOCapability
	MITMProtection bool
	OOBDataPresent bool
}

func (c IOCapabilities) String() string {
	s := c.IOCapability.String()
	if c.MITMProtection {
		s += ", MITM"
	}
	if c.OOBDataPresent {
		s += ", OOB Data"
	}
	return s
}

// AuthInfo is a classic authentication response. DataLength zero means
// "no data", which makes the stack fall back to its own pairing.
type AuthInfo struct {
	Type           AuthType
	DataLength     byte
	LinkKey        keyfob.Key
	PINCode        PINCode
	Confirmation   bool
	Passkey        uint32
	IOCapabilities IOCapabilities
}

// LEAuthType selects the payload of an LE authentication response.
type LEAuthType byte

const (
	LEAuthLongTermKey LEAuthType = iota
	LEAuthPairingCapabilities
	LEAuthConfirmation
	LEAuthPasskey
	LEAuthEncryptionInformation
)

var leAuthTypeStrings = map[LEAuthType]string{
	LEAuthLongTermKey:           "long term key",
	LEAuthPairingCapabilities:   "pairing capabilities",
	LEAuthConfirmation:          "confirmation",
	LEAuthPasskey:               "passkey",
	LEAuthEncryptionInformation: "encryption information",
}

func (t LEAuthType) String() string {
	if s, ok := leAuthTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("le auth type %d", byte(t))
}

// Payload sizes of LE authentication responses.
const (
	LongTermKeyInformationSize = 17 // key size + LTK
	PairingCapabilitiesSize    = 12
	ConfirmationSize           = 4
	EncryptionInformationSize  = 27 // key size + LTK + EDIV + Rand
	MaximumEncryptionKeySize   = 16
	LinkKeySize                = 16
	UserConfirmationSize       = 1
	IOCapabilitiesSize         = 3
)

type BondingType byte

const (
	NoBonding BondingType = iota
	Bonding
)

// KeyDistribution lists which keys are distributed in one direction.
type KeyDistribution struct {
	EncryptionKey     bool
	IdentificationKey bool
	SigningKey        bool
}

// PairingCapabilities is the LE pairing feature exchange.
type PairingCapabilities struct {
	IOCapability         IOCapability
	OOBPresent           bool
	BondingType          BondingType
	MITM                 bool
	MaxEncryptionKeySize byte
	ReceivingKeys        KeyDistribution
	SendingKeys          KeyDistribution
}

func (c PairingCapabilities) String() string {
	return fmt.Sprintf("io=%s oob=%v bonding=%v mitm=%v maxKey=%d recv=%+v send=%+v",
		c.IOCapability, c.OOBPresent, c.BondingType == Bonding, c.MITM,
		c.MaxEncryptionKeySize, c.ReceivingKeys, c.SendingKeys)
}

// LEAuthInfo is an LE authentication response. DataLength zero is a
// negative reply.
type LEAuthInfo struct {
	Type                LEAuthType
	DataLength          byte
	EncryptionKeySize   byte
	LTK                 keyfob.Key
	EDIV                uint16
	Rand                keyfob.Rand
	PairingCapabilities PairingCapabilities
	Passkey             uint32
}
