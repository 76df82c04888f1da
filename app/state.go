package app

import (
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/stack"
)

// Flags is the application state bitmask.
type Flags byte

const (
	FlagLEConnected     Flags = 0x01
	FlagCBConnected     Flags = 0x02
	FlagSPPBufferFull   Flags = 0x04
	FlagSniffModeActive Flags = 0x08
)

// ConnectionInfo identifies the peer of one transport. The zero value means
// no connection.
type ConnectionInfo struct {
	Index uint
	Addr  keyfob.Addr
}

// State is everything the application tracks between events.
type State struct {
	Flags        Flags
	StackID      stack.ID
	GAPSInstance stack.InstanceID
	SPPPort      stack.PortID
	SDPHandle    stack.SDPHandle
	LE           ConnectionInfo
	CB           ConnectionInfo
}

func (s State) Has(f Flags) bool {
	return s.Flags&f == f
}
