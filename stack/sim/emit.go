package sim

import (
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/stack"
)

// Events are delivered with evMu held so that handlers never overlap. s.mu
// is released before a handler runs, so handlers may call back into the
// stack.

// EmitClassic delivers e to the registered classic authentication handler.
func (s *Stack) EmitClassic(e stack.ClassicEvent) error {
	s.mu.Lock()
	h := s.classicH
	s.mu.Unlock()

	if h == nil {
		return ErrNoHandler
	}

	s.evMu.Lock()
	defer s.evMu.Unlock()
	h(e)
	return nil
}

// EmitLE delivers e to the LE authentication handler, or to the advertising
// handler when no authentication handler is registered.
func (s *Stack) EmitLE(e stack.LEEvent) error {
	s.mu.Lock()
	h := s.leAuthH
	if h == nil {
		h = s.advH
	}
	s.mu.Unlock()

	if h == nil {
		return ErrNoHandler
	}

	s.evMu.Lock()
	defer s.evMu.Unlock()
	h(e)
	return nil
}

// EmitGATT delivers e to the GATT handler.
func (s *Stack) EmitGATT(e stack.GATTEvent) error {
	s.mu.Lock()
	h := s.gattH
	s.mu.Unlock()

	if h == nil {
		return ErrNoHandler
	}

	s.evMu.Lock()
	defer s.evMu.Unlock()
	h(e)
	return nil
}

// EmitSPP delivers e to the handler of the port it names.
func (s *Stack) EmitSPP(e stack.SPPEvent) error {
	s.mu.Lock()
	h := s.sppH[e.Port()]
	s.mu.Unlock()

	if h == nil {
		return ErrNoHandler
	}

	s.evMu.Lock()
	defer s.evMu.Unlock()
	h(e)
	return nil
}

// ConnectLE plays the events of an LE peer connecting: the link comes up,
// then GATT reports the connection.
func (s *Stack) ConnectLE(addr keyfob.Addr, typ keyfob.AddrType, connID uint) error {
	if err := s.EmitLE(stack.LEConnectionComplete{Addr: addr, PeerType: typ}); err != nil {
		return err
	}
	return s.EmitGATT(stack.GATTDeviceConnection{
		ConnectionID: connID,
		Type:         stack.ConnectionLE,
		Remote:       addr,
		MTU:          23,
	})
}

// DisconnectLE plays an LE link going down.
func (s *Stack) DisconnectLE(addr keyfob.Addr) error {
	return s.EmitLE(stack.LEDisconnectionComplete{Addr: addr, Reason: 0x13})
}

// ConnectSPP opens the SPP server port listening on port for addr.
func (s *Stack) ConnectSPP(port uint, addr keyfob.Addr) error {
	id, ok := s.PortID(port)
	if !ok {
		return ErrNoHandler
	}
	return s.EmitSPP(stack.SPPOpenIndication{PortID: id, Addr: addr})
}

// DisconnectSPP closes the SPP link on port.
func (s *Stack) DisconnectSPP(port uint) error {
	id, ok := s.PortID(port)
	if !ok {
		return ErrNoHandler
	}
	return s.EmitSPP(stack.SPPCloseIndication{PortID: id})
}

// DrainSPP reports that the transmit buffer of port has emptied.
func (s *Stack) DrainSPP(port uint) error {
	id, ok := s.PortID(port)
	if !ok {
		return ErrNoHandler
	}
	return s.EmitSPP(stack.SPPTransmitBufferEmpty{PortID: id})
}

// PortID returns the handle of the open server port listening on port.
func (s *Stack) PortID(port uint) (stack.PortID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.ports {
		if p == port {
			return id, true
		}
	}
	return 0, false
}
