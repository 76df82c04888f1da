package app

import (
	"github.com/rigado/keyfob/mailbox"
	"github.com/rigado/keyfob/stack"
)

// The handlers below run in stack context. They only record what happened
// and post a message; the loop does the rest.

func (a *Application) onClassicEvent(ev stack.ClassicEvent) {
	if ev == nil {
		return
	}
	a.apply(a.resp.HandleClassic(ev))
}

func (a *Application) onLEEvent(ev stack.LEEvent) {
	if ev == nil {
		return
	}
	a.apply(a.resp.HandleLE(ev))

	if _, ok := ev.(stack.LEDisconnectionComplete); ok {
		a.post(mailbox.LEDisconnected)
	}
}

func (a *Application) onGATTEvent(ev stack.GATTEvent) {
	switch e := ev.(type) {
	case stack.GATTDeviceConnection:
		a.logger.Infof("gatt connection %s (%s), id %d, mtu %d", e.Remote, e.Type, e.ConnectionID, e.MTU)
		a.mu.Lock()
		a.state.LE = ConnectionInfo{Index: e.ConnectionID, Addr: e.Remote}
		a.mu.Unlock()
		a.post(mailbox.LEConnected)

	case stack.GATTDeviceDisconnection:
		a.logger.Infof("gatt disconnection %s (%s), id %d", e.Remote, e.Type, e.ConnectionID)

	default:
		a.logger.Warnf("unhandled gatt event %T", ev)
	}
}

func (a *Application) onSPPEvent(ev stack.SPPEvent) {
	switch e := ev.(type) {
	case stack.SPPOpenIndication:
		a.logger.Infof("spp open, port %d: %s", e.PortID, e.Addr)
		a.mu.Lock()
		a.state.CB = ConnectionInfo{Index: uint(e.PortID), Addr: e.Addr}
		a.mu.Unlock()
		a.post(mailbox.CBConnected)

	case stack.SPPCloseIndication:
		a.logger.Infof("spp close, port %d", e.PortID)
		a.post(mailbox.CBDisconnected)

	case stack.SPPStatusIndication:
		a.logger.Debugf("spp status, port %d: status 0x%04x break 0x%04x timeout %d",
			e.PortID, e.PortStatus, e.BreakStatus, e.BreakTimeout)

	case stack.SPPDataIndication:
		a.logger.Debugf("spp data, port %d: %d bytes", e.PortID, e.DataLength)

	case stack.SPPSendPortInformationIndication:
		a.logger.Debugf("spp port information, port %d: baud %d", e.PortID, e.Info.BaudRate)
		if err := a.st.RespondPortInformation(e.PortID, e.Info); err != nil {
			a.logger.Errorf("RespondPortInformation: %v", err)
		}

	case stack.SPPTransmitBufferEmpty:
		a.logger.Debugf("spp transmit buffer empty, port %d", e.PortID)
		a.mu.Lock()
		a.state.Flags &^= FlagSPPBufferFull
		a.mu.Unlock()
		a.post(mailbox.SPPBufferEmpty)

	default:
		a.logger.Warnf("unhandled spp event %T", ev)
	}
}
