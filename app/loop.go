package app

import (
	"context"
	"time"

	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/hal"
	"github.com/rigado/keyfob/mailbox"
	"github.com/rigado/keyfob/stack"
)

// Run steps the loop until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		a.Step()
	}
}

// Step runs the due scheduler tasks, then handles one message or, if none
// arrives within the configured wait, runs the idle hook. It reports
// whether a message was handled.
func (a *Application) Step() bool {
	a.sched.Process()

	m, ok := a.next(a.cfg.MailboxWait)
	if !ok {
		a.idle()
		return false
	}
	a.dispatch(m)
	return true
}

// Drain handles every queued message without idling and returns how many
// were handled.
func (a *Application) Drain() int {
	n := 0
	for {
		m, ok := a.next(0)
		if !ok {
			return n
		}
		a.dispatch(m)
		n++
	}
}

func (a *Application) next(wait time.Duration) (mailbox.Message, bool) {
	a.mu.Lock()
	mb := a.mbox
	a.mu.Unlock()

	if mb == nil {
		return 0, false
	}
	return mb.Wait(wait)
}

func (a *Application) dispatch(m mailbox.Message) {
	h, ok := a.handlers[m]
	if !ok {
		a.logger.Warnf("unhandled message 0x%02x", byte(m))
		return
	}
	a.logger.Debugf("message: %s", m)
	h()
}

// idle drops the board into the deepest low power mode the stack allows.
func (a *Application) idle() {
	switch {
	case a.st.Idle() && a.board.HCILLSleeping() && a.board.PowerLockCount() == 0:
		a.board.EnterLowPower(hal.LPM3)
	case !a.board.RxBytesReady():
		a.board.EnterLowPower(hal.LPM0)
	}
}

func (a *Application) onSPPBufferEmpty() {
	a.ProcessSendSPPData(false)
}

func (a *Application) onLEConnected() {
	a.mu.Lock()
	a.state.Flags |= FlagLEConnected
	a.mu.Unlock()

	a.board.SetLED(hal.LED1, true)
}

func (a *Application) onLEDisconnected() {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.st.StartAdvertising(stack.AdvertisingParams{
		ChannelMap:     stack.DefaultChannelMap,
		IntervalMin:    a.cfg.AdvIntervalMin,
		IntervalMax:    a.cfg.AdvIntervalMax,
		Connectable:    true,
		OwnAddressType: keyfob.AddrPublic,
	}, a.onLEEvent)
	if err != nil {
		a.logger.Errorf("StartAdvertising: %v", err)
	} else {
		a.logger.Infof("advertising")
	}

	a.state.LE = ConnectionInfo{}
	a.state.Flags &^= FlagLEConnected
	a.board.SetLED(hal.LED1, false)
}

func (a *Application) onCBConnected() {
	a.mu.Lock()
	a.setAdvertisingData(false)
	if err := a.st.SetDiscoverabilityMode(stack.NonDiscoverableMode, 0); err != nil {
		a.logger.Errorf("SetDiscoverabilityMode: %v", err)
	}
	if err := a.st.SetConnectabilityMode(stack.NonConnectableMode); err != nil {
		a.logger.Errorf("SetConnectabilityMode: %v", err)
	}
	a.state.Flags |= FlagCBConnected
	a.mu.Unlock()

	a.board.SetLED(hal.LED0, true)
	a.ProcessSendSPPData(true)
}

func (a *Application) onCBDisconnected() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.setAdvertisingData(true)
	if err := a.st.SetDiscoverabilityMode(stack.GeneralDiscoverableMode, 0); err != nil {
		a.logger.Errorf("SetDiscoverabilityMode: %v", err)
	}
	if err := a.st.SetConnectabilityMode(stack.ConnectableMode); err != nil {
		a.logger.Errorf("SetConnectabilityMode: %v", err)
	}

	a.state.CB = ConnectionInfo{}
	a.state.Flags &^= FlagCBConnected | FlagSPPBufferFull
	a.buf.Reset()
	a.board.SetLED(hal.LED0, false)
}

// ProcessSendSPPData pushes buffered records to the classic link. With
// packetize set the current sample is appended first. Nothing happens while
// the link is down or the stack's transmit buffer is full.
func (a *Application) ProcessSendSPPData(packetize bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Flags&(FlagCBConnected|FlagSPPBufferFull) != FlagCBConnected {
		return
	}

	if packetize {
		if a.buf.Append(a.format, a.latch.Sample()) == 0 {
			a.logger.Warnf("spp buffer full, sample dropped")
		}
	}

	n, partial, err := a.buf.Flush(portWriter{st: a.st, port: a.state.SPPPort})
	if err != nil {
		a.logger.Errorf("DataWrite: %v", err)
		return
	}
	if partial {
		a.logger.Debugf("spp wrote %d bytes, %d left", n, a.buf.Len())
		a.state.Flags |= FlagSPPBufferFull
	}
}
