package app

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/adv"
	"github.com/rigado/keyfob/mailbox"
	"github.com/rigado/keyfob/security"
	"github.com/rigado/keyfob/stack"
)

// Initialize opens the stack, makes the device pairable and queues the
// disconnected messages that start classic discovery and LE advertising.
// It returns the stack ID.
func (a *Application) Initialize() (stack.ID, error) {
	if a.st == nil || a.board == nil {
		return 0, keyfob.NewError("initialize", keyfob.CodeAppInvalidParameters, nil)
	}

	if err := a.OpenStack(); err != nil {
		return 0, keyfob.NewError("initialize", keyfob.CodeAppUnableToOpenStack, err)
	}

	if err := a.SetPairable(); err != nil {
		a.logger.Errorf("set pairable: %v", err)
		a.CloseStack()
		return 0, keyfob.Wrap(err, "initialize")
	}

	mb, err := mailbox.New(a.cfg.MailboxDepth)
	if err != nil {
		a.logger.Errorf("create mailbox: %v", err)
		a.CloseStack()
		return 0, keyfob.NewError("initialize", keyfob.CodeUnableToInitializeStack, err)
	}

	a.mu.Lock()
	a.mbox = mb
	id := a.state.StackID
	a.mu.Unlock()

	a.post(mailbox.CBDisconnected)
	a.post(mailbox.LEDisconnected)

	return id, nil
}

// OpenStack brings up the stack and every service the key fob offers. Any
// failure after the stack itself is up closes it again.
func (a *Application) OpenStack() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.st == nil {
		return keyfob.NewError("open stack", keyfob.CodeAppInvalidParameters, nil)
	}

	a.state = State{}
	a.buf.Reset()

	id, err := a.st.Initialize()
	if err != nil {
		a.logger.Errorf("Initialize: %v", err)
		return keyfob.NewError("open stack", keyfob.CodeUnableToInitializeStack, err)
	}
	a.state.StackID = id
	a.logger.Infof("stack initialized, id %d", id)

	if err := a.st.SetLESecurityParams(security.LocalCapabilities); err != nil {
		a.logger.Errorf("SetLESecurityParams: %v", err)
	}
	if err := a.st.SetSecurityParams(security.LocalCapabilities); err != nil {
		a.logger.Errorf("SetSecurityParams: %v", err)
	}

	if addr, err := a.st.LocalAddress(); err != nil {
		a.logger.Errorf("LocalAddress: %v", err)
	} else {
		a.logger.Infof("local address: %s", addr)
	}

	a.links.Delete(keyfob.NullAddr)
	if _, err := a.st.DeleteStoredLinkKey(keyfob.NullAddr); err != nil {
		a.logger.Errorf("DeleteStoredLinkKey: %v", err)
	}

	if err := a.keys.Derive(a.st); err != nil {
		a.logger.Errorf("derive keys: %v", err)
	}

	a.devices.Clear()
	a.loadBonds()

	if err := a.openSPP(); err != nil {
		a.closeStack()
		return keyfob.NewError("open stack", keyfob.CodeUnableToInitializeStack, err)
	}

	if err := a.openGATT(); err != nil {
		a.closeStack()
		return keyfob.NewError("open stack", keyfob.CodeUnableToInitializeStack, err)
	}

	a.writeEIR()
	a.setAdvertisingData(true)

	return nil
}

// CloseStack tears down whatever OpenStack brought up.
func (a *Application) CloseStack() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.st == nil || a.state.StackID == 0 {
		return keyfob.NewError("close stack", keyfob.CodeUnableToInitializeStack, nil)
	}
	a.closeStack()
	return nil
}

func (a *Application) closeStack() {
	if a.state.GAPSInstance != 0 {
		a.st.CleanupGAPService(a.state.GAPSInstance)
	}

	if a.state.SPPPort != 0 {
		if a.state.SDPHandle != 0 {
			if err := a.st.UnregisterSDPRecord(a.state.SPPPort, a.state.SDPHandle); err != nil {
				a.logger.Errorf("UnregisterSDPRecord: %v", err)
			}
		}
		if err := a.st.CloseServerPort(a.state.SPPPort); err != nil {
			a.logger.Errorf("CloseServerPort: %v", err)
		}
	}

	a.st.CleanupGATT()
	a.st.Shutdown()

	a.devices.Clear()
	a.buf.Reset()
	a.state = State{}
	a.mbox = nil
	a.logger.Infof("stack shut down")
}

// SetPairable makes both transports pairable and registers the
// authentication callbacks.
func (a *Application) SetPairable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.st == nil || a.state.StackID == 0 {
		return keyfob.NewError("set pairable", keyfob.CodeInvalidStackID, nil)
	}

	if err := a.st.SetPairabilityMode(stack.PairableMode); err != nil {
		return keyfob.NewError("SetPairabilityMode", keyfob.CodeFunctionError, err)
	}
	if err := a.st.RegisterRemoteAuthentication(a.onClassicEvent); err != nil {
		return keyfob.NewError("RegisterRemoteAuthentication", keyfob.CodeFunctionError, err)
	}
	if err := a.st.SetLEPairabilityMode(stack.PairableMode); err != nil {
		return keyfob.NewError("SetLEPairabilityMode", keyfob.CodeFunctionError, err)
	}
	if err := a.st.RegisterLERemoteAuthentication(a.onLEEvent); err != nil {
		return keyfob.NewError("RegisterLERemoteAuthentication", keyfob.CodeFunctionError, err)
	}

	a.logger.Debugf("pairable")
	return nil
}

// loadBonds fills the registry from the bond file, if there is one.
func (a *Application) loadBonds() {
	if a.bonds == nil {
		return
	}

	all, err := a.bonds.All()
	if err != nil {
		a.logger.Warnf("load bonds: %v", err)
		return
	}
	for _, d := range all {
		if !a.devices.Put(d) {
			a.logger.Warnf("no room for bonded device %s", d.Peer.Addr)
		}
	}
	a.logger.Infof("loaded %d bonds", len(all))
}

func (a *Application) openSPP() error {
	port, err := a.st.OpenServerPort(a.cfg.SPPPort, a.onSPPEvent)
	if err != nil {
		a.logger.Errorf("OpenServerPort: %v", err)
		return errors.Wrap(err, "open spp server port")
	}
	a.state.SPPPort = port

	name := fmt.Sprintf("Serial Port Server Port %d", a.cfg.SPPPort)
	h, err := a.st.RegisterSDPRecord(port, name)
	if err != nil {
		a.logger.Errorf("RegisterSDPRecord: %v", err)
		if err := a.st.CloseServerPort(port); err != nil {
			a.logger.Errorf("CloseServerPort: %v", err)
		}
		a.state.SPPPort = 0
		return keyfob.NewError("RegisterSDPRecord", keyfob.CodeFunctionError, err)
	}
	a.state.SDPHandle = h

	a.logger.Infof("SPP server on port %d", a.cfg.SPPPort)
	return nil
}

func (a *Application) openGATT() error {
	if err := a.st.InitializeGATT(a.onGATTEvent); err != nil {
		a.logger.Errorf("InitializeGATT: %v", err)
		return errors.Wrap(err, "initialize gatt")
	}

	id, err := a.st.InitializeGAPService()
	if err != nil {
		a.logger.Errorf("InitializeGAPService: %v", err)
		return errors.Wrap(err, "initialize gap service")
	}
	a.state.GAPSInstance = id

	if err := a.st.SetDeviceName(id, a.cfg.LEDeviceName); err != nil {
		a.logger.Errorf("SetDeviceName: %v", err)
	}
	if err := a.st.SetDeviceAppearance(id, stack.AppearanceGenericComputer); err != nil {
		a.logger.Errorf("SetDeviceAppearance: %v", err)
	}
	return nil
}

func (a *Application) writeEIR() {
	tx, err := a.st.InquiryResponseTxPower()
	if err != nil {
		a.logger.Errorf("InquiryResponseTxPower: %v", err)
		tx = 0
	}

	eir, err := adv.EIRData(a.cfg.CBDeviceName, tx)
	if err != nil {
		a.logger.Errorf("build EIR: %v", err)
		return
	}
	if err := a.st.WriteExtendedInquiryInformation(true, eir); err != nil {
		a.logger.Errorf("WriteExtendedInquiryInformation: %v", err)
	}
}

// setAdvertisingData advertises the LE name, announcing BR/EDR support only
// while the classic link is free.
func (a *Application) setAdvertisingData(supportBR bool) {
	data, err := adv.AdvertisingData(a.cfg.LEDeviceName, supportBR)
	if err != nil {
		a.logger.Errorf("build advertising data: %v", err)
		return
	}
	if err := a.st.SetAdvertisingData(data); err != nil {
		a.logger.Errorf("SetAdvertisingData: %v", err)
	}
}
