package security

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/bond"
	"github.com/rigado/keyfob/linkkey"
	"github.com/rigado/keyfob/stack"
)

// KeyService is the part of the stack the responder queries while
// answering an event.
type KeyService interface {
	GenerateLTK(dhk, er keyfob.Key) (ltk keyfob.Key, ediv uint16, rand keyfob.Rand, err error)
	RegenerateLTK(dhk, er keyfob.Key, ediv uint16, rand keyfob.Rand) (keyfob.Key, error)
	QueryLEEncryptionMode(addr keyfob.Addr) (stack.EncryptionMode, error)
}

// LocalCapabilities is what the key fob announces: no display, no keyboard,
// no MITM protection and no OOB data.
var LocalCapabilities = stack.SecurityParams{
	IOCapability:   stack.NoInputNoOutput,
	MITMProtection: false,
	OOBDataPresent: false,
}

// PairingResponse is sent to every LE pairing request. Only the encryption
// key is distributed and nothing is requested back.
var PairingResponse = stack.PairingCapabilities{
	IOCapability:         stack.NoInputNoOutput,
	OOBPresent:           false,
	BondingType:          stack.Bonding,
	MITM:                 false,
	MaxEncryptionKeySize: stack.MaximumEncryptionKeySize,
	SendingKeys:          stack.KeyDistribution{EncryptionKey: true},
}

// Config wires a Responder.
type Config struct {
	PINCode  string
	Keys     *Keys
	LinkKeys *linkkey.Store
	Devices  *bond.Registry
	Service  KeyService
	// Bonds, when set, persists every device whose LTK is distributed.
	Bonds bond.Manager
}

// Responder turns authentication events into stack calls. Events are
// handled one at a time.
type Responder struct {
	mu sync.Mutex

	pin    stack.PINCode
	pinLen byte

	keys    *Keys
	links   *linkkey.Store
	devices *bond.Registry
	svc     KeyService
	bonds   bond.Manager

	logger keyfob.Logger
}

// NewResponder validates c and returns a Responder.
func NewResponder(c Config) (*Responder, error) {
	switch {
	case len(c.PINCode) == 0 || len(c.PINCode) > len(stack.PINCode{}):
		return nil, errors.Errorf("invalid pin code length %d", len(c.PINCode))
	case c.Keys == nil, c.LinkKeys == nil, c.Devices == nil, c.Service == nil:
		return nil, errors.New("incomplete responder config")
	}

	r := &Responder{
		pinLen:  byte(len(c.PINCode)),
		keys:    c.Keys,
		links:   c.LinkKeys,
		devices: c.Devices,
		svc:     c.Service,
		bonds:   c.Bonds,
		logger:  keyfob.ComponentLogger("security"),
	}
	copy(r.pin[:], c.PINCode)
	return r, nil
}

// HandleClassic answers a classic authentication event.
func (r *Responder) HandleClassic(ev stack.ClassicEvent) []stack.Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr := ev.Remote()

	switch e := ev.(type) {
	case stack.LinkKeyRequest:
		r.logger.Infof("link key request: %s", addr)
		info := stack.AuthInfo{Type: stack.AuthLinkKey}
		if key, ok := r.links.Lookup(addr); ok {
			info.DataLength = stack.LinkKeySize
			info.LinkKey = key
		}
		return respond(addr, info)

	case stack.PINCodeRequest:
		r.logger.Infof("pin code request: %s", addr)
		return respond(addr, stack.AuthInfo{
			Type:       stack.AuthPINCode,
			DataLength: r.pinLen,
			PINCode:    r.pin,
		})

	case stack.AuthenticationStatus:
		r.logger.Infof("authentication status %s: 0x%02x", addr, e.Status)
		if e.Status == 0 {
			return nil
		}
		r.links.Delete(addr)
		return []stack.Call{stack.DeleteStoredLinkKey{Addr: addr}}

	case stack.LinkKeyCreation:
		r.logger.Infof("link key creation: %s", addr)
		if err := r.links.Store(addr, e.LinkKey); err != nil {
			r.logger.Warnf("can't store link key for %s: %v", addr, err)
		}
		return nil

	case stack.IOCapabilityRequest:
		r.logger.Infof("io capability request: %s", addr)
		return respond(addr, stack.AuthInfo{
			Type:       stack.AuthIOCapabilities,
			DataLength: stack.IOCapabilitiesSize,
			IOCapabilities: stack.IOCapabilities{
				IOCapability:   LocalCapabilities.IOCapability,
				MITMProtection: LocalCapabilities.MITMProtection,
				OOBDataPresent: LocalCapabilities.OOBDataPresent,
			},
		})

	case stack.IOCapabilityResponse:
		r.logger.Infof("remote io capabilities %s: %s", addr, e.IOCapabilities)
		return nil

	case stack.UserConfirmationRequest:
		r.logger.Infof("user confirmation request %s: %06d, auto-accepting", addr, e.NumericValue)
		return respond(addr, stack.AuthInfo{
			Type:         stack.AuthUserConfirmation,
			DataLength:   stack.UserConfirmationSize,
			Confirmation: true,
		})

	case stack.RemoteNameResult:
		r.logger.Debugf("remote name %s: %q", addr, e.Name)
		return nil

	case stack.EncryptionChange:
		r.logger.Debugf("encryption change %s: status 0x%02x mode %d", addr, e.Status, e.Mode)
		return nil
	}

	r.logger.Warnf("unhandled classic authentication event %T from %s", ev, addr)
	return nil
}

// HandleLE answers an LE connection or authentication event.
func (r *Responder) HandleLE(ev stack.LEEvent) []stack.Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr := ev.Remote()

	switch e := ev.(type) {
	case stack.LEConnectionComplete:
		r.logger.Infof("le connection complete %s (%s): status 0x%02x", addr, e.PeerType, e.Status)
		if e.Status != 0 {
			return nil
		}
		if _, ok := r.devices.Find(addr); !ok && !r.devices.Create(addr, e.PeerType) {
			r.logger.Warnf("failed to add %s to the device list", addr)
		}
		return nil

	case stack.LEDisconnectionComplete:
		r.logger.Infof("le disconnection complete %s: status 0x%02x reason 0x%02x", addr, e.Status, e.Reason)
		if _, ok := r.devices.Find(addr); !ok {
			return nil
		}
		mode, err := r.svc.QueryLEEncryptionMode(addr)
		if err != nil || mode == stack.EncryptionDisabled {
			r.forget(addr)
		}
		return nil

	case stack.LongTermKeyRequest:
		info := stack.LEAuthInfo{Type: stack.LEAuthLongTermKey}
		ltk, err := r.svc.RegenerateLTK(r.keys.DHK, r.keys.ER, e.EDIV, e.Rand)
		if err != nil {
			r.logger.Warnf("regenerate LTK for %s: %v", addr, err)
		} else {
			info.DataLength = stack.LongTermKeyInformationSize
			info.EncryptionKeySize = stack.MaximumEncryptionKeySize
			info.LTK = ltk
		}
		return respondLE(addr, info)

	case stack.PairingRequest:
		r.logger.Infof("pairing request %s: %s", addr, e.Capabilities)
		return respondLE(addr, stack.LEAuthInfo{
			Type:                stack.LEAuthPairingCapabilities,
			DataLength:          stack.PairingCapabilitiesSize,
			PairingCapabilities: PairingResponse,
		})

	case stack.ConfirmationRequest:
		switch e.Type {
		case stack.ConfirmationNone:
			r.logger.Infof("just works pairing with %s", addr)
			return respondLE(addr, stack.LEAuthInfo{
				Type:       stack.LEAuthConfirmation,
				DataLength: stack.ConfirmationSize,
			})
		case stack.ConfirmationPasskey:
			r.logger.Infof("passkey requested by %s; no keyboard, not answering", addr)
		case stack.ConfirmationDisplay:
			r.logger.Infof("passkey for %s: %06d", addr, e.DisplayPasskey)
		}
		return nil

	case stack.SecurityEstablishmentComplete:
		r.logger.Infof("security re-established with %s: status 0x%02x", addr, e.Status)
		return nil

	case stack.PairingStatus:
		r.logger.Infof("pairing status %s: 0x%02x", addr, e.Status)
		if e.Status != 0 {
			r.forget(addr)
			return []stack.Call{stack.LEDisconnect{Addr: addr}}
		}
		if d, ok := r.devices.Find(addr); ok {
			d.EncryptionKeySize = e.NegotiatedEncryptionKeySize
			r.save(d)
		}
		return nil

	case stack.EncryptionInformationRequest:
		if addr.IsNull() {
			r.logger.Warnf("encryption information request without an address")
			return nil
		}
		ltk, ediv, rnd, err := r.svc.GenerateLTK(r.keys.DHK, r.keys.ER)
		if err != nil {
			r.logger.Errorf("generate LTK for %s: %v", addr, err)
			return nil
		}
		if d, ok := r.devices.Find(addr); ok {
			d.SetLTK(ltk, ediv, rnd, e.EncryptionKeySize)
			r.save(d)
		}
		return respondLE(addr, stack.LEAuthInfo{
			Type:              stack.LEAuthEncryptionInformation,
			DataLength:        stack.EncryptionInformationSize,
			EncryptionKeySize: e.EncryptionKeySize,
			LTK:               ltk,
			EDIV:              ediv,
			Rand:              rnd,
		})

	case stack.EncryptionInformation:
		r.logger.Infof("encryption information from %s: key size %d", addr, e.EncryptionKeySize)
		return nil

	case stack.LEEncryptionChange:
		r.logger.Debugf("le encryption change %s: status 0x%02x mode %d", addr, e.Status, e.Mode)
		return nil

	case stack.LEEncryptionRefreshComplete:
		r.logger.Debugf("le encryption refresh %s: status 0x%02x", addr, e.Status)
		return nil
	}

	r.logger.Warnf("unhandled LE event %T from %s", ev, addr)
	return nil
}

// forget drops the registry entry and its saved bond.
func (r *Responder) forget(addr keyfob.Addr) {
	if _, ok := r.devices.Delete(addr); !ok {
		return
	}
	r.logger.Debugf("removed %s from the device list", addr)

	if r.bonds == nil {
		return
	}
	if err := r.bonds.Delete(addr); err != nil {
		r.logger.Warnf("delete bond %s: %v", addr, err)
	}
}

func (r *Responder) save(d *bond.DeviceInfo) {
	if r.bonds == nil || !d.HasLTK() {
		return
	}
	if err := r.bonds.Save(d); err != nil {
		r.logger.Warnf("save bond %s: %v", d.Peer.Addr, err)
	}
}

func respond(addr keyfob.Addr, info stack.AuthInfo) []stack.Call {
	return []stack.Call{stack.AuthenticationResponse{Addr: addr, Info: info}}
}

func respondLE(addr keyfob.Addr, info stack.LEAuthInfo) []stack.Call {
	return []stack.Call{stack.LEAuthenticationResponse{Addr: addr, Info: info}}
}
