package security

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/bond"
	"github.com/rigado/keyfob/linkkey"
	"github.com/rigado/keyfob/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	peer    = keyfob.MustParseAddr("00:1B:DC:01:02:03")
	other   = keyfob.MustParseAddr("00:1B:DC:0A:0B:0C")
	testLTK = keyfob.Key{0xaa, 0xbb, 0xcc}
)

type fakeService struct {
	genErr   error
	regenErr error
	mode     stack.EncryptionMode
	queryErr error

	regenArgs []uint16
}

func (f *fakeService) GenerateLTK(dhk, er keyfob.Key) (keyfob.Key, uint16, keyfob.Rand, error) {
	if f.genErr != nil {
		return keyfob.Key{}, 0, keyfob.Rand{}, f.genErr
	}
	return testLTK, 0x1234, keyfob.Rand{1, 2, 3, 4, 5, 6, 7, 8}, nil
}

func (f *fakeService) RegenerateLTK(dhk, er keyfob.Key, ediv uint16, rand keyfob.Rand) (keyfob.Key, error) {
	f.regenArgs = append(f.regenArgs, ediv)
	if f.regenErr != nil {
		return keyfob.Key{}, f.regenErr
	}
	return testLTK, nil
}

func (f *fakeService) QueryLEEncryptionMode(keyfob.Addr) (stack.EncryptionMode, error) {
	return f.mode, f.queryErr
}

type fixture struct {
	r     *Responder
	svc   *fakeService
	links *linkkey.Store
	devs  *bond.Registry
}

func newFixture(t *testing.T, bonds bond.Manager) *fixture {
	f := &fixture{
		svc:   &fakeService{},
		links: linkkey.New(1),
		devs:  bond.NewRegistry(0),
	}
	r, err := NewResponder(Config{
		PINCode:  "0000",
		Keys:     DefaultKeys(),
		LinkKeys: f.links,
		Devices:  f.devs,
		Service:  f.svc,
		Bonds:    bonds,
	})
	require.NoError(t, err)
	f.r = r
	return f
}

func authResponse(t *testing.T, calls []stack.Call) stack.AuthenticationResponse {
	require.Len(t, calls, 1)
	c, ok := calls[0].(stack.AuthenticationResponse)
	require.True(t, ok, "got %T", calls[0])
	return c
}

func leAuthResponse(t *testing.T, calls []stack.Call) stack.LEAuthenticationResponse {
	require.Len(t, calls, 1)
	c, ok := calls[0].(stack.LEAuthenticationResponse)
	require.True(t, ok, "got %T", calls[0])
	return c
}

func TestNewResponderValidates(t *testing.T) {
	_, err := NewResponder(Config{PINCode: ""})
	assert.Error(t, err)
	_, err = NewResponder(Config{PINCode: "12345678901234567"})
	assert.Error(t, err)
	_, err = NewResponder(Config{PINCode: "0000"})
	assert.Error(t, err)
}

func TestPINCodeRequest(t *testing.T) {
	f := newFixture(t, nil)

	c := authResponse(t, f.r.HandleClassic(stack.PINCodeRequest{Addr: peer}))
	assert.Equal(t, peer, c.Addr)
	assert.Equal(t, stack.AuthPINCode, c.Info.Type)
	assert.Equal(t, byte(4), c.Info.DataLength)
	assert.Equal(t, "0000", string(c.Info.PINCode[:4]))
	assert.Equal(t, byte(0), c.Info.PINCode[4])
}

func TestLinkKeyLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	key := keyfob.Key{0x10, 0x20, 0x30}

	// unknown peer gets an empty response
	c := authResponse(t, f.r.HandleClassic(stack.LinkKeyRequest{Addr: peer}))
	assert.Equal(t, stack.AuthLinkKey, c.Info.Type)
	assert.Zero(t, c.Info.DataLength)

	assert.Nil(t, f.r.HandleClassic(stack.LinkKeyCreation{Addr: peer, LinkKey: key}))

	c = authResponse(t, f.r.HandleClassic(stack.LinkKeyRequest{Addr: peer}))
	assert.Equal(t, byte(stack.LinkKeySize), c.Info.DataLength)
	assert.Equal(t, key, c.Info.LinkKey)

	// the single slot is taken; a second peer's key is dropped
	f.r.HandleClassic(stack.LinkKeyCreation{Addr: other, LinkKey: keyfob.Key{9}})
	_, ok := f.links.Lookup(other)
	assert.False(t, ok)
	assert.Equal(t, 1, f.links.Len())

	// successful authentication keeps the key
	assert.Nil(t, f.r.HandleClassic(stack.AuthenticationStatus{Addr: peer, Status: 0}))
	assert.Equal(t, 1, f.links.Len())

	// failure deletes it here and in the controller
	calls := f.r.HandleClassic(stack.AuthenticationStatus{Addr: peer, Status: 0x05})
	require.Len(t, calls, 1)
	assert.Equal(t, stack.DeleteStoredLinkKey{Addr: peer}, calls[0])
	assert.Zero(t, f.links.Len())
}

func TestIOCapabilityAndConfirmation(t *testing.T) {
	f := newFixture(t, nil)

	c := authResponse(t, f.r.HandleClassic(stack.IOCapabilityRequest{Addr: peer}))
	assert.Equal(t, stack.AuthIOCapabilities, c.Info.Type)
	assert.Equal(t, stack.NoInputNoOutput, c.Info.IOCapabilities.IOCapability)
	assert.False(t, c.Info.IOCapabilities.MITMProtection)
	assert.False(t, c.Info.IOCapabilities.OOBDataPresent)

	c = authResponse(t, f.r.HandleClassic(stack.UserConfirmationRequest{Addr: peer, NumericValue: 123456}))
	assert.Equal(t, stack.AuthUserConfirmation, c.Info.Type)
	assert.Equal(t, byte(1), c.Info.DataLength)
	assert.True(t, c.Info.Confirmation)

	assert.Nil(t, f.r.HandleClassic(stack.IOCapabilityResponse{Addr: peer}))
	assert.Nil(t, f.r.HandleClassic(stack.PasskeyRequest{Addr: peer}))
}

func TestLEConnectionCreatesEntry(t *testing.T) {
	f := newFixture(t, nil)

	f.r.HandleLE(stack.LEConnectionComplete{Addr: peer, PeerType: keyfob.AddrRandom, Status: 0x3e})
	assert.Zero(t, f.devs.Len(), "failed connection creates nothing")

	f.r.HandleLE(stack.LEConnectionComplete{Addr: peer, PeerType: keyfob.AddrRandom})
	f.r.HandleLE(stack.LEConnectionComplete{Addr: peer, PeerType: keyfob.AddrPublic})
	assert.Equal(t, 1, f.devs.Len())

	d, ok := f.devs.Find(peer)
	require.True(t, ok)
	assert.Equal(t, keyfob.AddrRandom, d.Peer.Type)
}

func TestLEDisconnection(t *testing.T) {
	tests := []struct {
		name     string
		mode     stack.EncryptionMode
		queryErr error
		kept     bool
	}{
		{"encrypted", stack.EncryptionEnabled, nil, true},
		{"unencrypted", stack.EncryptionDisabled, nil, false},
		{"query failed", stack.EncryptionEnabled, errors.New("no link"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.svc.mode, f.svc.queryErr = tt.mode, tt.queryErr

			f.r.HandleLE(stack.LEConnectionComplete{Addr: peer})
			assert.Nil(t, f.r.HandleLE(stack.LEDisconnectionComplete{Addr: peer, Reason: 0x13}))

			_, ok := f.devs.Find(peer)
			assert.Equal(t, tt.kept, ok)
		})
	}
}

func TestLongTermKeyRequest(t *testing.T) {
	f := newFixture(t, nil)
	rnd := keyfob.Rand{8, 7, 6, 5, 4, 3, 2, 1}

	c := leAuthResponse(t, f.r.HandleLE(stack.LongTermKeyRequest{Addr: peer, EDIV: 0x4321, Rand: rnd}))
	assert.Equal(t, stack.LEAuthLongTermKey, c.Info.Type)
	assert.Equal(t, byte(17), c.Info.DataLength)
	assert.Equal(t, byte(16), c.Info.EncryptionKeySize)
	assert.Equal(t, testLTK, c.Info.LTK)
	assert.Equal(t, []uint16{0x4321}, f.svc.regenArgs)

	f.svc.regenErr = errors.New("bad rand")
	c = leAuthResponse(t, f.r.HandleLE(stack.LongTermKeyRequest{Addr: peer, EDIV: 1, Rand: rnd}))
	assert.Equal(t, stack.LEAuthLongTermKey, c.Info.Type)
	assert.Zero(t, c.Info.DataLength, "negative reply")
}

func TestPairingRequest(t *testing.T) {
	f := newFixture(t, nil)

	c := leAuthResponse(t, f.r.HandleLE(stack.PairingRequest{Addr: peer}))
	assert.Equal(t, stack.LEAuthPairingCapabilities, c.Info.Type)

	caps := c.Info.PairingCapabilities
	assert.Equal(t, stack.Bonding, caps.BondingType)
	assert.Equal(t, stack.NoInputNoOutput, caps.IOCapability)
	assert.False(t, caps.MITM)
	assert.False(t, caps.OOBPresent)
	assert.Equal(t, byte(16), caps.MaxEncryptionKeySize)
	assert.Equal(t, stack.KeyDistribution{EncryptionKey: true}, caps.SendingKeys)
	assert.Equal(t, stack.KeyDistribution{}, caps.ReceivingKeys)
}

func TestConfirmationRequest(t *testing.T) {
	f := newFixture(t, nil)

	c := leAuthResponse(t, f.r.HandleLE(stack.ConfirmationRequest{Addr: peer, Type: stack.ConfirmationNone}))
	assert.Equal(t, stack.LEAuthConfirmation, c.Info.Type)
	assert.Equal(t, byte(4), c.Info.DataLength)

	assert.Nil(t, f.r.HandleLE(stack.ConfirmationRequest{Addr: peer, Type: stack.ConfirmationPasskey}))
	assert.Nil(t, f.r.HandleLE(stack.ConfirmationRequest{Addr: peer, Type: stack.ConfirmationDisplay, DisplayPasskey: 42}))
}

func TestPairingFailureDisconnects(t *testing.T) {
	f := newFixture(t, nil)
	f.r.HandleLE(stack.LEConnectionComplete{Addr: peer})

	calls := f.r.HandleLE(stack.PairingStatus{Addr: peer, Status: 0x05})
	require.Len(t, calls, 1)
	assert.Equal(t, stack.LEDisconnect{Addr: peer}, calls[0])
	assert.Zero(t, f.devs.Len())

	// no entry: still disconnects
	calls = f.r.HandleLE(stack.PairingStatus{Addr: other, Status: 0x08})
	assert.Equal(t, []stack.Call{stack.LEDisconnect{Addr: other}}, calls)
}

func TestEncryptionInformationRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.r.HandleLE(stack.LEConnectionComplete{Addr: peer})

	c := leAuthResponse(t, f.r.HandleLE(stack.EncryptionInformationRequest{Addr: peer, EncryptionKeySize: 12}))
	assert.Equal(t, stack.LEAuthEncryptionInformation, c.Info.Type)
	assert.Equal(t, byte(27), c.Info.DataLength)
	assert.Equal(t, byte(12), c.Info.EncryptionKeySize)
	assert.Equal(t, testLTK, c.Info.LTK)
	assert.Equal(t, uint16(0x1234), c.Info.EDIV)

	d, _ := f.devs.Find(peer)
	assert.True(t, d.HasLTK())
	assert.Equal(t, uint16(0x1234), d.EDIV)
	assert.Equal(t, byte(12), d.EncryptionKeySize)

	assert.Nil(t, f.r.HandleLE(stack.EncryptionInformationRequest{Addr: keyfob.NullAddr, EncryptionKeySize: 16}))

	f.svc.genErr = errors.New("rng")
	assert.Nil(t, f.r.HandleLE(stack.EncryptionInformationRequest{Addr: peer, EncryptionKeySize: 16}))
}

func TestBondPersistence(t *testing.T) {
	bonds := bond.NewFileManager(filepath.Join(t.TempDir(), "bonds.json"))
	f := newFixture(t, bonds)

	f.r.HandleLE(stack.LEConnectionComplete{Addr: peer})
	f.r.HandleLE(stack.EncryptionInformationRequest{Addr: peer, EncryptionKeySize: 16})
	f.r.HandleLE(stack.PairingStatus{Addr: peer, NegotiatedEncryptionKeySize: 16})
	require.True(t, bonds.Exists(peer))

	saved, err := bonds.Find(peer)
	require.NoError(t, err)
	assert.Equal(t, testLTK, saved.LTK)

	// an unencrypted disconnect forgets the device and its bond
	f.svc.mode = stack.EncryptionDisabled
	f.r.HandleLE(stack.LEDisconnectionComplete{Addr: peer})
	assert.False(t, bonds.Exists(peer))
}

type fakeDiversifier struct{ err error }

func (d fakeDiversifier) DiversifyFunction(key keyfob.Key, div, r uint16) (keyfob.Key, error) {
	key[0] ^= byte(div)
	return key, d.err
}

func TestKeysDerive(t *testing.T) {
	k := DefaultKeys()
	require.NoError(t, k.Derive(fakeDiversifier{}))
	assert.Equal(t, DefaultIR[0]^1, k.IRK[0])
	assert.Equal(t, DefaultIR[0]^3, k.DHK[0])

	k = DefaultKeys()
	assert.Error(t, k.Derive(fakeDiversifier{err: errors.New("no stack")}))
	assert.True(t, k.DHK.IsZero())
}
