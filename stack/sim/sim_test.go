package sim

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/hal"
	"github.com/rigado/keyfob/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var peer = keyfob.MustParseAddr("11:22:33:44:55:66")

func TestAESVector(t *testing.T) {
	key, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	plain, _ := hex.DecodeString("00112233445566778899aabbccddeeff")

	out, err := e(key, plain)
	require.NoError(t, err)
	assert.Equal(t, "69c4e0d86a7b0430d8cdb78070b4c55a", hex.EncodeToString(out))

	_, err = e(key[:15], plain)
	assert.Error(t, err)
}

func TestRegenerateMatchesGenerate(t *testing.T) {
	dhk := keyfob.Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	er := keyfob.Key{0x28, 0xba, 0xe1, 0x35, 0x13, 0xb2, 0x20, 0x45, 0x16, 0xb2, 0x19, 0xd0, 0x80, 0xee, 0x4a, 0x51}

	src := bytes.NewReader([]byte{0x34, 0x12, 0xa, 0xb, 0xc, 0xd, 0xe, 0xf, 0x10, 0x11})
	ltk, ediv, rnd, err := generateLTK(src, dhk, er)
	require.NoError(t, err)
	assert.Equal(t, keyfob.Rand{0xa, 0xb, 0xc, 0xd, 0xe, 0xf, 0x10, 0x11}, rnd)
	assert.False(t, ltk.IsZero())

	again, err := regenerateLTK(dhk, er, ediv, rnd)
	require.NoError(t, err)
	assert.Equal(t, ltk, again)

	other, err := regenerateLTK(dhk, er, ediv^1, rnd)
	require.NoError(t, err)
	assert.NotEqual(t, ltk, other)
}

func TestGenerateShortRead(t *testing.T) {
	_, _, _, err := generateLTK(bytes.NewReader([]byte{1, 2, 3}), keyfob.Key{}, keyfob.Key{})
	assert.Error(t, err)
}

func TestDiversifyDistinct(t *testing.T) {
	s := New()
	ir := keyfob.Key{0x41, 0x09, 0xa2, 0x88}

	irk, err := s.DiversifyFunction(ir, 1, 0)
	require.NoError(t, err)
	dhk, err := s.DiversifyFunction(ir, 3, 0)
	require.NoError(t, err)
	assert.NotEqual(t, irk, dhk)

	again, err := s.DiversifyFunction(ir, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, irk, again)
}

func TestInitializeAndShutdown(t *testing.T) {
	s := New()
	id, err := s.Initialize()
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.True(t, s.Initialized())

	_, err = s.Initialize()
	assert.Error(t, err, "second initialize must fail")

	s.Shutdown()
	assert.False(t, s.Initialized())

	id2, err := s.Initialize()
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestFailOn(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	s.FailOn("Initialize", boom)
	_, err := s.Initialize()
	assert.Equal(t, boom, err)

	s.FailOn("Initialize", nil)
	_, err = s.Initialize()
	assert.NoError(t, err)
	assert.Equal(t, []string{"Initialize", "Initialize"}, s.Calls())
}

func TestDataWriteLimit(t *testing.T) {
	s := New()
	id, err := s.OpenServerPort(1, func(stack.SPPEvent) {})
	require.NoError(t, err)

	n, err := s.DataWrite(id, []byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	s.SetWriteLimit(4)
	n, err = s.DataWrite(id, []byte("ghijkl"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcdefghij", string(s.Written()))

	_, err = s.DataWrite(id+1, []byte("x"))
	assert.Error(t, err)
}

func TestServerPortLifecycle(t *testing.T) {
	s := New()
	id, err := s.OpenServerPort(1, func(stack.SPPEvent) {})
	require.NoError(t, err)

	_, err = s.OpenServerPort(1, func(stack.SPPEvent) {})
	assert.Error(t, err)

	h, err := s.RegisterSDPRecord(id, "Serial Port Server Port 1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.SDPRecords())

	require.NoError(t, s.UnregisterSDPRecord(id, h))
	require.NoError(t, s.CloseServerPort(id))
	assert.Zero(t, s.OpenPorts())
	assert.Error(t, s.CloseServerPort(id))
}

func TestEmitWithoutHandler(t *testing.T) {
	s := New()
	assert.Equal(t, ErrNoHandler, s.EmitClassic(stack.PINCodeRequest{Addr: peer}))
	assert.Equal(t, ErrNoHandler, s.EmitLE(stack.PairingRequest{Addr: peer}))
	assert.Equal(t, ErrNoHandler, s.EmitGATT(stack.GATTDeviceConnection{}))
	assert.Equal(t, ErrNoHandler, s.ConnectSPP(1, peer))
}

func TestEmitReentrant(t *testing.T) {
	s := New()
	var got []stack.ClassicEvent

	require.NoError(t, s.RegisterRemoteAuthentication(func(e stack.ClassicEvent) {
		got = append(got, e)
		// calling back into the stack from a handler must not deadlock
		require.NoError(t, s.AuthenticationResponse(e.Remote(), stack.AuthInfo{Type: stack.AuthPINCode, DataLength: 4}))
	}))

	require.NoError(t, s.EmitClassic(stack.PINCodeRequest{Addr: peer}))
	require.Len(t, got, 1)
	require.Len(t, s.AuthResponses(), 1)
	assert.Equal(t, peer, s.AuthResponses()[0].Addr)
}

func TestLinkKeyBookkeeping(t *testing.T) {
	s := New()
	require.NoError(t, s.AuthenticationResponse(peer, stack.AuthInfo{Type: stack.AuthLinkKey, DataLength: 16}))

	n, err := s.DeleteStoredLinkKey(peer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteStoredLinkKey(keyfob.NullAddr)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBoard(t *testing.T) {
	b := NewBoard()
	var seen []LEDEvent
	b.OnLED = func(led hal.LED, on bool) { seen = append(seen, LEDEvent{led, on}) }

	b.SetLED(hal.LED0, true)
	b.SetLED(hal.LED1, true)
	b.SetLED(hal.LED0, false)
	assert.False(t, b.LED(hal.LED0))
	assert.True(t, b.LED(hal.LED1))
	assert.Equal(t, b.LEDEvents(), seen)

	b.EnterLowPower(hal.LPM0)
	b.EnterLowPower(hal.LPM3)
	assert.Equal(t, []hal.PowerMode{hal.LPM0, hal.LPM3}, b.PowerModes())

	b.SetAcceleration(1, -2, 3)
	x, y, z, err := b.Acceleration()
	require.NoError(t, err)
	assert.Equal(t, []int8{1, -2, 3}, []int8{x, y, z})
}
