package sim

import (
	"testing"
	"time"

	"github.com/rigado/keyfob/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScript = `
name: pin pairing
steps:
  - action: pin-request
    addr: "11:22:33:44:55:66"
  - action: accel
    xyz: [1, 2, 3]
    wait: 1ms
  - action: link-key-created
    addr: "11:22:33:44:55:66"
    key: "00112233445566778899aabbccddeeff"
`

func TestParseScript(t *testing.T) {
	sc, err := ParseScript([]byte(testScript))
	require.NoError(t, err)
	assert.Equal(t, "pin pairing", sc.Name)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, time.Millisecond, sc.Steps[1].Wait)

	_, err = ParseScript([]byte("steps:\n  - action: fly\n"))
	assert.Error(t, err)
}

func TestPlayScript(t *testing.T) {
	sc, err := ParseScript([]byte(testScript))
	require.NoError(t, err)

	s := New()
	b := NewBoard()
	var events []stack.ClassicEvent
	require.NoError(t, s.RegisterRemoteAuthentication(func(e stack.ClassicEvent) {
		events = append(events, e)
	}))

	settled := 0
	require.NoError(t, sc.Play(s, b, func() { settled++ }))
	assert.Equal(t, 3, settled)
	require.Len(t, events, 2)
	assert.Equal(t, peer, events[0].(stack.PINCodeRequest).Addr)
	assert.Equal(t, byte(0xff), events[1].(stack.LinkKeyCreation).LinkKey[15])

	x, y, z, _ := b.Acceleration()
	assert.Equal(t, []int8{1, 2, 3}, []int8{x, y, z})
}

func TestPlayBadKey(t *testing.T) {
	sc := &Script{Steps: []Step{{Action: "link-key-created", Addr: "11:22:33:44:55:66", Key: "zz"}}}
	s := New()
	require.NoError(t, s.RegisterRemoteAuthentication(func(stack.ClassicEvent) {}))
	assert.Error(t, sc.Play(s, NewBoard(), nil))
}
