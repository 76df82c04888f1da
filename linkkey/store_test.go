package linkkey

import (
	"testing"

	"github.com/rigado/keyfob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = keyfob.MustParseAddr("AA:BB:CC:DD:EE:FF")
	addrB = keyfob.MustParseAddr("11:22:33:44:55:66")
	addrC = keyfob.MustParseAddr("01:02:03:04:05:06")

	keyA = keyfob.Key{0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xab, 0xac, 0xad, 0xae, 0xaf}
	keyB = keyfob.Key{0xb0, 0xb1, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xbb, 0xbc, 0xbd, 0xbe, 0xbf}
)

func TestStoreLookup(t *testing.T) {
	s := New(1)

	require.NoError(t, s.Store(addrA, keyA))

	k, ok := s.Lookup(addrA)
	assert.True(t, ok)
	assert.Equal(t, keyA, k)

	_, ok = s.Lookup(addrB)
	assert.False(t, ok)
}

func TestStoreSameAddressTwice(t *testing.T) {
	s := New(2)

	require.NoError(t, s.Store(addrA, keyA))
	require.NoError(t, s.Store(addrA, keyA))
	assert.Equal(t, 1, s.Len())

	// overwrite in place
	require.NoError(t, s.Store(addrA, keyB))
	assert.Equal(t, 1, s.Len())
	k, _ := s.Lookup(addrA)
	assert.Equal(t, keyB, k)
}

func TestStoreFullDropsNew(t *testing.T) {
	s := New(1)

	require.NoError(t, s.Store(addrA, keyA))
	assert.Equal(t, ErrFull, s.Store(addrB, keyB))

	assert.Equal(t, 1, s.Len())
	k, ok := s.Lookup(addrA)
	assert.True(t, ok)
	assert.Equal(t, keyA, k)
	_, ok = s.Lookup(addrB)
	assert.False(t, ok)
}

func TestStoreNeverExceedsCapacity(t *testing.T) {
	s := New(3)

	for i := 0; i < 50; i++ {
		a := keyfob.Addr{0x10, 0, 0, 0, 0, byte(i + 1)}
		_ = s.Store(a, keyA)
		assert.LessOrEqual(t, s.Len(), s.Cap())
	}
	assert.Equal(t, 3, s.Len())
}

func TestStoreReusesFreedSlot(t *testing.T) {
	s := New(2)

	require.NoError(t, s.Store(addrA, keyA))
	require.NoError(t, s.Store(addrB, keyB))
	assert.Equal(t, 1, s.Delete(addrA))

	require.NoError(t, s.Store(addrC, keyA))
	assert.Equal(t, []Entry{{addrC, keyA}, {addrB, keyB}}, s.Entries())
}

func TestDelete(t *testing.T) {
	s := New(2)

	require.NoError(t, s.Store(addrA, keyA))
	require.NoError(t, s.Store(addrB, keyB))

	assert.Equal(t, 0, s.Delete(addrC))
	assert.Equal(t, 1, s.Delete(addrB))
	_, ok := s.Lookup(addrB)
	assert.False(t, ok)

	require.NoError(t, s.Store(addrB, keyB))
	assert.Equal(t, 2, s.Delete(keyfob.NullAddr))
	assert.Equal(t, 0, s.Len())
	_, ok = s.Lookup(addrA)
	assert.False(t, ok)
}

func TestStoreNullAddress(t *testing.T) {
	s := New(1)

	assert.Equal(t, ErrNullAddress, s.Store(keyfob.NullAddr, keyA))
	_, ok := s.Lookup(keyfob.NullAddr)
	assert.False(t, ok)
}
