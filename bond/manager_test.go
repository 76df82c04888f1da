package bond

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rigado/keyfob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bonded(addr keyfob.Addr) *DeviceInfo {
	d := NewDeviceInfo(addr, keyfob.AddrPublic)
	d.SetLTK(keyfob.Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, 0xbeef, keyfob.Rand{8, 7, 6, 5, 4, 3, 2, 1}, 16)
	return d
}

func TestFileManagerSaveFind(t *testing.T) {
	m := NewFileManager(filepath.Join(t.TempDir(), "bonds.json"))

	assert.False(t, m.Exists(peer))
	_, err := m.Find(peer)
	assert.Error(t, err)

	d := bonded(peer)
	require.NoError(t, m.Save(d))
	assert.True(t, m.Exists(peer))

	loaded, err := m.Find(peer)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)
}

func TestFileManagerSaveReplaces(t *testing.T) {
	m := NewFileManager(filepath.Join(t.TempDir(), "bonds.json"))

	d := bonded(peer)
	require.NoError(t, m.Save(d))
	d.EDIV = 0x1234
	require.NoError(t, m.Save(d))

	all, err := m.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uint16(0x1234), all[0].EDIV)
}

func TestFileManagerRejectsUnbonded(t *testing.T) {
	m := NewFileManager(filepath.Join(t.TempDir(), "bonds.json"))

	assert.Error(t, m.Save(nil))
	assert.Error(t, m.Save(NewDeviceInfo(peer, keyfob.AddrPublic)))
}

func TestFileManagerDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bonds.json")
	m := NewFileManager(path)
	other := keyfob.MustParseAddr("11:22:33:44:55:66")

	require.NoError(t, m.Save(bonded(peer)))
	require.NoError(t, m.Save(bonded(other)))
	require.NoError(t, m.Delete(peer))
	require.NoError(t, m.Delete(peer))

	assert.False(t, m.Exists(peer))
	assert.True(t, m.Exists(other))
}

func TestFileManagerCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bonds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	m := NewFileManager(path)
	_, err := m.All()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"bonds":[{"address":"AA:BB:CC:DD:EE:FF","longTermKey":"00"}]}`), 0600))
	_, err = m.Find(peer)
	assert.Error(t, err)
}
