package bond

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
)

// Manager persists LE bonds between runs.
type Manager interface {
	Find(addr keyfob.Addr) (*DeviceInfo, error)
	Save(d *DeviceInfo) error
	Exists(addr keyfob.Addr) bool
	Delete(addr keyfob.Addr) error
	All() ([]*DeviceInfo, error)
}

type fileManager struct {
	filename string
	lock     sync.RWMutex
}

type bondInfo struct {
	Bonds []remoteKeyInfo `json:"bonds"`
}

type remoteKeyInfo struct {
	Address               string `json:"address"`
	AddressType           byte   `json:"addressType"`
	LongTermKey           string `json:"longTermKey"`
	EncryptionDiversifier string `json:"encryptionDiversifier"`
	RandomValue           string `json:"randomValue"`
	KeySize               byte   `json:"keySize"`
}

// NewFileManager returns a Manager backed by a JSON file. The file is
// created on first save.
func NewFileManager(filename string) Manager {
	return &fileManager{filename: filename}
}

func (m *fileManager) Exists(addr keyfob.Addr) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	bonds, err := m.loadBonds()
	if err != nil {
		return false
	}

	for _, b := range bonds.Bonds {
		if b.Address == addr.String() {
			return true
		}
	}
	return false
}

func (m *fileManager) Find(addr keyfob.Addr) (*DeviceInfo, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	bonds, err := m.loadBonds()
	if err != nil {
		return nil, err
	}

	for _, b := range bonds.Bonds {
		if b.Address == addr.String() {
			return b.deviceInfo()
		}
	}

	return nil, errors.Errorf("bond information not found for %s", addr)
}

func (m *fileManager) All() ([]*DeviceInfo, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	bonds, err := m.loadBonds()
	if err != nil {
		return nil, err
	}

	out := make([]*DeviceInfo, 0, len(bonds.Bonds))
	for _, b := range bonds.Bonds {
		d, err := b.deviceInfo()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *fileManager) Save(d *DeviceInfo) error {
	if d == nil {
		return errors.New("empty bond information")
	}
	if !d.HasLTK() {
		return errors.Errorf("no valid long term key for %s", d.Peer.Addr)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	bonds, err := m.loadBonds()
	if err != nil {
		return err
	}

	rki := createRemoteKeyInfo(d)

	replaced := false
	for i := range bonds.Bonds {
		if bonds.Bonds[i].Address == rki.Address {
			bonds.Bonds[i] = rki
			replaced = true
			break
		}
	}
	if !replaced {
		bonds.Bonds = append(bonds.Bonds, rki)
	}

	return m.storeBonds(bonds)
}

func (m *fileManager) Delete(addr keyfob.Addr) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	bonds, err := m.loadBonds()
	if err != nil {
		return err
	}

	kept := bonds.Bonds[:0]
	for _, b := range bonds.Bonds {
		if b.Address != addr.String() {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(bonds.Bonds) {
		return nil
	}
	bonds.Bonds = kept

	return m.storeBonds(bonds)
}

func createRemoteKeyInfo(d *DeviceInfo) remoteKeyInfo {
	eDiv := make([]byte, 2)
	binary.LittleEndian.PutUint16(eDiv, d.EDIV)

	return remoteKeyInfo{
		Address:               d.Peer.Addr.String(),
		AddressType:           byte(d.Peer.Type),
		LongTermKey:           hex.EncodeToString(d.LTK[:]),
		EncryptionDiversifier: hex.EncodeToString(eDiv),
		RandomValue:           hex.EncodeToString(d.Rand[:]),
		KeySize:               d.EncryptionKeySize,
	}
}

func (b remoteKeyInfo) deviceInfo() (*DeviceInfo, error) {
	addr, err := keyfob.ParseAddr(b.Address)
	if err != nil {
		return nil, err
	}

	ltk, err := hex.DecodeString(b.LongTermKey)
	if err != nil || len(ltk) != len(keyfob.Key{}) {
		return nil, errors.Errorf("invalid long term key in bond file for %s", b.Address)
	}

	eDiv, err := hex.DecodeString(b.EncryptionDiversifier)
	if err != nil || len(eDiv) != 2 {
		return nil, errors.Errorf("invalid ediv in bond file for %s", b.Address)
	}

	randVal, err := hex.DecodeString(b.RandomValue)
	if err != nil || len(randVal) != len(keyfob.Rand{}) {
		return nil, errors.Errorf("invalid random value in bond file for %s", b.Address)
	}

	d := NewDeviceInfo(addr, keyfob.AddrType(b.AddressType))
	var k keyfob.Key
	var r keyfob.Rand
	copy(k[:], ltk)
	copy(r[:], randVal)
	d.SetLTK(k, binary.LittleEndian.Uint16(eDiv), r, b.KeySize)

	return d, nil
}

func (m *fileManager) loadBonds() (*bondInfo, error) {
	var bonds bondInfo

	fileData, err := os.ReadFile(m.filename)
	if os.IsNotExist(err) {
		return &bonds, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bond file information")
	}

	if len(fileData) > 0 {
		err = jsoniter.Unmarshal(fileData, &bonds)
		if err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal current bond info")
		}
	}

	return &bonds, nil
}

func (m *fileManager) storeBonds(bonds *bondInfo) error {
	out, err := jsoniter.Marshal(bonds)
	if err != nil {
		return errors.Wrap(err, "failed to marshal bonds to json")
	}

	err = os.WriteFile(m.filename, out, 0600)
	if err != nil {
		return errors.Wrap(err, "failed to update bond information")
	}

	return nil
}
