// Package linkkey holds classic BR/EDR link keys in a fixed number of slots.
package linkkey

import (
	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
)

var (
	ErrFull        = errors.New("link key array full")
	ErrNullAddress = errors.New("null address")
)

// Entry is one slot of the table. A null Addr marks a free slot.
type Entry struct {
	Addr keyfob.Addr
	Key  keyfob.Key
}

// Store is a fixed capacity link key table. It is not safe for concurrent
// use; the stack delivers authentication events one at a time.
type Store struct {
	slots []Entry
}

// New returns a store with capacity slots.
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{slots: make([]Entry, capacity)}
}

// Store saves key for addr into the slot already holding addr, or else the
// first free slot. A full table leaves the store untouched and returns
// ErrFull.
func (s *Store) Store(addr keyfob.Addr, key keyfob.Key) error {
	if addr.IsNull() {
		return ErrNullAddress
	}

	free := -1
	for i := range s.slots {
		if s.slots[i].Addr == addr {
			s.slots[i].Key = key
			return nil
		}
		if free < 0 && s.slots[i].Addr.IsNull() {
			free = i
		}
	}

	if free < 0 {
		return ErrFull
	}

	s.slots[free] = Entry{Addr: addr, Key: key}
	return nil
}

// Lookup returns the key stored for addr.
func (s *Store) Lookup(addr keyfob.Addr) (keyfob.Key, bool) {
	if addr.IsNull() {
		return keyfob.Key{}, false
	}

	for _, e := range s.slots {
		if e.Addr == addr {
			return e.Key, true
		}
	}
	return keyfob.Key{}, false
}

// Delete clears the slot holding addr. The null address clears every slot.
// It returns the number of occupied slots that were cleared.
func (s *Store) Delete(addr keyfob.Addr) int {
	n := 0

	if addr.IsNull() {
		for i := range s.slots {
			if !s.slots[i].Addr.IsNull() {
				n++
			}
			s.slots[i] = Entry{}
		}
		return n
	}

	for i := range s.slots {
		if s.slots[i].Addr == addr {
			s.slots[i] = Entry{}
			return 1
		}
	}
	return 0
}

// Len returns the number of occupied slots.
func (s *Store) Len() int {
	n := 0
	for _, e := range s.slots {
		if !e.Addr.IsNull() {
			n++
		}
	}
	return n
}

// Cap returns the number of slots.
func (s *Store) Cap() int {
	return len(s.slots)
}

// Entries returns a copy of the occupied slots in slot order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.slots))
	for _, e := range s.slots {
		if !e.Addr.IsNull() {
			out = append(out, e)
		}
	}
	return out
}
