package phys

import (
	"errors"
	"sync"
)

// ErrOutOfRange is returned when an access reaches past the end of physical
// memory.
var ErrOutOfRange = errors.New(
	"accessing physical address beyond the storage capacity")

// A Storage keeps the bytes of the simulated physical memory.
//
// The storage manages memory in page-sized units. A unit that has never been
// touched by Read or Write does not occupy any host memory and reads as
// zeros.
type Storage struct {
	sync.RWMutex

	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.unitSize = PageSize
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// unit returns the backing unit of an address. When create is false and the
// unit has never been written, nil is returned and the caller treats the
// unit as zero-filled.
func (s *Storage) unit(address uint64, create bool) ([]byte, error) {
	if address >= s.capacity {
		return nil, ErrOutOfRange
	}

	baseAddr, _ := s.parseAddress(address)
	unit, ok := s.data[baseAddr]
	if !ok && create {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit, nil
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read returns length bytes starting at address.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()

	currAddr := address
	dataOffset := uint64(0)
	res := make([]byte, length)

	for currAddr < address+length {
		unit, err := s.unit(currAddr, false)
		if err != nil {
			return nil, err
		}

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToRead := min(address+length-currAddr, baseAddr+s.unitSize-currAddr)

		if unit != nil {
			copy(res[dataOffset:dataOffset+lenToRead],
				unit[inUnitAddr:inUnitAddr+lenToRead])
		}

		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	s.Lock()
	defer s.Unlock()

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < uint64(len(data)) {
		unit, err := s.unit(currAddr, true)
		if err != nil {
			return err
		}

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToWrite := min(
			uint64(len(data))-dataOffset,
			baseAddr+s.unitSize-currAddr)

		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])
		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}

// Zero drops the unit holding address so that it reads as zeros again.
func (s *Storage) Zero(address uint64) {
	s.Lock()
	defer s.Unlock()

	baseAddr, _ := s.parseAddress(address)
	delete(s.data, baseAddr)
}

// Copy duplicates one unit into another. Both addresses must be
// unit-aligned.
func (s *Storage) Copy(dst, src uint64) error {
	s.Lock()
	defer s.Unlock()

	from, err := s.unit(src, false)
	if err != nil {
		return err
	}

	to, err := s.unit(dst, from != nil)
	if err != nil {
		return err
	}

	switch {
	case from != nil:
		copy(to, from)
	case to != nil:
		delete(s.data, dst)
	}

	return nil
}
