package vm

import "github.com/sarchlab/joskern/mem/phys"

// Bits in x86 page table entries.
const (
	x86Present  = 0x001
	x86Writable = 0x002
	x86User     = 0x004
	x86Accessed = 0x020
	x86Dirty    = 0x040
	// x86Avail bits are ignored by the MMU and left to software.
	x86Avail = 0xE00
	x86COW   = 0x800

	x86AddrMask = 0xFFFFF000
)

type x86Arch struct{}

// X86 is the 32-bit x86 layout: a 10-bit directory index, a 10-bit table
// index and simple P/W/U bits.
var X86 Arch = x86Arch{}

func (x86Arch) Name() string         { return "x86" }
func (x86Arch) DirShift() uint       { return 22 }
func (x86Arch) NumDirEntries() int   { return 1024 }
func (x86Arch) NumTableEntries() int { return 1024 }

func (x86Arch) MakePTE(f phys.Frame, perm Perm) PTE {
	v := PTE(f.Address()) & x86AddrMask

	if perm.Has(PermPresent) {
		v |= x86Present
	}

	if perm.Has(PermWritable) {
		v |= x86Writable
	}

	if perm.Has(PermUser) {
		v |= x86User
	}

	if perm.Has(PermAccessed) {
		v |= x86Accessed
	}

	if perm.Has(PermDirty) {
		v |= x86Dirty
	}

	if perm.Has(PermCOW) {
		v |= x86COW
	}

	return v
}

func (x86Arch) Frame(pte PTE) phys.Frame {
	return phys.FrameOf(uint64(pte & x86AddrMask))
}

func (x86Arch) Perm(pte PTE) Perm {
	var p Perm

	bits := []struct {
		hw   PTE
		flag Perm
	}{
		{x86Present, PermPresent},
		{x86Writable, PermWritable},
		{x86User, PermUser},
		{x86Accessed, PermAccessed},
		{x86Dirty, PermDirty},
		{x86COW, PermCOW},
	}

	for _, b := range bits {
		if pte&b.hw != 0 {
			p |= b.flag
		}
	}

	return p
}
