package vm

import "github.com/sarchlab/joskern/mem/phys"

// Bits in ARM small-page descriptors. Permissions are encoded with the
// access-permission pair AP[1:0] plus the APX bit rather than separate
// writable and user bits.
//
//	APX AP   kernel  user
//	 0  01   rw      -
//	 0  11   rw      rw
//	 1  01   r       -
//	 1  11   r       r
//
// The descriptor has no bits left for software, so the copy-on-write,
// accessed and dirty flags live in a shadow word above bit 32.
const (
	armSmallPage = 0x002
	armAP0       = 0x010
	armAP1       = 0x020
	armAPX       = 0x200

	armSoftAccessed = 1 << 32
	armSoftDirty    = 1 << 33
	armSoftCOW      = 1 << 34

	armAddrMask = 0xFFFFF000
)

type armArch struct{}

// ARM is the ARM layout with a 12-bit directory index and an 8-bit table
// index.
var ARM Arch = armArch{}

func (armArch) Name() string         { return "arm" }
func (armArch) DirShift() uint       { return 20 }
func (armArch) NumDirEntries() int   { return 4096 }
func (armArch) NumTableEntries() int { return 256 }

func (armArch) MakePTE(f phys.Frame, perm Perm) PTE {
	v := PTE(f.Address()) & armAddrMask

	if perm.Has(PermPresent) {
		v |= armSmallPage
	}

	v |= armAP0
	if perm.Has(PermUser) {
		v |= armAP1
	}

	if !perm.Has(PermWritable) {
		v |= armAPX
	}

	if perm.Has(PermAccessed) {
		v |= armSoftAccessed
	}

	if perm.Has(PermDirty) {
		v |= armSoftDirty
	}

	if perm.Has(PermCOW) {
		v |= armSoftCOW
	}

	return v
}

func (armArch) Frame(pte PTE) phys.Frame {
	return phys.FrameOf(uint64(pte & armAddrMask))
}

func (armArch) Perm(pte PTE) Perm {
	var p Perm

	if pte&armSmallPage != 0 {
		p |= PermPresent
	}

	if pte&(armAP0|armAP1) != 0 {
		if pte&armAP1 != 0 {
			p |= PermUser
		}

		if pte&armAPX == 0 {
			p |= PermWritable
		}
	}

	if pte&armSoftAccessed != 0 {
		p |= PermAccessed
	}

	if pte&armSoftDirty != 0 {
		p |= PermDirty
	}

	if pte&armSoftCOW != 0 {
		p |= PermCOW
	}

	return p
}
