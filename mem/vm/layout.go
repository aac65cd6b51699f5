package vm

import "github.com/sarchlab/joskern/mem/phys"

// VA is a 32-bit virtual address.
type VA uint32

// Page geometry shared by every architecture.
const (
	PageShift = phys.PageShift
	PageSize  = phys.PageSize
)

// User address-space layout.
const (
	// UTOP is the end of the region user environments may map.
	UTOP VA = 0xEEC00000

	// UXSTACKTOP is the top of the one-page user exception stack.
	UXSTACKTOP VA = UTOP

	// USTACKTOP is the top of the normal user stack. The page between it and
	// the exception stack is left unmapped as a guard.
	USTACKTOP VA = UTOP - 2*PageSize

	// UTEXT is where user programs are loaded.
	UTEXT VA = 0x800000

	// UTEMP is a scratch region for mapping pages temporarily.
	UTEMP VA = 0x400000

	// PFTEMP is the scratch page used by the copy-on-write fault handler.
	PFTEMP VA = UTEXT - PageSize
)

// PageNum returns the virtual page number of the address.
func PageNum(va VA) uint32 {
	return uint32(va) >> PageShift
}

// PageAddr returns the address of the first byte of a page number.
func PageAddr(pn uint32) VA {
	return VA(pn << PageShift)
}

// RoundDown aligns the address to the start of its page.
func (va VA) RoundDown() VA {
	return va &^ (PageSize - 1)
}

// Offset returns the position of the address within its page.
func (va VA) Offset() uint32 {
	return uint32(va) & (PageSize - 1)
}

// Aligned returns true if the address is the start of a page.
func (va VA) Aligned() bool {
	return va.Offset() == 0
}
