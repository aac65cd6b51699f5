package vm

import "github.com/sarchlab/joskern/mem/phys"

// PTE is a raw page table or page directory entry in the bit layout of the
// architecture that produced it.
type PTE uint64

// An Arch knows how one architecture lays out its two-level translation
// structure and packs permission bits into entries. Nothing outside an Arch
// implementation looks at PTE bits directly.
type Arch interface {
	// Name identifies the architecture.
	Name() string

	// DirShift is the position of the directory index within an address.
	DirShift() uint

	// NumDirEntries is the number of entries in a page directory.
	NumDirEntries() int

	// NumTableEntries is the number of entries in a page table.
	NumTableEntries() int

	// MakePTE builds an entry pointing at frame f with the given flags.
	MakePTE(f phys.Frame, perm Perm) PTE

	// Frame extracts the frame an entry points at.
	Frame(pte PTE) phys.Frame

	// Perm decodes the flags of an entry.
	Perm(pte PTE) Perm
}

// PDX returns the page directory index of an address.
func PDX(a Arch, va VA) int {
	return int(uint32(va)>>a.DirShift()) & (a.NumDirEntries() - 1)
}

// PTX returns the page table index of an address.
func PTX(a Arch, va VA) int {
	return int(uint32(va)>>PageShift) & (a.NumTableEntries() - 1)
}

// TableSpan returns the number of bytes mapped by one page table.
func TableSpan(a Arch) uint32 {
	return uint32(a.NumTableEntries()) * PageSize
}

// ArchByName returns the adapter with the given name, or nil.
func ArchByName(name string) Arch {
	switch name {
	case X86.Name():
		return X86
	case ARM.Name():
		return ARM
	}

	return nil
}
