// Package vm implements the two-level paged translation structure shared by
// the kernel and user environments.
package vm

import (
	"errors"
	"sync"

	"github.com/sarchlab/joskern/mem/phys"
)

// ErrNotMapped is returned when an address has no present mapping.
var ErrNotMapped = errors.New("virtual address is not mapped")

// A Page describes one present mapping.
type Page struct {
	VAddr VA
	Frame phys.Frame
	Perm  Perm
}

// PAddr returns the physical address the page starts at.
func (p Page) PAddr() uint64 {
	return p.Frame.Address()
}

// A PageTable translates the virtual addresses of one address space.
type PageTable interface {
	// Arch returns the layout the entries are encoded in.
	Arch() Arch

	// Walk returns the entry for the address. When the page table covering
	// the address does not exist, it is allocated if create is set and
	// ErrNotMapped is returned otherwise. Repeated walks of the same address
	// return the same entry.
	Walk(va VA, create bool) (*PTE, error)

	// Insert maps frame f at va, replacing any previous mapping.
	Insert(f phys.Frame, va VA, perm Perm) error

	// Remove unmaps the page containing va. Unmapped addresses are ignored.
	Remove(va VA)

	// Find returns the mapping of the page containing va.
	Find(va VA) (Page, bool)

	// DirPerm returns the flags of the directory entry covering va.
	DirPerm(va VA) Perm

	// Access checks an access the way the MMU does and returns the physical
	// address on success. A successful access sets the accessed flag, and
	// the dirty flag for writes.
	Access(va VA, write, user bool) (uint64, FaultCode, bool)

	// Release drops every mapping and returns all table pages.
	Release()
}

type pageTable struct {
	frame   phys.Frame
	entries []PTE
}

// PageDirectory is the root of a two-level page table.
type PageDirectory struct {
	sync.Mutex

	arch   Arch
	frames *phys.Allocator
	frame  phys.Frame
	dir    []PTE
	tables []*pageTable
}

// NewPageDirectory allocates an empty page directory.
func NewPageDirectory(arch Arch, frames *phys.Allocator) (*PageDirectory, error) {
	f, err := frames.Alloc(true)
	if err != nil {
		return nil, err
	}

	frames.IncRef(f)

	return &PageDirectory{
		arch:   arch,
		frames: frames,
		frame:  f,
		dir:    make([]PTE, arch.NumDirEntries()),
		tables: make([]*pageTable, arch.NumDirEntries()),
	}, nil
}

// Arch returns the layout the entries are encoded in.
func (d *PageDirectory) Arch() Arch {
	return d.arch
}

// Frame returns the frame that holds the directory, the value a CPU loads
// into its translation base register.
func (d *PageDirectory) Frame() phys.Frame {
	return d.frame
}

// Walk returns the entry for the address.
func (d *PageDirectory) Walk(va VA, create bool) (*PTE, error) {
	d.Lock()
	defer d.Unlock()

	return d.walk(va, create)
}

func (d *PageDirectory) walk(va VA, create bool) (*PTE, error) {
	pdx := PDX(d.arch, va)

	t := d.tables[pdx]
	if t == nil {
		if !create {
			return nil, ErrNotMapped
		}

		f, err := d.frames.Alloc(true)
		if err != nil {
			return nil, err
		}

		d.frames.IncRef(f)

		t = &pageTable{
			frame:   f,
			entries: make([]PTE, d.arch.NumTableEntries()),
		}
		d.tables[pdx] = t
		d.dir[pdx] = d.arch.MakePTE(f, PermPresent|PermWritable|PermUser)
	}

	return &t.entries[PTX(d.arch, va)], nil
}

// Insert maps frame f at va. Re-inserting the frame already mapped at va
// only updates the flags.
func (d *PageDirectory) Insert(f phys.Frame, va VA, perm Perm) error {
	d.Lock()
	defer d.Unlock()

	pte, err := d.walk(va, true)
	if err != nil {
		return err
	}

	// Take the new reference before dropping the old one so that a frame
	// mapped onto itself is never freed in between.
	d.frames.IncRef(f)
	d.removeEntry(pte)

	*pte = d.arch.MakePTE(f, perm|PermPresent)

	return nil
}

// Remove unmaps the page containing va.
func (d *PageDirectory) Remove(va VA) {
	d.Lock()
	defer d.Unlock()

	pte, err := d.walk(va, false)
	if err != nil {
		return
	}

	d.removeEntry(pte)
}

func (d *PageDirectory) removeEntry(pte *PTE) {
	if !d.arch.Perm(*pte).Has(PermPresent) {
		return
	}

	d.frames.DecRef(d.arch.Frame(*pte))
	*pte = 0
}

// Find returns the mapping of the page containing va.
func (d *PageDirectory) Find(va VA) (Page, bool) {
	d.Lock()
	defer d.Unlock()

	return d.find(va)
}

func (d *PageDirectory) find(va VA) (Page, bool) {
	pte, err := d.walk(va, false)
	if err != nil {
		return Page{}, false
	}

	perm := d.arch.Perm(*pte)
	if !perm.Has(PermPresent) {
		return Page{}, false
	}

	return Page{
		VAddr: va.RoundDown(),
		Frame: d.arch.Frame(*pte),
		Perm:  perm,
	}, true
}

// DirPerm returns the flags of the directory entry covering va.
func (d *PageDirectory) DirPerm(va VA) Perm {
	d.Lock()
	defer d.Unlock()

	return d.arch.Perm(d.dir[PDX(d.arch, va)])
}

// Access checks an access the way the MMU does.
func (d *PageDirectory) Access(
	va VA,
	write, user bool,
) (paddr uint64, code FaultCode, ok bool) {
	d.Lock()
	defer d.Unlock()

	if write {
		code |= FaultWrite
	}

	if user {
		code |= FaultUser
	}

	pte, err := d.walk(va, false)
	if err != nil {
		return 0, code, false
	}

	perm := d.arch.Perm(*pte)
	if !perm.Has(PermPresent) {
		return 0, code, false
	}

	if (user && !perm.Has(PermUser)) || (write && !perm.Has(PermWritable)) {
		return 0, code | FaultProtection, false
	}

	perm |= PermAccessed
	if write {
		perm |= PermDirty
	}

	f := d.arch.Frame(*pte)
	*pte = d.arch.MakePTE(f, perm)

	return f.Address() + uint64(va.Offset()), code, true
}

// Pages returns every present mapping below limit, in address order.
func (d *PageDirectory) Pages(limit VA) []Page {
	d.Lock()
	defer d.Unlock()

	var pages []Page

	span := TableSpan(d.arch)
	for pdx, t := range d.tables {
		if t == nil {
			continue
		}

		base := uint64(pdx) * uint64(span)
		for ptx, pte := range t.entries {
			va := base + uint64(ptx)*PageSize
			if va >= uint64(limit) {
				return pages
			}

			perm := d.arch.Perm(pte)
			if !perm.Has(PermPresent) {
				continue
			}

			pages = append(pages, Page{
				VAddr: VA(va),
				Frame: d.arch.Frame(pte),
				Perm:  perm,
			})
		}
	}

	return pages
}

// Release drops every mapping and returns all table pages and the directory
// page itself. The directory must not be used afterwards.
func (d *PageDirectory) Release() {
	d.Lock()
	defer d.Unlock()

	for pdx, t := range d.tables {
		if t == nil {
			continue
		}

		for i := range t.entries {
			d.removeEntry(&t.entries[i])
		}

		d.frames.DecRef(t.frame)
		d.tables[pdx] = nil
		d.dir[pdx] = 0
	}

	d.frames.DecRef(d.frame)
}
