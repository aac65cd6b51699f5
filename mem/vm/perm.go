package vm

import "strings"

// Perm is the architecture-independent set of flags carried by a page table
// entry. Arch adapters translate it to and from the hardware bit layout.
type Perm uint8

// Logical page permission and status flags.
const (
	PermPresent Perm = 1 << iota
	PermWritable
	PermUser
	// PermCOW marks a copy-on-write page. It lives in the bits the hardware
	// leaves to software.
	PermCOW
	PermAccessed
	PermDirty
)

// SyscallPerms lists the flags user environments may pass to the page
// system calls.
const SyscallPerms = PermPresent | PermWritable | PermUser | PermCOW

// Has returns true if all of the given flags are set.
func (p Perm) Has(flags Perm) bool {
	return p&flags == flags
}

// HasAny returns true if at least one of the given flags is set.
func (p Perm) HasAny(flags Perm) bool {
	return p&flags != 0
}

// ValidSyscallPerm reports whether a permission request coming from user
// space is acceptable: present and user must be set and nothing outside
// SyscallPerms may be.
func ValidSyscallPerm(p Perm) bool {
	return p.Has(PermPresent|PermUser) && p&^SyscallPerms == 0
}

var permNames = []struct {
	flag Perm
	name string
}{
	{PermPresent, "P"},
	{PermWritable, "W"},
	{PermUser, "U"},
	{PermCOW, "COW"},
	{PermAccessed, "A"},
	{PermDirty, "D"},
}

func (p Perm) String() string {
	if p == 0 {
		return "-"
	}

	names := make([]string, 0, len(permNames))
	for _, n := range permNames {
		if p.Has(n.flag) {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, "|")
}
